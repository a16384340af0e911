package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/example/btcpay-storefront/internal/domain"
)

// MemoryOrderStore keeps orders and the invoice→order index in process
// memory. A single mutex covers both maps so a bind updates the record and
// the index atomically; it also gives the per-order CAS discipline the
// transition methods require.
type MemoryOrderStore struct {
	mu        sync.RWMutex
	orders    map[uuid.UUID]domain.Order
	byInvoice map[string]uuid.UUID
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders:    make(map[uuid.UUID]domain.Order),
		byInvoice: make(map[string]uuid.UUID),
	}
}

func (s *MemoryOrderStore) Create(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

func (s *MemoryOrderStore) Get(_ context.Context, id uuid.UUID) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *MemoryOrderStore) BindInvoice(_ context.Context, id uuid.UUID, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.InvoiceID != "" {
		return domain.ErrAlreadyBound
	}
	o.InvoiceID = invoiceID
	o.Status = domain.StatusPendingPayment
	s.orders[id] = o
	s.byInvoice[invoiceID] = id
	return nil
}

func (s *MemoryOrderStore) CompareAndSetStatus(_ context.Context, id uuid.UUID, from []domain.OrderStatus, next domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		// the processor may know invoices this instance never created
		return false, nil
	}
	if !slices.Contains(from, o.Status) {
		return false, nil
	}
	o.Status = next
	s.orders[id] = o
	return true, nil
}

func (s *MemoryOrderStore) FindByInvoice(_ context.Context, invoiceID string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byInvoice[invoiceID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

var _ domain.OrderStore = (*MemoryOrderStore)(nil)
