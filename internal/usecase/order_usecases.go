package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/example/btcpay-storefront/internal/domain"
)

// CreateOrder — price the cart through the catalog and persist a new order
// in status "created". Amount and currency are fixed here and never change.
type CreateOrder struct {
	Store     domain.OrderStore
	Catalog   domain.Catalog
	Publisher domain.StatusPublisher
}

func (uc CreateOrder) Execute(ctx context.Context, items []domain.OrderItem, customer domain.Customer, currencyCode string) (domain.Order, error) {
	var o domain.Order

	if currencyCode == "" {
		currencyCode = "USD"
	}
	cur, err := currency.ParseISO(currencyCode)
	if err != nil {
		return o, fmt.Errorf("currency[%s]: %w", currencyCode, domain.ErrValidation)
	}

	amount, available := uc.Catalog.Quote(items, cur)
	if !available {
		return o, domain.ErrOutOfStock
	}

	o = domain.Order{
		ID:        uuid.New(),
		Status:    domain.StatusCreated,
		Items:     items,
		Amount:    amount,
		Currency:  cur,
		Customer:  customer,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.Store.Create(ctx, o); err != nil {
		return domain.Order{}, fmt.Errorf("store.Create: %w", err)
	}

	log.Printf("order created: %s", o.ID)
	publishStatus(ctx, uc.Publisher, o)
	return o, nil
}

// GetOrder — read-only projection of an order's current state, consumed by
// polling clients. Reads go straight to the store, never through a cache.
type GetOrder struct {
	Store domain.OrderStore
}

func (uc GetOrder) Execute(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return uc.Store.Get(ctx, id)
}

// PayOrder — create an invoice with the processor and bind it to the order.
// The external call happens outside any store lock; the bind commits in a
// single atomic step afterwards. A processor failure leaves the order in
// "created" and is safe to retry; once an invoice is bound, re-invocation
// fails with ErrAlreadyBound.
type PayOrder struct {
	Store     domain.OrderStore
	Issuer    domain.InvoiceIssuer
	Publisher domain.StatusPublisher
}

func (uc PayOrder) Execute(ctx context.Context, id uuid.UUID) (domain.Invoice, error) {
	o, err := uc.Store.Get(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if o.InvoiceID != "" {
		return domain.Invoice{}, domain.ErrAlreadyBound
	}

	inv, err := uc.Issuer.CreateInvoice(ctx, o)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("issuer.CreateInvoice: %w", err)
	}

	if err := uc.Store.BindInvoice(ctx, id, inv.ID); err != nil {
		// the invoice was already issued upstream; surface the bind failure
		// instead of rolling anything back
		return domain.Invoice{}, fmt.Errorf("store.BindInvoice: %w", err)
	}

	log.Printf("invoice %s bound to order %s", inv.ID, o.ID)

	o.InvoiceID = inv.ID
	o.Status = domain.StatusPendingPayment
	publishStatus(ctx, uc.Publisher, o)
	return inv, nil
}

func publishStatus(ctx context.Context, pub domain.StatusPublisher, o domain.Order) {
	if pub == nil {
		return
	}
	if err := pub.PublishStatus(ctx, o); err != nil {
		log.Printf("publish status for order %s: %v", o.ID, err)
	}
}
