package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// OrderStore — port for order persistence and state transitions. Every write
// is an atomic compare-and-set keyed by order id; implementations must not
// let two concurrent read-modify-write cycles on the same order interleave.
type OrderStore interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id uuid.UUID) (Order, error)

	// BindInvoice attaches an invoice id and advances created → pending_payment
	// in one atomic step, updating the invoice→order index. Fails with
	// ErrAlreadyBound if any invoice id is already attached.
	BindInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error

	// CompareAndSetStatus moves the order to next only if its current status
	// is in from. Returns whether the transition was applied. An unknown
	// order id is a no-op, not an error.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from []OrderStatus, next OrderStatus) (bool, error)

	// FindByInvoice resolves an order through the invoice index.
	FindByInvoice(ctx context.Context, invoiceID string) (Order, error)
}

// InvoiceIssuer — port for the external payment processor's invoice API.
type InvoiceIssuer interface {
	CreateInvoice(ctx context.Context, o Order) (Invoice, error)
}

// Catalog — port for inventory and pricing lookups.
type Catalog interface {
	Quote(items []OrderItem, cur currency.Unit) (amount decimal.Decimal, available bool)
}

// StatusPublisher — port for notifying downstream consumers of committed
// transitions. Delivery is best effort; failures must not block the order flow.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, o Order) error
}

// Shared domain errors.
var (
	ErrNotFound         = notFoundError("order not found")
	ErrValidation       = validationError("invalid data")
	ErrOutOfStock       = outOfStockError("item out of stock")
	ErrAlreadyBound     = alreadyBoundError("invoice already bound")
	ErrUpstreamInvoice  = upstreamError("processor invoice call failed")
	ErrInvalidSignature = signatureError("invalid webhook signature")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

type outOfStockError string

func (e outOfStockError) Error() string { return string(e) }

type alreadyBoundError string

func (e alreadyBoundError) Error() string { return string(e) }

type upstreamError string

func (e upstreamError) Error() string { return string(e) }

type signatureError string

func (e signatureError) Error() string { return string(e) }
