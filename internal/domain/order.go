package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// OrderStatus is the monotonic lifecycle state of an order.
type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	StatusCreated        OrderStatus = "created"
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusExpired        OrderStatus = "expired"
	StatusInvalid        OrderStatus = "invalid"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	StatusCreated:        {},
	StatusPendingPayment: {},
	StatusPaid:           {},
	StatusExpired:        {},
	StatusInvalid:        {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", errors.New("invalid order status")
}

// Order — a purchase order settled through the external payment processor.
// Amount and Currency are fixed at creation. InvoiceID is set at most once,
// by a successful invoice bind, and is immutable afterwards.
type Order struct {
	ID        uuid.UUID
	Status    OrderStatus
	Items     []OrderItem
	Amount    decimal.Decimal
	Currency  currency.Unit
	Customer  Customer
	InvoiceID string // empty until an invoice is bound
	CreatedAt time.Time
}

// OrderItem is opaque to the core: pricing happens in the catalog stub.
type OrderItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// Customer contact data, passed through to processor metadata unvalidated.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Invoice is the processor's payment request, bound 1:1 to an order.
type Invoice struct {
	ID           string
	CheckoutLink string
}
