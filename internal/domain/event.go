package domain

// EventKind identifies a processor webhook event. The set is open: kinds
// this service does not recognize are acknowledged and ignored.
type EventKind string

const (
	EventInvoiceSettled EventKind = "InvoiceSettled"
	EventInvoiceExpired EventKind = "InvoiceExpired"
	EventInvoiceInvalid EventKind = "InvoiceInvalid"
)

// InboundEvent is an authenticated webhook delivery. Raw holds the body
// bytes exactly as received; the signature was computed over them.
type InboundEvent struct {
	InvoiceID string
	Kind      EventKind
	Raw       []byte
}

// StatusChange is published to downstream consumers after every committed
// transition of an order.
type StatusChange struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	InvoiceID string      `json:"invoice_id,omitempty"`
}
