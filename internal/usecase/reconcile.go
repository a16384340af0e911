package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/btcpay-storefront/internal/domain"
)

// ReconcileEvent maps a verified processor event to an order via the invoice
// index and applies the corresponding transition. It is idempotent under
// at-least-once, out-of-order delivery: replays and late events resolve to
// no-ops through the compare-and-set sets below.
type ReconcileEvent struct {
	Store     domain.OrderStore
	Publisher domain.StatusPublisher
}

// transitionFor encodes the dominance lattice. "paid" is absolutely
// terminal: no event kind lists it as an allowed source. A late settlement
// after a provisional expiry or invalidation still promotes the order to
// paid, because the processor's final word on settlement wins.
func transitionFor(kind domain.EventKind) (from []domain.OrderStatus, next domain.OrderStatus, ok bool) {
	switch kind {
	case domain.EventInvoiceSettled:
		return []domain.OrderStatus{domain.StatusPendingPayment, domain.StatusExpired, domain.StatusInvalid},
			domain.StatusPaid, true
	case domain.EventInvoiceExpired:
		return []domain.OrderStatus{domain.StatusPendingPayment},
			domain.StatusExpired, true
	case domain.EventInvoiceInvalid:
		return []domain.OrderStatus{domain.StatusPendingPayment, domain.StatusExpired},
			domain.StatusInvalid, true
	default:
		return nil, "", false
	}
}

func (uc ReconcileEvent) Execute(ctx context.Context, ev domain.InboundEvent) error {
	o, err := uc.Store.FindByInvoice(ctx, ev.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// the processor may deliver events for invoices this instance
			// never created, e.g. after a restart
			log.Printf("event %s for unknown invoice %s, dropped", ev.Kind, ev.InvoiceID)
			return nil
		}
		return fmt.Errorf("store.FindByInvoice: %w", err)
	}

	from, next, ok := transitionFor(ev.Kind)
	if !ok {
		log.Printf("unrecognized event kind %q for order %s, ignored", ev.Kind, o.ID)
		return nil
	}

	applied, err := uc.Store.CompareAndSetStatus(ctx, o.ID, from, next)
	if err != nil {
		return fmt.Errorf("store.CompareAndSetStatus: %w", err)
	}
	if !applied {
		log.Printf("event %s for order %s: no transition from %s", ev.Kind, o.ID, o.Status)
		return nil
	}

	log.Printf("order %s: %s -> %s (event %s)", o.ID, o.Status, next, ev.Kind)

	o.Status = next
	publishStatus(ctx, uc.Publisher, o)
	return nil
}
