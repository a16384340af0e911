package natsstan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stan "github.com/nats-io/stan.go"

	"github.com/example/btcpay-storefront/internal/domain"
)

// Publisher emits order status changes to a NATS Streaming subject so
// downstream consumers (fulfilment, notifications) can follow the lifecycle
// without polling this service.
type Publisher struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string

	sc stan.Conn
}

func (p *Publisher) Connect() error {
	clientID := p.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("storefront-%d", time.Now().UnixNano())
	}
	sc, err := stan.Connect(p.ClusterID, clientID, stan.NatsURL(p.URL))
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	p.sc = sc
	return nil
}

func (p *Publisher) Close() {
	if p.sc != nil {
		_ = p.sc.Close()
	}
}

func (p *Publisher) PublishStatus(_ context.Context, o domain.Order) error {
	if p.sc == nil {
		return fmt.Errorf("publisher is not connected")
	}
	b, err := json.Marshal(domain.StatusChange{
		OrderID:   o.ID.String(),
		Status:    o.Status,
		InvoiceID: o.InvoiceID,
	})
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}
	if err := p.sc.Publish(p.Subject, b); err != nil {
		return fmt.Errorf("publish to %s: %w", p.Subject, err)
	}
	return nil
}

var _ domain.StatusPublisher = (*Publisher)(nil)
