// Package events publishes order lifecycle messages for downstream
// consumers such as the warehouse.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/safar/kavach-store/internal/models"
	"github.com/shopspring/decimal"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderEvent struct {
	Type        string             `json:"type"`
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Owner       string             `json:"owner"`
	Status      models.OrderStatus `json:"status"`
	Previous    models.OrderStatus `json:"previous,omitempty"`
	Total       decimal.Decimal    `json:"total"`
	Items       []OrderItem        `json:"items,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func NewOrderEvent(kind string, o *models.Order, previous models.OrderStatus, at time.Time) OrderEvent {
	evt := OrderEvent{
		Type:        kind,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Owner:       o.Owner,
		Status:      o.Status,
		Previous:    previous,
		Total:       o.Total,
		OccurredAt:  at,
	}
	for _, it := range o.Items {
		evt.Items = append(evt.Items, OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return evt
}

type Publisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (r *Recorder) Publish(_ context.Context, evt OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderEvent, len(r.events))
	copy(out, r.events)
	return out
}
