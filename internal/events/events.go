// Package events publishes order lifecycle events for downstream consumers
// such as the confirmation mailer.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload written to the event bus
type OrderEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OrderID    int64           `json:"orderId"`
	UserID     int64           `json:"userId"`
	UserEmail  string          `json:"userEmail,omitempty"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewOrderEvent stamps an event with a fresh id and the current time
func NewOrderEvent(eventType string, orderID, userID int64, status string, total decimal.Decimal) OrderEvent {
	return OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    orderID,
		UserID:     userID,
		Status:     status,
		Total:      total,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers order events
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// LogPublisher writes events to the process log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	log.Printf("[EVENTS] %s %s", event.Type, payload)
	return nil
}

func (LogPublisher) Close() error { return nil }
