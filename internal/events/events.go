package events

import (
	"context"
	"time"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderCancelled     = "order.cancelled"
	PaymentSucceeded   = "payment.succeeded"
	PaymentFailed      = "payment.failed"
	PaymentRefunded    = "payment.refunded"
)

// Event is a domain notification emitted after a state change has been committed.
type Event struct {
	Type      string    `json:"type"`
	OrderID   int64     `json:"orderid"`
	UserID    int64     `json:"userid,omitempty"`
	PaymentID int64     `json:"paymentid,omitempty"`
	Status    string    `json:"status,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers events. Implementations log their own failures; a
// committed state change is never rolled back because a notification failed.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Logger is the subset of echo.Logger publishers need.
type Logger interface {
	Errorf(format string, args ...interface{})
}

type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
