package broker

import (
	"context"
	"time"

	"github.com/BharatRVala/rupie-times-sub001/subscription"
)

// CheckoutCompletedEvent is published by the checkout system when a payment
// attempt finishes. PaymentStatus mirrors the gateway result; the engine
// never talks to the gateway itself.
type CheckoutCompletedEvent struct {
	EventID       string                     `json:"eventId"`
	UserID        string                     `json:"userId"`
	ProductID     string                     `json:"productId"`
	Variant       subscription.Variant       `json:"variant"`
	PaymentStatus subscription.PaymentStatus `json:"paymentStatus"`
	PaymentID     string                     `json:"paymentId"`
	TransactionID string                     `json:"transactionId"`
	CompletedAt   time.Time                  `json:"completedAt"`
}

// Producer defines a producer sending checkout events via message broker
type Producer interface {
	Close()
	SendCheckoutCompleted(p *CheckoutCompletedEvent) error
}

// Consumer defines a consumer receiving checkout events via message broker
type Consumer interface {
	Close()
	ReceiveCheckoutCompleted(ctx context.Context) (<-chan *CheckoutCompletedEvent, error)
}
