package interfaces

import (
	"context"
	"time"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
)

// IntentLedger defines the contract for payment intent storage.
// Every mutation is a single atomic step against the record's status.
type IntentLedger interface {
	// Create stores a new PENDING intent. When the command's correlation token
	// is already stored with identical fields, the existing intent is returned
	// and created is false.
	Create(cmd models.CreateIntentCommand) (intent models.PaymentIntent, created bool, err error)
	Get(id string) (models.PaymentIntent, error)
	TransitionToCompleted(id string) (models.PaymentIntent, error)
	SweepExpired(threshold time.Duration) ([]string, error)
	List() []models.PaymentIntent
	// ExpiryPolicy reports what SweepExpired does with an expired intent.
	ExpiryPolicy() models.ExpiryPolicy
}

// EventPublisher fans state changes out to external subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event models.StateChangeEvent) error
	Close() error
}

// WebhookDispatcher delivers a completion notification for an intent.
type WebhookDispatcher interface {
	Deliver(ctx context.Context, intent models.PaymentIntent, event string) models.DeliveryOutcome
}
