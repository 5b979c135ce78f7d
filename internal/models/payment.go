package models

import "time"

type IntentStatus string

const (
	StatusPending   IntentStatus = "PENDING"
	StatusCompleted IntentStatus = "COMPLETED"
	StatusExpired   IntentStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s IntentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

type CompletionMode string

const (
	ModeManual CompletionMode = "manual"
	ModeAuto   CompletionMode = "auto"
)

type ExpiryPolicy string

const (
	ExpiryPolicyExpire ExpiryPolicy = "expire"
	ExpiryPolicyRemove ExpiryPolicy = "remove"
)

// MethodCard is the only payment method the service settles.
const MethodCard = "CARD"

// PaymentIntent is a point-in-time snapshot of a ledger record.
// Callers never hold a reference into the ledger itself.
type PaymentIntent struct {
	ID               string       `json:"payment_id"`
	OrderRef         OrderRef     `json:"order_id"`
	UserID           *int64       `json:"user_id,omitempty"`
	Amount           int64        `json:"amount"`
	Method           string       `json:"method"`
	Status           IntentStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	CompletedAt      *time.Time   `json:"confirmed_at"`
	CallbackURL      string       `json:"callback_url,omitempty"`
	CorrelationToken string       `json:"tx_id,omitempty"`
}

// CreateIntentCommand is what the transport layer hands to the intent service.
type CreateIntentCommand struct {
	OrderRef         OrderRef
	UserID           *int64
	Amount           int64
	CallbackURL      string `validate:"omitempty,url,startswith=http"`
	CorrelationToken string `validate:"omitempty,max=128,printascii,excludesall=/?#%"`
}

type ConfirmCommand struct {
	ID string
}

// IntentList is the result of a list query.
type IntentList struct {
	Intents        []PaymentIntent `json:"payments"`
	PendingCount   int             `json:"pending_count"`
	CompletedCount int             `json:"completed_count"`
	ExpiredCount   int             `json:"expired_count"`
}

// StateChangeEvent is published on every ledger transition.
type StateChangeEvent struct {
	PaymentID     string       `json:"payment_id"`
	State         IntentStatus `json:"state"`
	PreviousState IntentStatus `json:"previous_state"`
	Trigger       string       `json:"trigger"`
	Timestamp     time.Time    `json:"timestamp"`
}

const (
	TriggerCreate  = "create"
	TriggerManual  = "manual"
	TriggerAuto    = "auto"
	TriggerExpiry  = "expiry"
	EventCompleted = "payment.completed"
)

// WebhookPayload is the body POSTed to an intent's callback URL.
type WebhookPayload struct {
	Version          string       `json:"version"`
	Event            string       `json:"event"`
	PaymentID        string       `json:"payment_id"`
	OrderRef         OrderRef     `json:"order_id"`
	CorrelationToken string       `json:"tx_id"`
	UserID           *int64       `json:"user_id"`
	Amount           int64        `json:"amount"`
	Method           string       `json:"method"`
	Status           IntentStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	CompletedAt      *time.Time   `json:"confirmed_at"`
}

type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliverySkipped   DeliveryStatus = "skipped"
)

// DeliveryOutcome describes one webhook delivery sequence.
type DeliveryOutcome struct {
	PaymentID  string
	URL        string
	Status     DeliveryStatus
	Attempts   int
	StatusCode int
	Err        error
}
