package models

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be at least 1")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNotFound            = errors.New("payment intent not found")
	ErrAlreadyFinalized    = errors.New("payment intent already processed")
	ErrIdempotencyConflict = errors.New("correlation token already used with different parameters")
	ErrWebhooksDisabled    = errors.New("webhook delivery is not configured")
	ErrMisconfiguredSecret = errors.New("webhook secret is not configured")
	ErrDeliveryFailed      = errors.New("webhook delivery failed")
)
