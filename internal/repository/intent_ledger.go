package repository

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
)

const idPrefix = "pay_"

// IntentLedger is the in-memory store of payment intents. It owns every record;
// callers only ever receive copies.
type IntentLedger struct {
	mu      sync.RWMutex
	intents map[string]*models.PaymentIntent
	policy  models.ExpiryPolicy
	now     func() time.Time
	newID   func() string
}

type LedgerOption func(*IntentLedger)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *IntentLedger) { l.now = now }
}

func WithExpiryPolicy(policy models.ExpiryPolicy) LedgerOption {
	return func(l *IntentLedger) { l.policy = policy }
}

func WithIDGenerator(newID func() string) LedgerOption {
	return func(l *IntentLedger) { l.newID = newID }
}

func NewIntentLedger(opts ...LedgerOption) *IntentLedger {
	l := &IntentLedger{
		intents: make(map[string]*models.PaymentIntent),
		policy:  models.ExpiryPolicyExpire,
		now:     time.Now,
		newID:   randomID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func randomID() string {
	return idPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (l *IntentLedger) Create(cmd models.CreateIntentCommand) (models.PaymentIntent, bool, error) {
	if cmd.Amount < 1 {
		return models.PaymentIntent{}, false, fmt.Errorf("%w: got %d", models.ErrInvalidAmount, cmd.Amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var id string
	if cmd.CorrelationToken != "" {
		id = idPrefix + cmd.CorrelationToken
		if existing, ok := l.intents[id]; ok {
			if existing.CorrelationToken == cmd.CorrelationToken &&
				existing.OrderRef == cmd.OrderRef &&
				sameUser(existing.UserID, cmd.UserID) &&
				existing.Amount == cmd.Amount &&
				existing.CallbackURL == cmd.CallbackURL {
				return snapshot(existing), false, nil
			}
			return models.PaymentIntent{}, false, fmt.Errorf("%w: tx_id %s", models.ErrIdempotencyConflict, cmd.CorrelationToken)
		}
	} else {
		for {
			id = l.newID()
			if _, taken := l.intents[id]; !taken {
				break
			}
		}
	}

	intent := &models.PaymentIntent{
		ID:               id,
		OrderRef:         cmd.OrderRef,
		UserID:           copyUserID(cmd.UserID),
		Amount:           cmd.Amount,
		Method:           models.MethodCard,
		Status:           models.StatusPending,
		CreatedAt:        l.now().UTC(),
		CallbackURL:      cmd.CallbackURL,
		CorrelationToken: cmd.CorrelationToken,
	}
	l.intents[id] = intent

	return snapshot(intent), true, nil
}

func (l *IntentLedger) Get(id string) (models.PaymentIntent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	intent, ok := l.intents[id]
	if !ok {
		return models.PaymentIntent{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return snapshot(intent), nil
}

// TransitionToCompleted moves a PENDING intent to COMPLETED. The status check
// and the write happen under one lock, so it races safely with SweepExpired and
// with a concurrent confirmation of the same id.
func (l *IntentLedger) TransitionToCompleted(id string) (models.PaymentIntent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	intent, ok := l.intents[id]
	if !ok {
		return models.PaymentIntent{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if intent.Status != models.StatusPending {
		return models.PaymentIntent{}, fmt.Errorf("%w: %s is %s", models.ErrAlreadyFinalized, id, intent.Status)
	}

	completedAt := l.now().UTC()
	intent.Status = models.StatusCompleted
	intent.CompletedAt = &completedAt

	return snapshot(intent), nil
}

// SweepExpired expires every PENDING intent older than threshold in one pass
// and returns the affected ids in sorted order.
func (l *IntentLedger) SweepExpired(threshold time.Duration) ([]string, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("expiry threshold must be positive, got %s", threshold)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	var expired []string
	for id, intent := range l.intents {
		if intent.Status != models.StatusPending || now.Sub(intent.CreatedAt) <= threshold {
			continue
		}
		if l.policy == models.ExpiryPolicyRemove {
			delete(l.intents, id)
		} else {
			intent.Status = models.StatusExpired
		}
		expired = append(expired, id)
	}

	sort.Strings(expired)
	return expired, nil
}

func (l *IntentLedger) ExpiryPolicy() models.ExpiryPolicy {
	return l.policy
}

// List returns a consistent copy of every intent, oldest first.
func (l *IntentLedger) List() []models.PaymentIntent {
	l.mu.RLock()
	out := make([]models.PaymentIntent, 0, len(l.intents))
	for _, intent := range l.intents {
		out = append(out, snapshot(intent))
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func snapshot(intent *models.PaymentIntent) models.PaymentIntent {
	cp := *intent
	cp.UserID = copyUserID(intent.UserID)
	if intent.CompletedAt != nil {
		completedAt := *intent.CompletedAt
		cp.CompletedAt = &completedAt
	}
	return cp
}

func copyUserID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameUser(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
