package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-intents/internal/events"
	"github.com/akylbek/payment-system/payment-intents/internal/interfaces"
	"github.com/akylbek/payment-system/payment-intents/internal/models"
	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
)

type SweeperOptions struct {
	Interval  time.Duration
	Threshold time.Duration
}

// ExpirySweeper periodically expires intents that stayed PENDING longer than
// the threshold. It talks to the ledger only through SweepExpired, which uses
// the same lock as confirmation.
type ExpirySweeper struct {
	ledger    interfaces.IntentLedger
	publisher interfaces.EventPublisher
	interval  time.Duration
	threshold time.Duration
	policy    models.ExpiryPolicy
}

func NewExpirySweeper(ledger interfaces.IntentLedger, publisher interfaces.EventPublisher, opts SweeperOptions) *ExpirySweeper {
	if publisher == nil {
		publisher = events.NewFanOut()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 20 * time.Second
	}
	return &ExpirySweeper{
		ledger:    ledger,
		publisher: publisher,
		interval:  opts.Interval,
		threshold: opts.Threshold,
		policy:    ledger.ExpiryPolicy(),
	}
}

// Run sweeps on every tick until ctx is cancelled. A tick in progress always
// finishes; a failing tick is logged and the loop carries on.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	telemetry.Logger.Info("Expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("threshold", s.threshold),
		zap.String("policy", string(s.policy)),
	)

	for {
		select {
		case <-ctx.Done():
			telemetry.Logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				telemetry.Logger.Error("Expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce runs a single sweep and returns the expired ids.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (ids []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()

	ids, err = s.ledger.SweepExpired(s.threshold)
	if err != nil {
		return nil, err
	}

	pending := 0
	for _, intent := range s.ledger.List() {
		if intent.Status == models.StatusPending {
			pending++
		}
	}
	telemetry.IntentsPending.Set(float64(pending))

	if len(ids) == 0 {
		return ids, nil
	}

	telemetry.IntentsSwept.WithLabelValues(string(s.policy)).Add(float64(len(ids)))
	telemetry.IntentTransitions.WithLabelValues(string(models.StatusExpired), models.TriggerExpiry).Add(float64(len(ids)))
	telemetry.Logger.Info("Expired pending payment intents",
		zap.Int("count", len(ids)),
		zap.Strings("payment_ids", ids),
		zap.String("policy", string(s.policy)),
	)

	now := time.Now().UTC()
	for _, id := range ids {
		event := models.StateChangeEvent{
			PaymentID:     id,
			State:         models.StatusExpired,
			PreviousState: models.StatusPending,
			Trigger:       models.TriggerExpiry,
			Timestamp:     now,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			telemetry.Logger.Debug("Expiry not fully published", zap.String("payment_id", id), zap.Error(err))
		}
	}

	return ids, nil
}
