package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-intents/internal/events"
	"github.com/akylbek/payment-system/payment-intents/internal/interfaces"
	"github.com/akylbek/payment-system/payment-intents/internal/models"
	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
)

type Options struct {
	Mode              models.CompletionMode
	AutoCompleteDelay time.Duration
}

// IntentService drives the PENDING -> COMPLETED side of the state machine.
// Whoever wins the ledger's compare-and-set owns the side effects: losers
// (a late auto-completion, a second confirm) do nothing.
type IntentService struct {
	ledger     interfaces.IntentLedger
	dispatcher interfaces.WebhookDispatcher
	publisher  interfaces.EventPublisher
	validate   *validator.Validate
	mode       models.CompletionMode
	delay      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewIntentService wires the service. dispatcher may be nil, in which case
// intents with a callback URL are rejected. publisher may be nil.
func NewIntentService(
	ledger interfaces.IntentLedger,
	dispatcher interfaces.WebhookDispatcher,
	publisher interfaces.EventPublisher,
	opts Options,
) *IntentService {
	if publisher == nil {
		publisher = events.NewFanOut()
	}
	if opts.Mode == "" {
		opts.Mode = models.ModeManual
	}
	if opts.AutoCompleteDelay <= 0 {
		opts.AutoCompleteDelay = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &IntentService{
		ledger:     ledger,
		dispatcher: dispatcher,
		publisher:  publisher,
		validate:   validator.New(),
		mode:       opts.Mode,
		delay:      opts.AutoCompleteDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// CreateIntent validates and stores a new intent. created is false when the
// correlation token matched an existing intent, which is returned unchanged.
func (s *IntentService) CreateIntent(ctx context.Context, cmd models.CreateIntentCommand) (models.PaymentIntent, bool, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "IntentService.CreateIntent")
	defer span.End()

	if cmd.Amount < 1 {
		return models.PaymentIntent{}, false, fmt.Errorf("%w: got %d", models.ErrInvalidAmount, cmd.Amount)
	}
	if cmd.OrderRef.IsZero() {
		return models.PaymentIntent{}, false, fmt.Errorf("%w: order_id is required", models.ErrInvalidRequest)
	}
	if err := s.validate.Struct(cmd); err != nil {
		return models.PaymentIntent{}, false, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	if cmd.CallbackURL != "" && s.dispatcher == nil {
		return models.PaymentIntent{}, false, models.ErrWebhooksDisabled
	}

	intent, created, err := s.ledger.Create(cmd)
	if err != nil {
		return models.PaymentIntent{}, false, err
	}
	span.SetAttributes(attribute.String("payment.id", intent.ID), attribute.Bool("payment.created", created))

	if !created {
		telemetry.Logger.Info("Returning existing payment intent for tx_id",
			zap.String("payment_id", intent.ID),
			zap.String("tx_id", intent.CorrelationToken),
			zap.String("status", string(intent.Status)),
		)
		return intent, false, nil
	}

	telemetry.IntentsCreated.Inc()
	telemetry.Logger.Info("Payment intent created",
		zap.String("payment_id", intent.ID),
		zap.String("order_id", intent.OrderRef.String()),
		zap.Int64("amount", intent.Amount),
		zap.Bool("webhook", intent.CallbackURL != ""),
	)
	s.publish(ctx, intent.ID, "", models.StatusPending, models.TriggerCreate)

	if s.mode == models.ModeAuto {
		id := intent.ID
		if !s.track(func() { s.completeAfterDelay(id) }) {
			telemetry.Logger.Warn("Auto-completion not scheduled, service is shutting down",
				zap.String("payment_id", id))
		}
	}

	return intent, true, nil
}

// ConfirmIntent completes a PENDING intent. It fails with ErrNotFound or
// ErrAlreadyFinalized so callers can tell "never existed" from "race lost".
func (s *IntentService) ConfirmIntent(ctx context.Context, cmd models.ConfirmCommand) (models.PaymentIntent, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "IntentService.ConfirmIntent")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", cmd.ID))

	intent, err := s.ledger.TransitionToCompleted(cmd.ID)
	if err != nil {
		telemetry.Logger.Info("Payment confirmation rejected",
			zap.String("payment_id", cmd.ID),
			zap.Error(err),
		)
		return models.PaymentIntent{}, err
	}

	s.onCompleted(ctx, intent, models.TriggerManual)
	if s.shouldDispatch(intent) {
		// Delivery outlives the request that triggered it.
		dctx := context.WithoutCancel(ctx)
		if !s.track(func() { s.dispatcher.Deliver(dctx, intent, models.EventCompleted) }) {
			telemetry.Logger.Warn("Webhook not dispatched, service is shutting down",
				zap.String("payment_id", intent.ID))
		}
	}
	return intent, nil
}

func (s *IntentService) GetIntent(_ context.Context, id string) (models.PaymentIntent, error) {
	return s.ledger.Get(id)
}

func (s *IntentService) ListIntents(_ context.Context) models.IntentList {
	list := models.IntentList{Intents: s.ledger.List()}
	for _, intent := range list.Intents {
		switch intent.Status {
		case models.StatusPending:
			list.PendingCount++
		case models.StatusCompleted:
			list.CompletedCount++
		case models.StatusExpired:
			list.ExpiredCount++
		}
	}
	return list
}

// Close stops scheduled auto-completions and waits for in-flight webhook
// deliveries, up to ctx's deadline.
func (s *IntentService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *IntentService) track(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
	return true
}

func (s *IntentService) completeAfterDelay(id string) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return
	case <-timer.C:
	}

	ctx, span := telemetry.Tracer.Start(context.Background(), "IntentService.autoComplete")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", id))

	intent, err := s.ledger.TransitionToCompleted(id)
	if errors.Is(err, models.ErrAlreadyFinalized) || errors.Is(err, models.ErrNotFound) {
		telemetry.Logger.Debug("Auto-completion skipped",
			zap.String("payment_id", id),
			zap.Error(err),
		)
		return
	}
	if err != nil {
		telemetry.Logger.Error("Auto-completion failed",
			zap.String("payment_id", id),
			zap.Error(err),
		)
		return
	}

	s.onCompleted(ctx, intent, models.TriggerAuto)
	// Already on a tracked goroutine: Close waits for this delivery even if it
	// started shutting down after the transition won.
	if s.shouldDispatch(intent) {
		s.dispatcher.Deliver(ctx, intent, models.EventCompleted)
	}
}

func (s *IntentService) onCompleted(ctx context.Context, intent models.PaymentIntent, trigger string) {
	telemetry.IntentTransitions.WithLabelValues(string(models.StatusCompleted), trigger).Inc()
	telemetry.Logger.Info("Payment state transition",
		zap.String("payment_id", intent.ID),
		zap.String("from_state", string(models.StatusPending)),
		zap.String("to_state", string(models.StatusCompleted)),
		zap.String("trigger", trigger),
	)
	s.publish(ctx, intent.ID, models.StatusPending, models.StatusCompleted, trigger)
}

func (s *IntentService) shouldDispatch(intent models.PaymentIntent) bool {
	return intent.CallbackURL != "" && s.dispatcher != nil
}

func (s *IntentService) publish(ctx context.Context, id string, from, to models.IntentStatus, trigger string) {
	err := s.publisher.Publish(ctx, models.StateChangeEvent{
		PaymentID:     id,
		State:         to,
		PreviousState: from,
		Trigger:       trigger,
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		telemetry.Logger.Debug("State change not fully published",
			zap.String("payment_id", id),
			zap.Error(err),
		)
	}
}
