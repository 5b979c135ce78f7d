package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
)

const (
	HeaderEvent     = "X-Payment-Event"
	HeaderSignature = "X-Payment-Signature"

	payloadVersion = "v2"
)

type Options struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryWait   time.Duration
	AuthToken   string
}

// Dispatcher signs and POSTs completion notifications. A failed delivery is
// reported in the outcome and logged; it never touches the intent itself.
type Dispatcher struct {
	client    *resty.Client
	signer    *Signer
	authToken string
}

func NewDispatcher(signer *Signer, opts Options) (*Dispatcher, error) {
	if signer == nil {
		return nil, models.ErrMisconfiguredSecret
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}

	client := resty.New().
		SetLogger(telemetry.Logger.Sugar()).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxAttempts - 1).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(8 * opts.RetryWait).
		AddRetryCondition(shouldRetry)

	return &Dispatcher{
		client:    client,
		signer:    signer,
		authToken: opts.AuthToken,
	}, nil
}

func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (d *Dispatcher) Deliver(ctx context.Context, intent models.PaymentIntent, event string) models.DeliveryOutcome {
	outcome := models.DeliveryOutcome{PaymentID: intent.ID, URL: intent.CallbackURL}
	if intent.CallbackURL == "" {
		outcome.Status = models.DeliverySkipped
		return outcome
	}

	ctx, span := telemetry.Tracer.Start(ctx, "webhook.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.id", intent.ID),
		attribute.String("webhook.event", event),
	)

	raw, err := json.Marshal(payloadFor(intent, event))
	if err != nil {
		return d.fail(span, outcome, fmt.Errorf("%w: encode payload: %v", models.ErrDeliveryFailed, err))
	}

	req := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderEvent, event).
		SetHeader(HeaderSignature, d.signer.Sign(raw)).
		SetBody(raw)
	if d.authToken != "" {
		req.SetAuthToken(d.authToken)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := req.Post(intent.CallbackURL)
	telemetry.WebhookDeliveryDuration.Observe(time.Since(start).Seconds())

	outcome.Attempts = 1
	if resp != nil {
		outcome.StatusCode = resp.StatusCode()
		if resp.Request != nil && resp.Request.Attempt > 0 {
			outcome.Attempts = resp.Request.Attempt
		}
	}
	span.SetAttributes(
		attribute.Int("webhook.attempts", outcome.Attempts),
		attribute.Int("http.status_code", outcome.StatusCode),
	)

	if err != nil {
		return d.fail(span, outcome, fmt.Errorf("%w: %v", models.ErrDeliveryFailed, err))
	}
	if !resp.IsSuccess() {
		return d.fail(span, outcome, fmt.Errorf("%w: callback responded %d", models.ErrDeliveryFailed, outcome.StatusCode))
	}

	outcome.Status = models.DeliveryDelivered
	telemetry.WebhookDeliveries.WithLabelValues(string(outcome.Status)).Inc()
	telemetry.Logger.Info("Webhook delivered",
		zap.String("payment_id", intent.ID),
		zap.String("url", intent.CallbackURL),
		zap.Int("status", outcome.StatusCode),
		zap.Int("attempts", outcome.Attempts),
	)
	return outcome
}

func (d *Dispatcher) fail(span trace.Span, outcome models.DeliveryOutcome, err error) models.DeliveryOutcome {
	outcome.Status = models.DeliveryFailed
	outcome.Err = err
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	telemetry.WebhookDeliveries.WithLabelValues(string(outcome.Status)).Inc()
	telemetry.Logger.Warn("Webhook delivery failed",
		zap.String("payment_id", outcome.PaymentID),
		zap.String("url", outcome.URL),
		zap.Int("status", outcome.StatusCode),
		zap.Int("attempts", outcome.Attempts),
		zap.Error(err),
	)
	return outcome
}

func payloadFor(intent models.PaymentIntent, event string) models.WebhookPayload {
	return models.WebhookPayload{
		Version:          payloadVersion,
		Event:            event,
		PaymentID:        intent.ID,
		OrderRef:         intent.OrderRef,
		CorrelationToken: intent.CorrelationToken,
		UserID:           intent.UserID,
		Amount:           intent.Amount,
		Method:           intent.Method,
		Status:           intent.Status,
		CreatedAt:        intent.CreatedAt,
		CompletedAt:      intent.CompletedAt,
	}
}
