package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-intents/internal/interfaces"
	"github.com/akylbek/payment-system/payment-intents/internal/models"
	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
)

// Topic is the Kafka topic, NATS subject and Redis channel state changes go to.
const Topic = "payment.state.changed"

func encode(event models.StateChangeEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode state change for %s: %w", event.PaymentID, err)
	}
	return data, nil
}

type namedPublisher struct {
	name string
	pub  interfaces.EventPublisher
}

// FanOut publishes every event to all registered sinks. A failing sink is
// logged and does not stop the others.
type FanOut struct {
	sinks []namedPublisher
}

func NewFanOut() *FanOut {
	return &FanOut{}
}

func (f *FanOut) Add(name string, pub interfaces.EventPublisher) {
	f.sinks = append(f.sinks, namedPublisher{name: name, pub: pub})
}

func (f *FanOut) Len() int { return len(f.sinks) }

func (f *FanOut) Publish(ctx context.Context, event models.StateChangeEvent) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.pub.Publish(ctx, event); err != nil {
			telemetry.Logger.Warn("Failed to publish state change",
				zap.String("sink", s.name),
				zap.String("payment_id", event.PaymentID),
				zap.String("state", string(event.State)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (f *FanOut) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.pub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
