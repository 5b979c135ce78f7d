package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
)

// natsConn is the part of *nats.Conn the publisher needs.
type natsConn interface {
	Publish(subj string, data []byte) error
	Flush() error
	Close()
}

type NATSPublisher struct {
	conn natsConn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("payment-intents"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, event models.StateChangeEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(Topic, data)
}

// Close waits for the server to acknowledge everything published so far, then
// closes the connection.
func (p *NATSPublisher) Close() error {
	defer p.conn.Close()
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("flush NATS: %w", err)
	}
	return nil
}
