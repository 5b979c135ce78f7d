package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
)

type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher accepts either a redis:// URL or a bare host:port.
func NewRedisPublisher(addr string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.StateChangeEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Topic, data).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
