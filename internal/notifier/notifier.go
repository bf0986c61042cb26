package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"vrflottery/internal/models"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"
)

// envelope is the wire format of a published event.
type envelope struct {
	Type    string              `json:"type"`
	Payload models.LotteryEvent `json:"payload"`
}

func encode(event models.LotteryEvent) ([]byte, error) {
	data, err := json.Marshal(envelope{Type: event.EventType(), Payload: event})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.EventType(), err)
	}
	return data, nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events to a Redis channel.
type RedisNotifier struct {
	client  publisher
	closer  func() error
	channel string
}

// NewRedisNotifier connects to the Redis server at addr and checks it answers.
func NewRedisNotifier(addr, channel string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisNotifier{client: client, closer: client.Close, channel: channel}, nil
}

// Publish sends event as a JSON envelope.
func (n *RedisNotifier) Publish(ctx context.Context, event models.LotteryEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType(), err)
	}
	return nil
}

// Close releases the Redis connection.
func (n *RedisNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}

// LogNotifier writes events to the log when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Publish(_ context.Context, event models.LotteryEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	logger.Infof("event %s", data)
	return nil
}

func (LogNotifier) Close() error { return nil }
