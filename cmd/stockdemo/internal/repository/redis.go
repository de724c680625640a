package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Compile-time check to ensure RedisStore implements TradeStore
var _ TradeStore = (*RedisStore)(nil)

type RedisStore struct {
	client    *redis.Client
	pubsub    *redis.PubSub
	recentKey string
}

// NewRedisStore subscribes to channel right away so nothing published after
// construction is missed.
func NewRedisStore(client *redis.Client, channel, recentKey string) *RedisStore {
	return &RedisStore{
		client:    client,
		pubsub:    client.Subscribe(context.Background(), channel),
		recentKey: recentKey,
	}
}

// Ready waits for the subscription to be confirmed by the server.
func (r *RedisStore) Ready(ctx context.Context) error {
	_, err := r.pubsub.Receive(ctx)
	return err
}

// Recent reads the capped list (LRANGE). The relay pushes on the left, so
// the list is reversed to return the oldest payload first.
func (r *RedisStore) Recent(ctx context.Context) ([]string, error) {
	values, err := r.client.LRange(ctx, r.recentKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values, nil
}

func (r *RedisStore) RunPubSub(ctx context.Context, onMessage func(payload string)) {
	ch := r.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			onMessage(msg.Payload)
		}
	}
}

// Close releases the subscription only; the client belongs to the caller.
func (r *RedisStore) Close() error {
	return r.pubsub.Close()
}
