package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/protocol"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// RedisClient abstracts the output storage connection
type RedisClient interface {
	Pipeline() redis.Pipeliner
}

// RedisRelay hands notifications to the gateway through Redis: the payload
// is published on a channel and kept in a capped list for late joiners.
type RedisRelay struct {
	logger     *zap.Logger
	rdb        RedisClient
	channel    string
	recentKey  string
	recentSize int64
}

func NewRedisRelay(logger *zap.Logger, rdb RedisClient, channel, recentKey string, recentSize int) *RedisRelay {
	return &RedisRelay{
		logger:     logger,
		rdb:        rdb,
		channel:    channel,
		recentKey:  recentKey,
		recentSize: int64(recentSize),
	}
}

func (r *RedisRelay) Relay(ctx context.Context, n models.TradeNotification) error {
	payload, err := json.Marshal(protocol.NewTradeMessage(n))
	if err != nil {
		return fmt.Errorf("marshal notification %d: %w", n.ID, err)
	}

	// LPUSH + LTRIM + PUBLISH in one round trip
	pipe := r.rdb.Pipeline()
	pipe.LPush(ctx, r.recentKey, payload)
	pipe.LTrim(ctx, r.recentKey, 0, r.recentSize-1)
	pipe.Publish(ctx, r.channel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline for trade %d: %w", n.ID, err)
	}

	r.logger.Debug("Relayed", zap.Int64("id", n.ID), zap.String("channel", r.channel))
	return nil
}

// Func adapts a plain function to the poller's relay.
type Func func(ctx context.Context, n models.TradeNotification) error

func (f Func) Relay(ctx context.Context, n models.TradeNotification) error { return f(ctx, n) }
