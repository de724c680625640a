package repository

import (
	"context"
)

// TradeStore is the gateway's view of the relayed trades.
type TradeStore interface {
	// Recent returns the latest relayed payloads, oldest first.
	Recent(ctx context.Context) ([]string, error)
	// RunPubSub blocks, calling onMessage for every relayed payload, until
	// ctx is done or the subscription is closed.
	RunPubSub(ctx context.Context, onMessage func(payload string))
	Close() error
}
