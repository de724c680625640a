package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/clock"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

const (
	MinPrice    = 50
	PriceRange  = 100
	MinQuantity = 20
	MaxQuantity = 1000 // exclusive
)

var ErrNoTickers = errors.New("feed: no tickers to trade")

// Generator produces synthetic trades. It owns its id sequence: ids are
// unique for one Generator, not across processes.
type Generator struct {
	logger    *zap.Logger
	publisher Publisher
	tickers   []string
	rand      Rand
	clock     clock.Clock
	seq       atomic.Int64

	// Interval is the pause between two trades.
	Interval time.Duration
}

func NewGenerator(logger *zap.Logger, publisher Publisher, tickers []string, rnd Rand, clk clock.Clock) *Generator {
	return &Generator{
		logger:    logger,
		publisher: publisher,
		tickers:   tickers,
		rand:      rnd,
		clock:     clk,
		Interval:  time.Second,
	}
}

// Next builds the next trade: a uniform ticker, a whole number of cents in
// [50.00, 149.99] and a quantity in [20, 1000).
func (g *Generator) Next() (models.TradeEvent, error) {
	if len(g.tickers) == 0 {
		return models.TradeEvent{}, ErrNoTickers
	}

	ticker := g.tickers[g.rand.Intn(len(g.tickers))]
	cents := MinPrice*100 + g.rand.Intn(PriceRange*100)
	price := decimal.New(int64(cents), -2)
	qty := int64(MinQuantity + g.rand.Intn(MaxQuantity-MinQuantity))

	return models.TradeEvent{
		ID:       g.seq.Add(1),
		Ticker:   ticker,
		Price:    price,
		Quantity: qty,
	}, nil
}

// Run publishes one trade per Interval until ctx is done. A publish failure
// ends the loop and is returned.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("Generator Started", zap.Strings("tickers", g.tickers), zap.Duration("interval", g.Interval))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		trade, err := g.Next()
		if err != nil {
			return err
		}

		if err := g.publisher.Publish(ctx, trade); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: %w", err)
		}

		if err := g.clock.Sleep(ctx, g.Interval); err != nil {
			return err
		}
	}
}

// Burst publishes n trades back to back.
func (g *Generator) Burst(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		trade, err := g.Next()
		if err != nil {
			return err
		}
		if err := g.publisher.Publish(ctx, trade); err != nil {
			return fmt.Errorf("feed: trade %d: %w", trade.ID, err)
		}
	}
	return nil
}
