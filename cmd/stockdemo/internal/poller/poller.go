package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/clock"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/metrics"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// Relay delivers a notification to subscribers.
type Relay interface {
	Relay(ctx context.Context, n models.TradeNotification) error
}

// Watermark is the highest trade id already relayed. The zero value means
// nothing was seen yet.
type Watermark struct {
	ID    int64
	Valid bool
}

// Advance never moves the watermark backwards.
func (w Watermark) Advance(id int64) Watermark {
	if !w.Valid || id > w.ID {
		return Watermark{ID: id, Valid: true}
	}
	return w
}

// Poller relays new trade_map rows to subscribers. The map has no change
// feed, so it is re-queried every Interval.
type Poller struct {
	logger  *zap.Logger
	querier grid.Querier
	relay   Relay
	clock   clock.Clock

	mu        sync.Mutex
	watermark Watermark

	Interval time.Duration
	// MaxQueryFailures is how many consecutive failed queries are tolerated,
	// e.g. "mapping not found" while the map is being recreated.
	MaxQueryFailures int
}

func New(logger *zap.Logger, querier grid.Querier, relay Relay, clk clock.Clock) *Poller {
	return &Poller{
		logger:           logger,
		querier:          querier,
		relay:            relay,
		clock:            clk,
		Interval:         time.Second,
		MaxQueryFailures: 3,
	}
}

func (p *Poller) Watermark() Watermark {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark
}

// Run polls until ctx is done or the query keeps failing.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Poller Started", zap.Duration("interval", p.Interval))

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := p.PollOnce(ctx)
		switch {
		case err == nil:
			failures = 0
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			failures++
			p.logger.Warn("trade_map query failed", zap.Int("consecutive", failures), zap.Error(err))
			if failures >= p.MaxQueryFailures {
				return fmt.Errorf("poller: %d consecutive query failures: %w", failures, err)
			}
		}

		if err := p.clock.Sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
}

// PollOnce relays every row newer than the watermark and returns how many
// were relayed. Bad rows are logged and skipped; only query and cursor
// errors are returned.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	wm := p.Watermark()
	query, params := grid.TradeMapQuery(wm.ID, wm.Valid)

	rows, err := p.querier.Query(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	relayed := 0
	for {
		if err := ctx.Err(); err != nil {
			return relayed, err
		}

		row, ok, err := rows.Next()
		if err != nil {
			return relayed, err
		}
		if !ok {
			return relayed, nil
		}

		trade, err := grid.DecodeTradeMapRow(row)
		if err != nil {
			metrics.RowErrors.WithLabelValues(grid.TradeMap, "decode").Inc()
			p.logger.Error("trade_map row skipped", zap.Error(err))
			// Move past the row anyway so it is not re-read every cycle.
			if id, idErr := grid.RowID(row); idErr == nil {
				p.advance(id)
			}
			continue
		}

		p.logger.Info("trade_map",
			zap.Int64("id", trade.ID),
			zap.String("ticker", trade.Ticker),
			zap.String("name", trade.Name),
			zap.String("price", grid.FormatPrice(trade.Price)),
			zap.Int64("qty", trade.Quantity),
		)

		if err := p.relay.Relay(ctx, trade.Notification()); err != nil {
			if errors.Is(err, context.Canceled) {
				return relayed, err
			}
			metrics.RowErrors.WithLabelValues(grid.TradeMap, "relay").Inc()
			p.logger.Error("relay failed", zap.Int64("id", trade.ID), zap.Error(err))
			continue
		}

		relayed++
		metrics.TradesRelayed.Inc()
		p.advance(trade.ID)
	}
}

func (p *Poller) advance(id int64) {
	p.mu.Lock()
	p.watermark = p.watermark.Advance(id)
	wm := p.watermark.ID
	p.mu.Unlock()
	metrics.Watermark.Set(float64(wm))
}
