package stream

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/metrics"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// Reader logs the raw trades as the grid sees them on the topic mapping.
type Reader struct {
	logger  *zap.Logger
	querier grid.Querier
	// OnTrade, if set, is called for every decoded row.
	OnTrade func(models.TradeEvent)
}

func NewReader(logger *zap.Logger, querier grid.Querier) *Reader {
	return &Reader{logger: logger, querier: querier}
}

// Run consumes the unbounded trades query until ctx is done. The cursor is
// closed on cancellation so a fetch blocked waiting for the next row returns.
func (r *Reader) Run(ctx context.Context) error {
	rows, err := r.querier.Query(ctx, grid.RawTradesQuery())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("stream: query %s: %w", grid.TradesMapping, err)
	}

	done := make(chan struct{})
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		select {
		case <-ctx.Done():
		case <-done:
		}
		rows.Close()
	}()
	defer func() {
		close(done)
		<-closed
	}()

	r.logger.Info("Reading trades stream")
	for {
		row, ok, err := rows.Next()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		if !ok {
			r.logger.Info("Trades stream ended")
			return nil
		}

		trade, err := grid.DecodeTradesRow(row)
		if err != nil {
			metrics.RowErrors.WithLabelValues(grid.TradesMapping, "decode").Inc()
			r.logger.Error("trades row skipped", zap.Error(err))
			continue
		}

		r.logger.Info("trades",
			zap.Int64("id", trade.ID),
			zap.String("ticker", trade.Ticker),
			zap.String("price", grid.FormatPrice(trade.Price)),
			zap.Int64("qty", trade.Quantity),
		)
		if r.OnTrade != nil {
			r.OnTrade(trade)
		}
	}
}
