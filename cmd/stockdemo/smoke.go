package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/broker"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/clock"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/feed"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/poller"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/relay"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/stream"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

var smokeCount int

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run the pipeline once from the console and print what the grid sees",
	RunE:  runSmoke,
}

func init() {
	smokeCmd.Flags().IntVar(&smokeCount, "count", 10, "trades to publish per burst")
}

func runSmoke(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	setupCtx, cancelSetup := context.WithTimeout(ctx, cfg.Demo.SetupTimeout)
	defer cancelSetup()

	b := broker.New(cfg.Kafka, logger)
	defer b.Close()
	if err := b.EnsureTopic(setupCtx); err != nil {
		return err
	}
	if err := b.PurgeTopic(setupCtx); err != nil {
		return err
	}

	g, err := grid.Connect(setupCtx, cfg, cfg.Demo.SetupTimeout, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := g.Close(closeCtx); err != nil {
			logger.Warn("Error closing grid client", zap.Error(err))
		}
	}()
	if err := g.Initialize(setupCtx); err != nil {
		return err
	}
	cancelSetup()

	fmt.Fprintln(out, "Query trade_map...")
	if err := dumpTradeMap(ctx, g, logger, out); err != nil {
		return err
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	reader := stream.NewReader(logger.Named("stream"), g)
	reader.OnTrade = func(t models.TradeEvent) {
		fmt.Fprintf(out, "trades: %d %s %s %d\n", t.ID, t.Ticker, grid.FormatPrice(t.Price), t.Quantity)
	}
	streamDone := make(chan error, 1)
	go func() { streamDone <- reader.Run(streamCtx) }()

	clk := clock.RealClock{}
	gen := feed.NewGenerator(logger.Named("feed"), b, models.Tickers(), newRand(), clk)
	for i := 0; i < 2; i++ {
		if err := gen.Burst(ctx, smokeCount); err != nil {
			cancelStream()
			<-streamDone
			return err
		}
		if err := clk.Sleep(ctx, time.Second); err != nil {
			break
		}
	}

	cancelStream()
	<-streamDone

	fmt.Fprintln(out, "Query trade_map...")
	if err := dumpTradeMap(ctx, g, logger, out); err != nil {
		return err
	}

	for _, name := range []string{grid.TradeMap, grid.TradesMapping} {
		size, err := g.MapSize(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d entries\n", name, size)
	}
	return nil
}

// dumpTradeMap prints the whole of trade_map once.
func dumpTradeMap(ctx context.Context, q grid.Querier, logger *zap.Logger, out io.Writer) error {
	printer := relay.Func(func(_ context.Context, n models.TradeNotification) error {
		_, err := fmt.Fprintf(out, "trade_map: %d %s %s %.3f %d\n", n.ID, n.Ticker, n.Name, n.Price, n.Quantity)
		return err
	})
	n, err := poller.New(logger.Named("poller"), q, printer, clock.RealClock{}).PollOnce(ctx)
	if err != nil {
		return fmt.Errorf("query %s: %w", grid.TradeMap, err)
	}
	fmt.Fprintf(out, "%d rows\n", n)
	return nil
}
