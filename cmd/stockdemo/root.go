package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/broker"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/demo"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/feed"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "stockdemo",
	Short: "Kafka + Hazelcast streaming SQL stock trades demo",
	Long: `Generates synthetic stock trades into a Kafka topic, joins them against
reference data with a Hazelcast streaming SQL job and pushes the
materialized trades to browsers in real time.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, smokeCmd)
}

// setup loads the configuration and builds the logger every command uses.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newRand() feed.Rand {
	return feed.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func brokerFactory(cfg *config.Config, logger *zap.Logger) demo.BrokerFactory {
	return func() demo.Broker {
		return broker.New(cfg.Kafka, logger)
	}
}

func gridConnector(cfg *config.Config, logger *zap.Logger) demo.GridConnector {
	return func(ctx context.Context, timeout time.Duration) (demo.Grid, error) {
		client, err := grid.Connect(ctx, cfg, timeout, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
