package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/clock"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/demo"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/gateway"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/hub"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/metrics"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/relay"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/repository"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo and serve the live trades page",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Config and logger
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	// 3. Redis: relay bus and recent trades
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(cmd.Context()).Err(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		return err
	}

	store := repository.NewRedisStore(rdb, cfg.Redis.Channel, cfg.Redis.RecentKey)
	defer store.Close()
	readyCtx, cancelReady := context.WithTimeout(cmd.Context(), 5*time.Second)
	err = store.Ready(readyCtx)
	cancelReady()
	if err != nil {
		logger.Error("Failed to subscribe to trade channel", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Hub
	wsHub := hub.NewHub(store, logger.Named("hub"))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		wsHub.Run(ctx)
	}()

	// 5. Demo session
	session := demo.NewSession(
		logger.Named("demo"),
		demo.Options{
			SetupTimeout: cfg.Demo.SetupTimeout,
			FeedInterval: cfg.Demo.FeedInterval,
			PollInterval: cfg.Demo.PollInterval,
			RawStream:    cfg.Demo.RawStream,
		},
		brokerFactory(cfg, logger),
		gridConnector(cfg, logger),
		relay.NewRedisRelay(logger.Named("relay"), rdb, cfg.Redis.Channel, cfg.Redis.RecentKey, cfg.Redis.RecentSize),
		clock.RealClock{},
		newRand(),
	)

	// 6. HTTP
	mux := http.NewServeMux()
	mux.Handle("/", web.Handler())
	mux.Handle("/trades", gateway.Handler(ctx, wsHub, logger.Named("gateway")))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"state":   session.State(),
			"clients": wsHub.ClientCount(),
		})
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux}
	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP Error", zap.Error(err))
			stop()
		}
	}()

	if err := session.Start(ctx); err != nil {
		return err
	}

	// 7. Wait for Shutdown Signal
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()

	session.Stop(stopCtx)

	if err := srv.Shutdown(stopCtx); err != nil {
		logger.Error("Error shutting down HTTP server", zap.Error(err))
	}
	wsHub.Shutdown()
	wg.Wait()

	logger.Info("Shutdown Complete")
	return nil
}
