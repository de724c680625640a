package grid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazelcast/hazelcast-go-client/serialization"
	"github.com/hazelcast/hazelcast-go-client/types"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/pkg/config"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

var ErrNotConnected = errors.New("grid client is not connected")

// Client is the grid side of a demo session.
type Client struct {
	logger           *zap.Logger
	engine           Engine
	topic            string
	bootstrapServers string
	stocks           []models.StockReference
}

// NewClient wraps a connected engine. topic and bootstrapServers describe
// the Kafka topic the streaming job reads from.
func NewClient(logger *zap.Logger, engine Engine, topic, bootstrapServers string, stocks []models.StockReference) *Client {
	return &Client{
		logger:           logger,
		engine:           engine,
		topic:            topic,
		bootstrapServers: bootstrapServers,
		stocks:           stocks,
	}
}

// Initialize resets the grid side of the pipeline. Every step is fatal: a
// half-initialized pipeline is never trusted.
func (c *Client) Initialize(ctx context.Context) error {
	if c.engine == nil {
		return ErrNotConnected
	}

	c.logger.Info("Create TRADES mapping")
	if err := c.engine.Exec(ctx, createTradesMapping(c.topic, c.bootstrapServers)); err != nil {
		return fmt.Errorf("create %s mapping: %w", TradesMapping, err)
	}

	// Replacing a mapping does not purge the underlying map, so destroy it first.
	c.logger.Info("Create COMPANIES mapping")
	if err := c.engine.DestroyMap(ctx, CompaniesMap); err != nil {
		return fmt.Errorf("destroy %s map: %w", CompaniesMap, err)
	}
	if err := c.engine.Exec(ctx, createCompaniesMapping); err != nil {
		return fmt.Errorf("create %s mapping: %w", CompaniesMap, err)
	}

	c.logger.Info("Insert COMPANIES data", zap.Int("count", len(c.stocks)))
	entries, err := companyEntries(c.stocks)
	if err != nil {
		return err
	}
	if err := c.engine.PutAll(ctx, CompaniesMap, entries); err != nil {
		return fmt.Errorf("load %s: %w", CompaniesMap, err)
	}

	c.logger.Info("Create TRADE_MAP mapping")
	if err := c.engine.DestroyMap(ctx, TradeMap); err != nil {
		return fmt.Errorf("destroy %s map: %w", TradeMap, err)
	}
	if err := c.engine.Exec(ctx, createTradeMapMapping); err != nil {
		return fmt.Errorf("create %s mapping: %w", TradeMap, err)
	}

	c.logger.Info("Create INGEST_TRADES job")
	if err := c.engine.Exec(ctx, dropIngestTrades); err != nil {
		return fmt.Errorf("drop job %s: %w", IngestTradesJob, err)
	}
	if err := c.engine.Exec(ctx, createIngestTradesJob); err != nil {
		return fmt.Errorf("create job %s: %w", IngestTradesJob, err)
	}

	c.logger.Info("Hazelcast has been initialized")
	return nil
}

// Connect dials the cluster and returns a Client bound to the demo topic.
func Connect(ctx context.Context, cfg *config.Config, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("hazelcast")
	engine, err := Dial(ctx, cfg.Hazelcast, timeout, logger)
	if err != nil {
		return nil, err
	}
	return NewClient(logger, engine, cfg.Kafka.Topic, cfg.Kafka.Addr(), models.Stocks), nil
}

func (c *Client) Query(ctx context.Context, query string, params ...interface{}) (Rows, error) {
	if c.engine == nil {
		return nil, ErrNotConnected
	}
	return c.engine.Query(ctx, query, params...)
}

func (c *Client) MapSize(ctx context.Context, name string) (int, error) {
	if c.engine == nil {
		return 0, ErrNotConnected
	}
	return c.engine.MapSize(ctx, name)
}

func (c *Client) Close(ctx context.Context) error {
	if c.engine == nil {
		return nil
	}
	return c.engine.Shutdown(ctx)
}

// companyEntries renders the reference list as ticker -> JSON document.
func companyEntries(stocks []models.StockReference) ([]types.Entry, error) {
	entries := make([]types.Entry, 0, len(stocks))
	for _, s := range stocks {
		doc, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal company %s: %w", s.Ticker, err)
		}
		entries = append(entries, types.Entry{Key: s.Ticker, Value: serialization.JSON(doc)})
	}
	return entries, nil
}
