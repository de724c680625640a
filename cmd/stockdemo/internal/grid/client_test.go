package grid_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/testutils"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

func newClient(engine grid.Engine) *grid.Client {
	return grid.NewClient(zap.NewNop(), engine, "trades", "kafka:9092", models.Stocks)
}

// prefixes shortens statements to their first line for order assertions.
func prefixes(stmts []string) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = strings.TrimSuffix(strings.SplitN(s, "\n", 2)[0], " (")
	}
	return out
}

func TestInitialize_Order(t *testing.T) {
	fake := testutils.NewFakeGrid()
	require.NoError(t, newClient(fake).Initialize(context.Background()))

	assert.Equal(t, []string{
		"CREATE OR REPLACE MAPPING trades",
		"DESTROY companies",
		"CREATE OR REPLACE MAPPING companies",
		"PUTALL companies",
		"DESTROY trade_map",
		"CREATE OR REPLACE MAPPING trade_map",
		"DROP JOB IF EXISTS ingest_trades",
		"CREATE JOB ingest_trades AS",
	}, prefixes(fake.Statements()))

	assert.True(t, fake.JobRunning())
	goog, ok := fake.Company("GOOG")
	require.True(t, ok)
	assert.Equal(t, models.StockReference{Ticker: "GOOG", Name: "Google", MarketCap: 1.2345}, goog)
}

func TestInitialize_TradesMappingUsesBroker(t *testing.T) {
	fake := testutils.NewFakeGrid()
	require.NoError(t, newClient(fake).Initialize(context.Background()))

	mapping := fake.Statements()[0]
	assert.Contains(t, mapping, "TYPE Kafka")
	assert.Contains(t, mapping, "'valueFormat' = 'json-flat'")
	assert.Contains(t, mapping, "'bootstrap.servers' = 'kafka:9092'")
	assert.NotContains(t, mapping, "EXTERNAL NAME")
}

func TestInitialize_CustomTopic(t *testing.T) {
	fake := testutils.NewFakeGrid()
	c := grid.NewClient(zap.NewNop(), fake, "demo-trades", "kafka:9092", models.Stocks)
	require.NoError(t, c.Initialize(context.Background()))

	assert.Contains(t, fake.Statements()[0], `trades EXTERNAL NAME "demo-trades"`)
}

func TestInitialize_ResetsTradeMap(t *testing.T) {
	fake := testutils.NewFakeGrid()
	c := newClient(fake)
	require.NoError(t, c.Initialize(context.Background()))
	fake.Ingest(models.TradeEvent{ID: 1, Ticker: "GOOG"})

	size, err := c.MapSize(context.Background(), grid.TradeMap)
	require.NoError(t, err)
	require.Equal(t, 1, size)

	require.NoError(t, c.Initialize(context.Background()))
	size, err = c.MapSize(context.Background(), grid.TradeMap)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestInitialize_EveryStepIsFatal(t *testing.T) {
	steps := map[string]string{
		"MAPPING trades":    "create trades mapping",
		"DESTROY companies": "destroy companies map",
		"MAPPING companies": "create companies mapping",
		"PUTALL companies":  "load companies",
		"DESTROY trade_map": "destroy trade_map map",
		"MAPPING trade_map": "create trade_map mapping",
		"DROP JOB":          "drop job ingest_trades",
		"CREATE JOB":        "create job ingest_trades",
	}
	for key, want := range steps {
		t.Run(key, func(t *testing.T) {
			fake := testutils.NewFakeGrid()
			fake.FailOn[key] = errors.New("boom")

			err := newClient(fake).Initialize(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
			assert.False(t, fake.JobRunning())
		})
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := grid.NewClient(zap.NewNop(), nil, "trades", "kafka:9092", models.Stocks)

	assert.ErrorIs(t, c.Initialize(context.Background()), grid.ErrNotConnected)
	_, err := c.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, grid.ErrNotConnected)
	assert.NoError(t, c.Close(context.Background()))
}

func TestClient_Close(t *testing.T) {
	fake := testutils.NewFakeGrid()
	require.NoError(t, newClient(fake).Close(context.Background()))
	assert.True(t, fake.IsShutdown())
}
