package broker_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/broker"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/testutils"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

func TestProducer_Publish(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	p := broker.NewProducer(zap.NewNop(), writer)

	trade := models.TradeEvent{ID: 42, Ticker: "GOOG", Price: decimal.RequireFromString("99.99"), Quantity: 500}
	require.NoError(t, p.Publish(context.Background(), trade))

	require.Len(t, writer.Messages, 1)
	msg := writer.Messages[0]
	assert.Equal(t, uint64(42), binary.BigEndian.Uint64(msg.Key))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &doc))
	assert.Equal(t, map[string]interface{}{"id": 42.0, "ticker": "GOOG", "price": 99.99, "qty": 500.0}, doc)
}

func TestProducer_PublishFailure(t *testing.T) {
	writer := &testutils.MockKafkaWriter{ShouldFail: true}
	p := broker.NewProducer(zap.NewNop(), writer)

	err := p.Publish(context.Background(), models.TradeEvent{ID: 1, Ticker: "GOOG"})
	assert.ErrorContains(t, err, "publish trade 1")
}

func TestTradeKey(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, broker.TradeKey(256))
}

func TestService_Close(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	admin := broker.NewAdmin(zap.NewNop(), &testutils.MockKafkaDialer{}, &testutils.MockConfigAlterer{}, &testutils.MockClock{}, "localhost:9092", "trades")
	svc := broker.NewService(admin, broker.NewProducer(zap.NewNop(), writer))

	require.NoError(t, svc.Close())
	assert.True(t, writer.Closed)
}
