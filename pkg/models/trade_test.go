package models_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/stock-demo/pkg/models"
)

func TestTradeEvent_JSONLayout(t *testing.T) {
	trade := models.TradeEvent{ID: 7, Ticker: "GOOG", Price: decimal.RequireFromString("101.25"), Quantity: 300}

	b, err := json.Marshal(trade)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"ticker":"GOOG","price":101.25,"qty":300}`, string(b))

	var back models.TradeEvent
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, trade.Price.Equal(back.Price))
	assert.Equal(t, trade.ID, back.ID)
	assert.Equal(t, trade.Quantity, back.Quantity)
}

func TestTradeEvent_RejectsNonNumericPrice(t *testing.T) {
	var trade models.TradeEvent
	err := json.Unmarshal([]byte(`{"id":1,"ticker":"GOOG","price":"abc","qty":1}`), &trade)
	assert.Error(t, err)
}

func TestTradeNotification_Positional(t *testing.T) {
	n := models.MaterializedTrade{
		ID: 1, Ticker: "GOOG", Name: "Google", Price: decimal.RequireFromString("100.5"), Quantity: 20,
	}.Notification()

	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `[1,"GOOG","Google",20,100.5,true,0]`, string(b))

	var back models.TradeNotification
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, n, back)
}

func TestTradeNotification_WrongArity(t *testing.T) {
	var n models.TradeNotification
	err := json.Unmarshal([]byte(`[1,"GOOG","Google",20,100.5]`), &n)
	assert.ErrorContains(t, err, "expected 7 fields")
}

func TestTickers(t *testing.T) {
	assert.Equal(t, []string{"GOOG", "APPL"}, models.Tickers())
}
