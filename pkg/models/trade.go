package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeEvent is a synthetic trade as published to the broker topic.
type TradeEvent struct {
	ID       int64
	Ticker   string
	Price    decimal.Decimal
	Quantity int64
}

// tradeEventJSON is the topic value layout. Price goes out as a bare JSON
// number because the grid mapping declares it DECIMAL.
type tradeEventJSON struct {
	ID       int64       `json:"id"`
	Ticker   string      `json:"ticker"`
	Price    json.Number `json:"price"`
	Quantity int64       `json:"qty"`
}

func (t TradeEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeEventJSON{
		ID:       t.ID,
		Ticker:   t.Ticker,
		Price:    json.Number(t.Price.String()),
		Quantity: t.Quantity,
	})
}

func (t *TradeEvent) UnmarshalJSON(b []byte) error {
	var raw tradeEventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	price, err := decimal.NewFromString(raw.Price.String())
	if err != nil {
		return err
	}
	*t = TradeEvent{ID: raw.ID, Ticker: raw.Ticker, Price: price, Quantity: raw.Quantity}
	return nil
}

// MaterializedTrade is a row of the trade_map, the result of joining a
// TradeEvent with its StockReference.
type MaterializedTrade struct {
	ID       int64
	Ticker   string
	Name     string
	Price    decimal.Decimal
	Quantity int64
}

// Notification turns the row into the event pushed to subscribers.
func (m MaterializedTrade) Notification() TradeNotification {
	price, _ := m.Price.Float64()
	return TradeNotification{
		ID:       m.ID,
		Ticker:   m.Ticker,
		Name:     m.Name,
		Quantity: m.Quantity,
		Price:    price,
		Up:       true,
		Delta:    0,
	}
}

// TradeNotification is the event relayed to every connected subscriber.
// Up and Delta are reserved for a comparison with the previous close, which
// this demo does not have; they are always true and 0.
type TradeNotification struct {
	ID       int64
	Ticker   string
	Name     string
	Quantity int64
	Price    float64
	Up       bool
	Delta    float64
}

// MarshalJSON encodes the notification positionally:
// [id, ticker, name, qty, price, up, delta].
func (n TradeNotification) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{n.ID, n.Ticker, n.Name, n.Quantity, n.Price, n.Up, n.Delta})
}

func (n *TradeNotification) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if len(fields) != 7 {
		return fmt.Errorf("trade notification: expected 7 fields, got %d", len(fields))
	}
	targets := []any{&n.ID, &n.Ticker, &n.Name, &n.Quantity, &n.Price, &n.Up, &n.Delta}
	for i, f := range fields {
		if err := json.Unmarshal(f, targets[i]); err != nil {
			return err
		}
	}
	return nil
}
