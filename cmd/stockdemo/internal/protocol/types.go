package protocol

import (
	"encoding/json"

	"github.com/shubham-shewale/stock-demo/pkg/models"
)

const (
	TypeReceiveTrade = "ReceiveTrade"
	TypeError        = "error"

	ActionSnapshot = "snapshot"
)

// WSRequest is the only message a browser sends: a request to replay the
// recent trades.
type WSRequest struct {
	Action string `json:"action"`
}

// WSMessage is pushed to browsers. Args holds the positional trade fields
// [id, ticker, name, qty, price, up, delta].
type WSMessage struct {
	Type    string                    `json:"type"`
	Args    *models.TradeNotification `json:"args,omitempty"`
	Message string                    `json:"message,omitempty"`
}

func NewTradeMessage(n models.TradeNotification) WSMessage {
	return WSMessage{Type: TypeReceiveTrade, Args: &n}
}

// TradeID reads the trade id out of an encoded ReceiveTrade message.
func TradeID(payload []byte) (int64, bool) {
	var m WSMessage
	if err := json.Unmarshal(payload, &m); err != nil || m.Type != TypeReceiveTrade || m.Args == nil {
		return 0, false
	}
	return m.Args.ID, true
}
