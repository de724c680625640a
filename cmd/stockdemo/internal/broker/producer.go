package broker

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/metrics"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// Producer publishes trade events to the topic the writer is bound to.
type Producer struct {
	logger *zap.Logger
	writer KafkaWriter
}

func NewProducer(logger *zap.Logger, writer KafkaWriter) *Producer {
	return &Producer{logger: logger, writer: writer}
}

// Publish writes one trade synchronously. Failures are returned as-is and
// not retried here.
func (p *Producer) Publish(ctx context.Context, trade models.TradeEvent) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade %d: %w", trade.ID, err)
	}

	p.logger.Info("Send to Kafka",
		zap.Int64("id", trade.ID),
		zap.String("ticker", trade.Ticker),
		zap.Int64("qty", trade.Quantity),
		zap.String("price", trade.Price.Truncate(3).StringFixed(3)),
	)

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   TradeKey(trade.ID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publish trade %d: %w", trade.ID, err)
	}
	metrics.TradesPublished.Inc()
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// TradeKey encodes the trade id as an 8-byte big-endian key.
func TradeKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}
