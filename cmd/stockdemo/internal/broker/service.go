package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/clock"
	"github.com/shubham-shewale/stock-demo/pkg/config"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// Service is the broker side of a demo session: topic administration plus
// the trade producer.
type Service struct {
	admin    *Admin
	producer *Producer
}

func NewService(admin *Admin, producer *Producer) *Service {
	return &Service{admin: admin, producer: producer}
}

// New wires a Service against a real broker. Nothing connects until the
// first call.
func New(cfg config.KafkaConfig, logger *zap.Logger) *Service {
	logger = logger.Named("kafka")
	addr := cfg.Addr()

	dialer := &RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 10 * time.Second}}
	client := &kafka.Client{Addr: kafka.TCP(addr), Timeout: 10 * time.Second}

	admin := NewAdmin(logger, dialer, client, clock.RealClock{}, addr, cfg.Topic)
	if cfg.PurgeWait > 0 {
		admin.PurgeWait = cfg.PurgeWait
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(addr),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		// One trade per second: flush each message instead of waiting for a batch.
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}

	return NewService(admin, NewProducer(logger, writer))
}

func (s *Service) EnsureTopic(ctx context.Context) error { return s.admin.EnsureTopic(ctx) }
func (s *Service) PurgeTopic(ctx context.Context) error  { return s.admin.PurgeTopic(ctx) }

func (s *Service) Publish(ctx context.Context, trade models.TradeEvent) error {
	return s.producer.Publish(ctx, trade)
}

// Close flushes and closes the producer.
func (s *Service) Close() error {
	return s.producer.Close()
}
