package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/clock"
)

const (
	retentionKey      = "retention.ms"
	purgeRetention    = "100"
	infiniteRetention = "-1"
)

// Admin prepares the trades topic before a demo run.
type Admin struct {
	logger  *zap.Logger
	dialer  KafkaDialer
	configs ConfigAlterer
	clock   clock.Clock

	addr  string
	topic string

	// RetryInterval is the pause between two failed dials. There is no
	// overall limit: the broker is waited for until ctx is done.
	RetryInterval time.Duration
	// PurgeWait is how long the short retention stays in place. The broker
	// gives no acknowledgment that segments were deleted, so this is best effort.
	PurgeWait time.Duration
	// ReadyPolls bounds how many times a fresh topic is checked for partitions.
	ReadyPolls int
}

func NewAdmin(logger *zap.Logger, dialer KafkaDialer, configs ConfigAlterer, clk clock.Clock, addr, topic string) *Admin {
	return &Admin{
		logger:        logger,
		dialer:        dialer,
		configs:       configs,
		clock:         clk,
		addr:          addr,
		topic:         topic,
		RetryInterval: 2 * time.Second,
		PurgeWait:     4 * time.Second,
		ReadyPolls:    5,
	}
}

// Topic is the name of the managed topic.
func (a *Admin) Topic() string { return a.topic }

// EnsureTopic creates the topic with a single partition if it does not exist yet.
func (a *Admin) EnsureTopic(ctx context.Context) error {
	conn, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	exists, err := a.topicExists(conn)
	if err != nil {
		return fmt.Errorf("read partitions of %q: %w", a.topic, err)
	}
	if exists {
		a.logger.Info("Kafka topic exists", zap.String("topic", a.topic))
		return nil
	}

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := a.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", controllerAddr, err)
	}
	defer controllerConn.Close()

	a.logger.Info("Create Kafka topic", zap.String("topic", a.topic))
	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             a.topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", a.topic, err)
	}

	return a.waitForTopic(ctx, conn)
}

// PurgeTopic drops the retained messages by shortening retention for
// PurgeWait, then restores infinite retention.
func (a *Admin) PurgeTopic(ctx context.Context) error {
	a.logger.Info("Purge Kafka topic", zap.String("topic", a.topic))

	if err := a.setRetention(ctx, purgeRetention); err != nil {
		return err
	}

	if err := a.clock.Sleep(ctx, a.PurgeWait); err != nil {
		return err
	}

	if err := a.setRetention(ctx, infiniteRetention); err != nil {
		return err
	}

	a.logger.Info("Kafka topic has been purged", zap.String("topic", a.topic))
	return nil
}

func (a *Admin) setRetention(ctx context.Context, value string) error {
	resp, err := a.configs.AlterConfigs(ctx, &kafka.AlterConfigsRequest{
		Resources: []kafka.AlterConfigRequestResource{{
			ResourceType: kafka.ResourceTypeTopic,
			ResourceName: a.topic,
			Configs: []kafka.AlterConfigRequestConfig{{
				Name:  retentionKey,
				Value: value,
			}},
		}},
	})
	if err != nil {
		return fmt.Errorf("alter %s=%s on %q: %w", retentionKey, value, a.topic, err)
	}
	for res, resErr := range resp.Errors {
		if resErr != nil {
			return fmt.Errorf("alter %s=%s on %q: %w", retentionKey, value, res.Name, resErr)
		}
	}
	return nil
}

// dial blocks until the broker accepts a connection or ctx is done.
func (a *Admin) dial(ctx context.Context) (KafkaConn, error) {
	a.logger.Info("Connect to Kafka", zap.String("addr", a.addr))
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conn, err := a.dialer.DialContext(ctx, "tcp", a.addr)
		if err == nil {
			return conn, nil
		}
		a.logger.Warn("Kafka not reachable yet", zap.String("addr", a.addr), zap.Int("attempt", attempt), zap.Error(err))
		if err := a.clock.Sleep(ctx, a.RetryInterval); err != nil {
			return nil, err
		}
	}
}

func (a *Admin) topicExists(conn KafkaConn) (bool, error) {
	partitions, err := conn.ReadPartitions(a.topic)
	if errors.Is(err, kafka.UnknownTopicOrPartition) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(partitions) > 0, nil
}

func (a *Admin) waitForTopic(ctx context.Context, conn KafkaConn) error {
	a.logger.Info("Waiting for topic initialization...", zap.String("topic", a.topic))
	for i := 0; i < a.ReadyPolls; i++ {
		exists, err := a.topicExists(conn)
		if err == nil && exists {
			a.logger.Info("Topic is ready", zap.String("topic", a.topic))
			return nil
		}
		if err := a.clock.Sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}
	// Metadata can lag behind creation; the producer and grid retry on their own.
	a.logger.Warn("Timed out waiting for topic", zap.String("topic", a.topic))
	return nil
}
