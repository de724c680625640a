package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/broker"
)

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
	Closed     bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockKafkaConn is a broker holding a set of topics.
type MockKafkaConn struct {
	Mu            sync.Mutex
	Topics        map[string]bool
	CreatedTopics []kafka.TopicConfig
	CreateErr     error
	Closed        int
}

func NewMockKafkaConn(existing ...string) *MockKafkaConn {
	c := &MockKafkaConn{Topics: make(map[string]bool)}
	for _, t := range existing {
		c.Topics[t] = true
	}
	return c
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}

func (m *MockKafkaConn) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed++
	return nil
}

func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.CreatedTopics = append(m.CreatedTopics, topics...)
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, t := range topics {
		if m.Topics[t.Topic] {
			return kafka.TopicAlreadyExists
		}
		m.Topics[t.Topic] = true
	}
	return nil
}

func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var partitions []kafka.Partition
	for _, t := range topics {
		if !m.Topics[t] {
			return nil, kafka.UnknownTopicOrPartition
		}
		partitions = append(partitions, kafka.Partition{Topic: t, ID: 0})
	}
	return partitions, nil
}

// MockKafkaDialer refuses the first FailTimes dials.
type MockKafkaDialer struct {
	Conn      *MockKafkaConn
	FailTimes int

	Mu    sync.Mutex
	Dials int
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (broker.KafkaConn, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Dials++
	if m.Dials <= m.FailTimes {
		return nil, errors.New("connection refused")
	}
	if m.Conn == nil {
		m.Conn = NewMockKafkaConn()
	}
	return m.Conn, nil
}

// MockConfigAlterer records retention changes.
type MockConfigAlterer struct {
	Mu       sync.Mutex
	Requests []*kafka.AlterConfigsRequest
	Err      error
}

func (m *MockConfigAlterer) AlterConfigs(ctx context.Context, req *kafka.AlterConfigsRequest) (*kafka.AlterConfigsResponse, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &kafka.AlterConfigsResponse{}, nil
}

// Values lists every config value set, in order.
func (m *MockConfigAlterer) Values() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var values []string
	for _, req := range m.Requests {
		for _, res := range req.Resources {
			for _, c := range res.Configs {
				values = append(values, c.Value)
			}
		}
	}
	return values
}

// MockClock advances virtual time instantly. Yield adds a real pause to
// every Sleep so loops running in goroutines do not spin.
type MockClock struct {
	Mu          sync.Mutex
	CurrentTime time.Time
	Slept       []time.Duration
	Yield       time.Duration
}

func (m *MockClock) Now() time.Time {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.CurrentTime
}

func (m *MockClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Mu.Lock()
	m.CurrentTime = m.CurrentTime.Add(d)
	m.Slept = append(m.Slept, d)
	m.Mu.Unlock()

	if m.Yield > 0 {
		t := time.NewTimer(m.Yield)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (m *MockClock) Sleeps() []time.Duration {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]time.Duration(nil), m.Slept...)
}

// MockRand returns ValInt from every draw, or the largest value when Max is set.
type MockRand struct {
	ValInt int
	Max    bool
}

func (m *MockRand) Intn(n int) int {
	if m.Max {
		return n - 1
	}
	return m.ValInt
}
