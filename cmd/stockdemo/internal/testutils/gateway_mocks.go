package testutils

import (
	"context"
	"sync"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/protocol"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSMessage // Stores JSON messages
	RawBytes []string             // Stores raw bytes
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if msg, ok := v.(protocol.WSMessage); ok {
		m.Messages = append(m.Messages, msg)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) Raw() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]string(nil), m.RawBytes...)
}

func (m *MockClient) LastMsgType() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Type
}

func (m *MockClient) IsClosed() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Closed
}

// MockTradeStore simulates Redis. Payloads sent on Feed are delivered by
// RunPubSub.
type MockTradeStore struct {
	RecentPayloads []string
	RecentErr      error
	Feed           chan string
	Closed         bool
	Mu             sync.Mutex
}

func NewMockStore(recent ...string) *MockTradeStore {
	return &MockTradeStore{RecentPayloads: recent, Feed: make(chan string, 16)}
}

func (m *MockTradeStore) Recent(ctx context.Context) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	return append([]string(nil), m.RecentPayloads...), nil
}

func (m *MockTradeStore) RunPubSub(ctx context.Context, onMessage func(payload string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-m.Feed:
			onMessage(p)
		}
	}
}

func (m *MockTradeStore) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}
