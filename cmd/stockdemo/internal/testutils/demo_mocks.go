package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

var ErrPublish = errors.New("publish failed")

// FakeBroker stands in for the broker service. Published trades are
// delivered straight to Grid, if set.
type FakeBroker struct {
	Grid *FakeGrid
	// FailPublishAfter makes every publish after that many successes fail;
	// 0 never fails.
	FailPublishAfter int
	// BlockEnsure makes EnsureTopic wait for ctx, like an unreachable broker.
	BlockEnsure bool

	Mu        sync.Mutex
	Published []models.TradeEvent
	Calls     []string
	Closed    bool
	FailedAt  time.Time // first rejected publish
}

func (b *FakeBroker) call(name string) {
	b.Mu.Lock()
	b.Calls = append(b.Calls, name)
	b.Mu.Unlock()
}

func (b *FakeBroker) EnsureTopic(ctx context.Context) error {
	b.call("ensure")
	if b.BlockEnsure {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (b *FakeBroker) PurgeTopic(ctx context.Context) error {
	b.call("purge")
	return ctx.Err()
}

func (b *FakeBroker) Publish(ctx context.Context, trade models.TradeEvent) error {
	b.Mu.Lock()
	if b.FailPublishAfter > 0 && len(b.Published) >= b.FailPublishAfter {
		if b.FailedAt.IsZero() {
			b.FailedAt = time.Now()
		}
		b.Mu.Unlock()
		return ErrPublish
	}
	b.Published = append(b.Published, trade)
	b.Mu.Unlock()

	if b.Grid != nil {
		b.Grid.Ingest(trade)
	}
	return nil
}

func (b *FakeBroker) Close() error {
	b.call("close")
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.Closed = true
	return nil
}

func (b *FakeBroker) PublishedTrades() []models.TradeEvent {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return append([]models.TradeEvent(nil), b.Published...)
}

func (b *FakeBroker) FailureTime() time.Time {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return b.FailedAt
}

func (b *FakeBroker) CallLog() []string {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return append([]string(nil), b.Calls...)
}

// MockRelay captures relayed notifications. FailIDs are rejected.
type MockRelay struct {
	Mu            sync.Mutex
	Notifications []models.TradeNotification
	FailIDs       map[int64]bool
}

func (m *MockRelay) Relay(ctx context.Context, n models.TradeNotification) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailIDs[n.ID] {
		return errors.New("relay unavailable")
	}
	m.Notifications = append(m.Notifications, n)
	return nil
}

func (m *MockRelay) Received() []models.TradeNotification {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]models.TradeNotification(nil), m.Notifications...)
}

// MockQuerier answers each query with the next scripted batch, then with
// empty results.
type MockQuerier struct {
	Mu      sync.Mutex
	Batches [][]grid.Row
	Errs    []error
	Queries []string
	Params  [][]interface{}
	calls   int
}

func (m *MockQuerier) Query(ctx context.Context, query string, params ...interface{}) (grid.Rows, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Queries = append(m.Queries, query)
	m.Params = append(m.Params, params)
	i := m.calls
	m.calls++

	if i < len(m.Errs) && m.Errs[i] != nil {
		return nil, m.Errs[i]
	}
	if i < len(m.Batches) {
		return NewSliceRows(m.Batches[i]...), nil
	}
	return NewSliceRows(), nil
}
