package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hazelcast/hazelcast-go-client/serialization"
	"github.com/hazelcast/hazelcast-go-client/types"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// FakeRow is a SQL row keyed by column name.
type FakeRow map[string]interface{}

func (r FakeRow) GetByColumnName(name string) (interface{}, error) {
	v, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("column %s not found", name)
	}
	return v, nil
}

// TradeMapRow is the trade_map row the ingest job would write for trade.
func TradeMapRow(trade models.TradeEvent, name string) FakeRow {
	return FakeRow{
		"id":     trade.ID,
		"ticker": trade.Ticker,
		"name":   name,
		"price":  grid.FromDecimal(trade.Price),
		"qty":    trade.Quantity,
	}
}

func tradesRow(trade models.TradeEvent) FakeRow {
	return FakeRow{
		"id":     trade.ID,
		"ticker": trade.Ticker,
		"price":  grid.FromDecimal(trade.Price),
		"qty":    trade.Quantity,
	}
}

// SliceRows is a finished result.
type SliceRows struct {
	Rows   []grid.Row
	Err    error // returned once the rows are exhausted
	pos    int
	mu     sync.Mutex
	closed bool
}

func NewSliceRows(rows ...grid.Row) *SliceRows { return &SliceRows{Rows: rows} }

func (s *SliceRows) Next() (grid.Row, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, errors.New("rows closed")
	}
	if s.pos >= len(s.Rows) {
		return nil, false, s.Err
	}
	s.pos++
	return s.Rows[s.pos-1], true, nil
}

func (s *SliceRows) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SliceRows) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// streamRows never ends on its own; Next blocks until a row arrives or the
// cursor is closed.
type streamRows struct {
	ch      chan grid.Row
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func (s *streamRows) Next() (grid.Row, bool, error) {
	select {
	case row := <-s.ch:
		return row, true, nil
	case <-s.done:
		return nil, false, errors.New("query cancelled")
	}
}

func (s *streamRows) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.onClose()
	})
	return nil
}

// FakeGrid is an in-memory grid.Engine: it understands the mapping, job and
// query statements the demo issues and emulates the ingest job joining
// trades with companies into trade_map.
type FakeGrid struct {
	mu         sync.Mutex
	statements []string
	mappings   map[string]bool
	companies  map[string]models.StockReference
	tradeMap   map[int64]FakeRow
	jobRunning bool
	streams    map[*streamRows]bool
	shutdown   bool

	// FailOn makes any statement containing the key fail with the value.
	FailOn map[string]error
}

func NewFakeGrid() *FakeGrid {
	return &FakeGrid{
		mappings:  make(map[string]bool),
		companies: make(map[string]models.StockReference),
		tradeMap:  make(map[int64]FakeRow),
		streams:   make(map[*streamRows]bool),
		FailOn:    make(map[string]error),
	}
}

var _ grid.Engine = (*FakeGrid)(nil)

func (f *FakeGrid) record(stmt string) error {
	f.statements = append(f.statements, stmt)
	for key, err := range f.FailOn {
		if strings.Contains(stmt, key) {
			return err
		}
	}
	return nil
}

func (f *FakeGrid) Exec(ctx context.Context, stmt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(stmt); err != nil {
		return err
	}

	fields := strings.Fields(stmt)
	switch {
	case strings.HasPrefix(stmt, "CREATE OR REPLACE MAPPING") && len(fields) > 4:
		f.mappings[fields[4]] = true
	case strings.HasPrefix(stmt, "DROP JOB"):
		f.jobRunning = false
	case strings.HasPrefix(stmt, "CREATE JOB"):
		if !f.mappings[grid.TradesMapping] || !f.mappings[grid.CompaniesMap] || !f.mappings[grid.TradeMap] {
			return errors.New("job references a missing mapping")
		}
		f.jobRunning = true
	default:
		return fmt.Errorf("unsupported statement: %s", stmt)
	}
	return nil
}

func (f *FakeGrid) DestroyMap(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DESTROY " + name); err != nil {
		return err
	}
	switch name {
	case grid.CompaniesMap:
		f.companies = make(map[string]models.StockReference)
	case grid.TradeMap:
		f.tradeMap = make(map[int64]FakeRow)
	}
	delete(f.mappings, name)
	return nil
}

func (f *FakeGrid) PutAll(ctx context.Context, name string, entries []types.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PUTALL " + name); err != nil {
		return err
	}
	if name != grid.CompaniesMap {
		return fmt.Errorf("unexpected map %s", name)
	}
	for _, e := range entries {
		doc, ok := e.Value.(serialization.JSON)
		if !ok {
			return fmt.Errorf("value for %v is %T, not JSON", e.Key, e.Value)
		}
		var ref models.StockReference
		if err := json.Unmarshal(doc, &ref); err != nil {
			return err
		}
		f.companies[ref.Ticker] = ref
	}
	return nil
}

func (f *FakeGrid) MapSize(ctx context.Context, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case grid.TradeMap:
		return len(f.tradeMap), nil
	case grid.CompaniesMap:
		return len(f.companies), nil
	default:
		return 0, nil
	}
}

func (f *FakeGrid) Query(ctx context.Context, query string, params ...interface{}) (grid.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(query); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(query, "SELECT * FROM "+grid.TradesMapping):
		if !f.mappings[grid.TradesMapping] {
			return nil, fmt.Errorf("mapping %s not found", grid.TradesMapping)
		}
		s := &streamRows{ch: make(chan grid.Row, 1024), done: make(chan struct{})}
		s.onClose = func() {
			f.mu.Lock()
			delete(f.streams, s)
			f.mu.Unlock()
		}
		f.streams[s] = true
		return s, nil

	case strings.Contains(query, "FROM "+grid.TradeMap):
		if !f.mappings[grid.TradeMap] {
			return nil, fmt.Errorf("mapping %s not found", grid.TradeMap)
		}
		var after *int64
		if strings.Contains(query, "WHERE id > ?") {
			if len(params) != 1 {
				return nil, fmt.Errorf("expected 1 parameter, got %d", len(params))
			}
			id, ok := params[0].(int64)
			if !ok {
				return nil, fmt.Errorf("parameter is %T, not int64", params[0])
			}
			after = &id
		}
		ids := make([]int64, 0, len(f.tradeMap))
		for id := range f.tradeMap {
			if after == nil || id > *after {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		rows := make([]grid.Row, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, f.tradeMap[id])
		}
		return NewSliceRows(rows...), nil
	}
	return nil, fmt.Errorf("unsupported query: %s", query)
}

func (f *FakeGrid) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	return nil
}

// Ingest is what the broker delivers to the grid: streaming readers see the
// raw trade and, while the job runs, the joined row is written to
// trade_map, overwriting any row with the same id.
func (f *FakeGrid) Ingest(trade models.TradeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mappings[grid.TradesMapping] {
		for s := range f.streams {
			select {
			case s.ch <- tradesRow(trade):
			default:
			}
		}
	}
	if !f.jobRunning {
		return
	}
	company, ok := f.companies[trade.Ticker]
	if !ok {
		return
	}
	f.tradeMap[trade.ID] = TradeMapRow(trade, company.Name)
}

// PutRow writes a raw trade_map row, bypassing the job.
func (f *FakeGrid) PutRow(id int64, row FakeRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tradeMap[id] = row
}

func (f *FakeGrid) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statements...)
}

func (f *FakeGrid) JobRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobRunning
}

func (f *FakeGrid) IsShutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown
}

func (f *FakeGrid) Company(ticker string) (models.StockReference, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[ticker]
	return c, ok
}

// OpenStreams counts streaming queries not closed yet.
func (f *FakeGrid) OpenStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}
