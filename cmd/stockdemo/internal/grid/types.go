package grid

import (
	"context"

	"github.com/hazelcast/hazelcast-go-client/types"
)

// Row is one row of a SQL result, addressed by column name.
type Row interface {
	GetByColumnName(name string) (interface{}, error)
}

// Rows is a forward-only cursor over a SQL result. For streaming queries Next
// blocks until a row arrives or the cursor is closed.
type Rows interface {
	// Next returns the next row; ok is false once the result is exhausted.
	Next() (row Row, ok bool, err error)
	Close() error
}

// Querier runs SQL queries against the grid.
type Querier interface {
	Query(ctx context.Context, query string, params ...interface{}) (Rows, error)
}

// Engine is the set of grid operations the demo relies on.
type Engine interface {
	Querier
	Exec(ctx context.Context, stmt string) error
	DestroyMap(ctx context.Context, name string) error
	PutAll(ctx context.Context, name string, entries []types.Entry) error
	MapSize(ctx context.Context, name string) (int, error)
	Shutdown(ctx context.Context) error
}
