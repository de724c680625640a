package grid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectError(t *testing.T) {
	rejected := errors.New("client not allowed in cluster")
	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	tests := []struct {
		name        string
		ctx         context.Context
		err         error
		elapsed     time.Duration
		wantTimeout bool
	}{
		{"rejected quickly", context.Background(), rejected, 50 * time.Millisecond, false},
		{"strategy timeout spent", context.Background(), rejected, 2 * time.Second, true},
		{"deadline error", context.Background(), context.DeadlineExceeded, 0, true},
		{"context expired", expired, rejected, 0, true},
		{"context canceled", canceledContext(), context.Canceled, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := connectError(tt.ctx, "localhost:5701", tt.err, tt.elapsed, 2*time.Second)

			assert.Equal(t, tt.wantTimeout, errors.Is(err, ErrConnectTimeout), "error: %v", err)
			assert.Contains(t, err.Error(), "localhost:5701")
			if !tt.wantTimeout {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
