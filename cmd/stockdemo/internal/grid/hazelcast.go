package grid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazelcast/hazelcast-go-client"
	"github.com/hazelcast/hazelcast-go-client/logger"
	"github.com/hazelcast/hazelcast-go-client/sql"
	"github.com/hazelcast/hazelcast-go-client/types"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/pkg/config"
)

// ErrConnectTimeout is returned when the cluster cannot be reached in time.
var ErrConnectTimeout = errors.New("hazelcast cluster connection timeout")

// Compile-time check to ensure hazelcastEngine implements Engine
var _ Engine = (*hazelcastEngine)(nil)

type hazelcastEngine struct {
	client *hazelcast.Client
}

// Dial starts a client against a single member. Smart routing is off because
// a containerised member only advertises its internal address.
func Dial(ctx context.Context, cfg config.HazelcastConfig, timeout time.Duration, log *zap.Logger) (Engine, error) {
	hc := hazelcast.NewConfig()
	hc.Cluster.Name = cfg.ClusterName
	hc.Cluster.Network.SetAddresses(cfg.Addr())
	hc.Cluster.Unisocket = true
	hc.Cluster.ConnectionStrategy.Timeout = types.Duration(timeout)
	hc.Logger.CustomLogger = zapLogger{log: log}

	log.Info("Connect to Hazelcast", zap.String("addr", cfg.Addr()), zap.String("cluster", cfg.ClusterName))

	start := time.Now()
	client, err := hazelcast.StartNewClientWithConfig(ctx, hc)
	if err != nil {
		return nil, connectError(ctx, cfg.Addr(), err, time.Since(start), timeout)
	}
	return &hazelcastEngine{client: client}, nil
}

// connectError reports ErrConnectTimeout only when the attempt ran out of
// time; rejected credentials or a wrong cluster name keep their own cause.
func connectError(ctx context.Context, addr string, err error, elapsed, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || elapsed >= timeout {
		return fmt.Errorf("%w: %s: %v", ErrConnectTimeout, addr, err)
	}
	return fmt.Errorf("connect hazelcast %s: %w", addr, err)
}

func (e *hazelcastEngine) Exec(ctx context.Context, stmt string) error {
	res, err := e.client.SQL().Execute(ctx, stmt)
	if err != nil {
		return err
	}
	return res.Close()
}

func (e *hazelcastEngine) Query(ctx context.Context, query string, params ...interface{}) (Rows, error) {
	res, err := e.client.SQL().Execute(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	it, err := res.Iterator()
	if err != nil {
		res.Close()
		return nil, err
	}
	return &resultRows{result: res, it: it}, nil
}

func (e *hazelcastEngine) DestroyMap(ctx context.Context, name string) error {
	m, err := e.client.GetMap(ctx, name)
	if err != nil {
		return err
	}
	return m.Destroy(ctx)
}

func (e *hazelcastEngine) PutAll(ctx context.Context, name string, entries []types.Entry) error {
	m, err := e.client.GetMap(ctx, name)
	if err != nil {
		return err
	}
	return m.PutAll(ctx, entries...)
}

func (e *hazelcastEngine) MapSize(ctx context.Context, name string) (int, error) {
	m, err := e.client.GetMap(ctx, name)
	if err != nil {
		return 0, err
	}
	return m.Size(ctx)
}

func (e *hazelcastEngine) Shutdown(ctx context.Context) error {
	return e.client.Shutdown(ctx)
}

type resultRows struct {
	result sql.Result
	it     sql.RowsIterator
}

func (r *resultRows) Next() (Row, bool, error) {
	if !r.it.HasNext() {
		return nil, false, nil
	}
	row, err := r.it.Next()
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (r *resultRows) Close() error {
	return r.result.Close()
}

// zapLogger routes the client's own logging into zap.
type zapLogger struct {
	log *zap.Logger
}

func (l zapLogger) Log(weight logger.Weight, f func() string) {
	switch {
	case weight <= logger.WeightError:
		l.log.Error(f())
	case weight == logger.WeightWarn:
		l.log.Warn(f())
	case weight == logger.WeightInfo:
		l.log.Info(f())
	default:
		if l.log.Core().Enabled(zap.DebugLevel) {
			l.log.Debug(f())
		}
	}
}
