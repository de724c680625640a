package demo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/clock"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/feed"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/poller"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/stream"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

var (
	ErrSetupTimeout   = errors.New("timeout when getting services")
	ErrAlreadyStarted = errors.New("demo session already started")
)

// Broker is the message broker side of a session.
type Broker interface {
	EnsureTopic(ctx context.Context) error
	PurgeTopic(ctx context.Context) error
	Publish(ctx context.Context, trade models.TradeEvent) error
	Close() error
}

// Grid is the data grid side of a session.
type Grid interface {
	grid.Querier
	Initialize(ctx context.Context) error
	Close(ctx context.Context) error
}

// BrokerFactory builds a broker; it must not connect.
type BrokerFactory func() Broker

// GridConnector connects to the grid, giving up after timeout.
type GridConnector func(ctx context.Context, timeout time.Duration) (Grid, error)

type Options struct {
	// SetupTimeout bounds broker readiness, purge, grid connect and
	// initialization taken together.
	SetupTimeout time.Duration
	FeedInterval time.Duration
	PollInterval time.Duration
	// RawStream also runs the raw trades logger.
	RawStream bool
	// TeardownTimeout bounds closing the grid client.
	TeardownTimeout time.Duration
}

// Session sequences one demo run: bootstrap, then the feed, poller and raw
// stream tasks, then teardown.
type Session struct {
	logger      *zap.Logger
	opts        Options
	newBroker   BrokerFactory
	connectGrid GridConnector
	relay       poller.Relay
	clock       clock.Clock
	rand        feed.Rand
	tickers     []string

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewSession(
	logger *zap.Logger,
	opts Options,
	newBroker BrokerFactory,
	connectGrid GridConnector,
	relay poller.Relay,
	clk clock.Clock,
	rnd feed.Rand,
) *Session {
	if opts.TeardownTimeout <= 0 {
		opts.TeardownTimeout = 10 * time.Second
	}
	s := &Session{
		logger:      logger,
		opts:        opts,
		newBroker:   newBroker,
		connectGrid: connectGrid,
		relay:       relay,
		clock:       clk,
		rand:        rnd,
		tickers:     models.Tickers(),
	}
	exportState(Idle)
	return s
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	exportState(st)
	s.logger.Debug("Session state", zap.Stringer("state", st))
}

// Start runs the session in the background and returns immediately.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrAlreadyStarted
	}

	s.logger.Info("Demo is starting")
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		err := s.Run(runCtx)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()

		switch {
		case err == nil, errors.Is(err, context.Canceled):
			s.logger.Info("Demo has stopped")
		default:
			s.logger.Error("Demo has failed", zap.Error(err))
		}
	}()

	s.logger.Info("Demo has started")
	return nil
}

// Stop cancels the session and waits for it to unwind, or for ctx. The
// outcome was already logged by the run itself.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.logger.Info("Demo is stopping")
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Demo did not stop in time", zap.Error(ctx.Err()))
		return ctx.Err()
	}
	return nil
}

// Err is the outcome of the run once Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when a started session has finished, nil before Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Run executes the session synchronously.
func (s *Session) Run(ctx context.Context) error {
	var (
		b Broker
		g Grid
	)
	defer func() { s.teardown(ctx, b, g) }()

	setupCtx, cancelSetup := context.WithTimeout(ctx, s.opts.SetupTimeout)
	defer cancelSetup()

	b, g, err := s.bootstrap(setupCtx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			s.setState(Stopped)
			return ctx.Err()
		case errors.Is(setupCtx.Err(), context.DeadlineExceeded):
			// No half-initialized pipeline: nothing is started.
			s.logger.Error("Timeout when getting services - the demo is NOT running",
				zap.Duration("timeout", s.opts.SetupTimeout), zap.Error(err))
			s.setState(Failed)
			return fmt.Errorf("%w after %s: %v", ErrSetupTimeout, s.opts.SetupTimeout, err)
		default:
			s.logger.Error("Initialization failed - the demo is NOT running", zap.Error(err))
			s.setState(Failed)
			return err
		}
	}
	cancelSetup()

	s.logger.Info("Initialization completed, now running")
	s.setState(Running)
	return s.runTasks(ctx, b, g)
}

// bootstrap readies the broker strictly before touching the grid: the
// streaming job reads the topic and needs it in its final state.
func (s *Session) bootstrap(ctx context.Context) (Broker, Grid, error) {
	s.setState(Connecting)

	b := s.newBroker()
	if err := b.EnsureTopic(ctx); err != nil {
		return b, nil, fmt.Errorf("ensure topic: %w", err)
	}
	if err := b.PurgeTopic(ctx); err != nil {
		return b, nil, fmt.Errorf("purge topic: %w", err)
	}

	timeout := s.opts.SetupTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	g, err := s.connectGrid(ctx, timeout)
	if err != nil {
		return b, nil, fmt.Errorf("connect grid: %w", err)
	}

	s.setState(Initializing)
	if err := g.Initialize(ctx); err != nil {
		return b, g, fmt.Errorf("initialize grid: %w", err)
	}
	return b, g, nil
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// runTasks runs the long-lived tasks on one shared context. The first real
// failure cancels that context so every sibling unwinds.
func (s *Session) runTasks(ctx context.Context, b Broker, g Grid) error {
	gen := feed.NewGenerator(s.logger.Named("feed"), b, s.tickers, s.rand, s.clock)
	gen.Interval = s.opts.FeedInterval

	p := poller.New(s.logger.Named("poller"), g, s.relay, s.clock)
	p.Interval = s.opts.PollInterval

	tasks := []task{
		{name: "feed", run: gen.Run},
		{name: "poller", run: p.Run},
	}
	if s.opts.RawStream {
		tasks = append(tasks, task{name: "stream", run: stream.NewReader(s.logger.Named("stream"), g).Run})
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		t := t
		group.Go(func() error { return s.runTask(gctx, t) })
	}
	return group.Wait()
}

// runTask logs the task outcome exactly once.
func (s *Session) runTask(ctx context.Context, t task) error {
	err := t.run(ctx)
	switch {
	case err == nil:
		s.logger.Info("Task completed", zap.String("task", t.name))
	case errors.Is(err, context.Canceled):
		s.logger.Info("Task cancelled", zap.String("task", t.name))
	default:
		s.logger.Error("Task failed - aborting all tasks", zap.String("task", t.name), zap.Error(err))
	}
	return err
}

// teardown releases both clients whatever the outcome; its errors are
// logged and never replace the session's own.
func (s *Session) teardown(ctx context.Context, b Broker, g Grid) {
	final := s.State()
	if final == Running {
		s.setState(Stopping)
	}

	s.logger.Info("Tearing down services")
	if b != nil {
		if err := b.Close(); err != nil {
			s.logger.Warn("Error closing broker", zap.Error(err))
		}
	}
	if g != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.TeardownTimeout)
		if err := g.Close(closeCtx); err != nil {
			s.logger.Warn("Error closing grid client", zap.Error(err))
		}
		cancel()
	}

	if final != Failed {
		s.setState(Stopped)
	}
}
