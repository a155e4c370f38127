package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/notebook/internal/logging"
	"github.com/aretw0/notebook/internal/metrics"
	"github.com/aretw0/notebook/pkg/ports"
)

// Supervisor periodically reaps finished workers and polls the cancellation
// signal. It never interrupts anything but registered workers.
type Supervisor struct {
	workers *WorkerSet
	signal  ports.CancellationSignal
	logger  *slog.Logger
	metrics *metrics.Collector
	delay   time.Duration
	period  time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the logger.
func WithSupervisorLogger(l *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSupervisorMetrics attaches a metrics collector.
func WithSupervisorMetrics(c *metrics.Collector) SupervisorOption {
	return func(s *Supervisor) {
		s.metrics = c
	}
}

// WithSupervisorSchedule sets the initial delay and the period between ticks.
func WithSupervisorSchedule(delay, period time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if delay > 0 {
			s.delay = delay
		}
		if period > 0 {
			s.period = period
		}
	}
}

// NewSupervisor creates a stopped supervisor. sig may be nil, in which case
// ticks only reap.
func NewSupervisor(workers *WorkerSet, sig ports.CancellationSignal, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		workers: workers,
		signal:  sig,
		logger:  logging.NewNop(),
		delay:   DefaultSupervisorDelay,
		period:  DefaultSupervisorPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the timer goroutine. Calls after the first are no-ops.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop cancels the timer and waits for an in-flight tick to return.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	if !started {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.done)
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.period)
		}
	}
}

// Tick runs one supervision pass: reap, then consume the signal and, if it
// was present, interrupt every live worker. It returns the number of
// interrupts delivered.
func (s *Supervisor) Tick(ctx context.Context) int {
	if n := s.workers.Reap(); n > 0 {
		s.logger.Debug("reaped workers", "count", n)
	}
	s.metrics.LiveWorkers(s.workers.Count())
	if s.signal == nil {
		return 0
	}

	fired, err := s.signal.Consume(ctx)
	if err != nil {
		s.logger.Warn("cancellation signal not consumed", "err", err)
	}
	if !fired {
		return 0
	}
	n := s.workers.InterruptAll()
	s.metrics.Cancelled(n)
	s.logger.Info("cancellation signal observed", "interrupted", n)
	return n
}
