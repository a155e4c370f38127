package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/notebook/internal/logging"
	"github.com/aretw0/notebook/internal/metrics"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/aretw0/notebook/pkg/ports"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Default timings and limits.
const (
	DefaultSupervisorDelay  = time.Second
	DefaultSupervisorPeriod = time.Second
	DefaultGracePeriod      = 5 * time.Second
	DefaultMaxWorkers       = 64
)

// Engine is the kernel core: it owns the instance registry, the live-worker
// set, the worker pool and the cancellation supervisor.
type Engine struct {
	loader     ports.UnitLoader
	registry   *Registry
	workers    *WorkerSet
	pool       *ants.Pool
	supervisor *Supervisor

	signal     ports.CancellationSignal
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	metrics    *metrics.Collector
	tracer     trace.Tracer
	delay      time.Duration
	period     time.Duration
	grace      time.Duration
	maxWorkers int

	stateMu sync.Mutex
	state   map[string]any

	closed       atomic.Bool
	shutdownOnce sync.Once
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithSignal sets the cancellation signal polled by the supervisor.
func WithSignal(sig ports.CancellationSignal) EngineOption {
	return func(e *Engine) {
		e.signal = sig
	}
}

// WithSupervisorTiming sets the supervisor's initial delay and period.
// Non-positive values keep the defaults.
func WithSupervisorTiming(delay, period time.Duration) EngineOption {
	return func(e *Engine) {
		if delay > 0 {
			e.delay = delay
		}
		if period > 0 {
			e.period = period
		}
	}
}

// WithGracePeriod bounds how long an interrupted worker is awaited.
func WithGracePeriod(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.grace = d
		}
	}
}

// WithMaxWorkers caps concurrently running workers.
func WithMaxWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxWorkers = n
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) EngineOption {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithTracer sets the tracer used for invocation spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine creates an engine and starts its supervisor.
func NewEngine(loader ports.UnitLoader, opts ...EngineOption) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("runtime: loader is required")
	}
	e := &Engine{
		loader:     loader,
		registry:   NewRegistry(),
		workers:    NewWorkerSet(),
		logger:     logging.NewNop(),
		tracer:     noop.NewTracerProvider().Tracer("notebook"),
		delay:      DefaultSupervisorDelay,
		period:     DefaultSupervisorPeriod,
		grace:      DefaultGracePeriod,
		maxWorkers: DefaultMaxWorkers,
		state:      make(map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}

	pool, err := ants.NewPool(e.maxWorkers, ants.WithNonblocking(true), ants.WithLogger(antsLogger{e.logger}))
	if err != nil {
		return nil, fmt.Errorf("runtime: create worker pool: %w", err)
	}
	e.pool = pool

	e.supervisor = NewSupervisor(e.workers, e.signal,
		WithSupervisorLogger(e.logger),
		WithSupervisorMetrics(e.metrics),
		WithSupervisorSchedule(e.delay, e.period),
	)
	e.supervisor.Start()
	return e, nil
}

// Instance returns the live instance of a unit.
func (e *Engine) Instance(name string) (any, bool) {
	return e.registry.Get(name)
}

// Instances returns a copy of the registry table.
func (e *Engine) Instances() map[string]any {
	return e.registry.Snapshot()
}

// Units returns the names of the live instances, sorted.
func (e *Engine) Units() []string {
	return e.registry.Names()
}

// Workers returns the live-worker set, oldest first.
func (e *Engine) Workers() []domain.Worker {
	return e.workers.Live()
}

// CancelAll interrupts every live worker, as a consumed signal would.
func (e *Engine) CancelAll() int {
	n := e.workers.InterruptAll()
	e.metrics.Cancelled(n)
	return n
}

// Cancel interrupts one worker by ID.
func (e *Engine) Cancel(id string) bool {
	if !e.workers.Interrupt(id) {
		return false
	}
	e.metrics.Cancelled(1)
	return true
}

// State returns the shared state mapping handed to StateAware units.
// The map is shared, not copied.
func (e *Engine) State() map[string]any {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

// Loader returns the unit loader.
func (e *Engine) Loader() ports.UnitLoader {
	return e.loader
}

// Closed reports whether Shutdown has run.
func (e *Engine) Closed() bool {
	return e.closed.Load()
}

// antsLogger routes pool diagnostics to slog.
type antsLogger struct{ l *slog.Logger }

func (a antsLogger) Printf(format string, args ...any) {
	a.l.Debug(fmt.Sprintf(format, args...), "component", "pool")
}
