package notebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/notebook/internal/logging"
	"github.com/aretw0/notebook/internal/metrics"
	"github.com/aretw0/notebook/internal/runtime"
	exprAdapter "github.com/aretw0/notebook/pkg/adapters/expr"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/aretw0/notebook/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Kernel is the high-level entry point of the library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Kernel struct {
	runtime     *runtime.Engine
	loader      ports.UnitLoader
	evaluator   ports.Evaluator
	signal      ports.CancellationSignal
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	registerer  prometheus.Registerer
	tracer      trace.Tracer
	runtimeOpts []runtime.EngineOption
}

var _ io.Closer = (*Kernel)(nil)

// Option defines a functional option for configuring the Kernel.
type Option func(*Kernel)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}

// WithSignal sets the cancellation signal polled by the supervisor.
func WithSignal(sig ports.CancellationSignal) Option {
	return func(k *Kernel) {
		k.signal = sig
	}
}

// WithEvaluator replaces the default expression evaluator.
func WithEvaluator(ev ports.Evaluator) Option {
	return func(k *Kernel) {
		k.evaluator = ev
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(k *Kernel) {
		k.hooks = hooks
	}
}

// WithSupervisorTiming sets the supervisor's initial delay and period.
func WithSupervisorTiming(delay, period time.Duration) Option {
	return func(k *Kernel) {
		k.runtimeOpts = append(k.runtimeOpts, runtime.WithSupervisorTiming(delay, period))
	}
}

// WithGracePeriod bounds how long an interrupted worker is awaited.
func WithGracePeriod(d time.Duration) Option {
	return func(k *Kernel) {
		k.runtimeOpts = append(k.runtimeOpts, runtime.WithGracePeriod(d))
	}
}

// WithMaxWorkers caps concurrently running workers.
func WithMaxWorkers(n int) Option {
	return func(k *Kernel) {
		k.runtimeOpts = append(k.runtimeOpts, runtime.WithMaxWorkers(n))
	}
}

// WithMetrics registers the kernel's Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(k *Kernel) {
		k.registerer = reg
	}
}

// WithTracer sets the OpenTelemetry tracer for invocation spans.
func WithTracer(t trace.Tracer) Option {
	return func(k *Kernel) {
		k.tracer = t
	}
}

// New creates a kernel over loader and starts its supervisor.
func New(loader ports.UnitLoader, opts ...Option) (*Kernel, error) {
	if loader == nil {
		return nil, fmt.Errorf("a unit loader is required")
	}
	k := &Kernel{loader: loader}
	for _, opt := range opts {
		opt(k)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime)
	if k.logger == nil {
		k.logger = logging.NewNop()
	}
	if k.evaluator == nil {
		k.evaluator = exprAdapter.New()
	}

	var collector *metrics.Collector
	if k.registerer != nil {
		c, err := metrics.New(k.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		collector = c
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(k.logger),
		runtime.WithLifecycleHooks(k.hooks),
		runtime.WithSignal(k.signal),
		runtime.WithMetrics(collector),
		runtime.WithTracer(k.tracer),
	}
	runtimeOpts = append(runtimeOpts, k.runtimeOpts...)

	rt, err := runtime.NewEngine(loader, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	k.runtime = rt
	return k, nil
}

// Invoke reloads unit and runs op on it, blocking until the operation ends.
// Cancelling ctx interrupts the operation.
func (k *Kernel) Invoke(ctx context.Context, unit, op string) (domain.Invocation, error) {
	return k.runtime.Invoke(ctx, unit, op)
}

// Start reloads unit and runs op on a detached worker.
func (k *Kernel) Start(ctx context.Context, unit, op string) (domain.Worker, error) {
	return k.runtime.Start(ctx, unit, op)
}

// Evaluate runs an expression against the kernel state. The environment
// exposes the shared state as "state", every live instance under "units" by
// qualified name, and each instance by the last segment of its name.
func (k *Kernel) Evaluate(ctx context.Context, expression string) (any, error) {
	if k.runtime.Closed() {
		return nil, domain.ErrKernelClosed
	}
	instances := k.runtime.Instances()
	env := make(map[string]any, len(instances)+2)
	for name, inst := range instances {
		env[ShortName(name)] = inst
	}
	env["units"] = instances
	env["state"] = k.runtime.State()
	return k.evaluator.Evaluate(ctx, expression, env)
}

// Instance returns the live instance of unit.
func (k *Kernel) Instance(unit string) (any, bool) {
	return k.runtime.Instance(unit)
}

// Instances returns a snapshot of the live instances by unit name.
func (k *Kernel) Instances() map[string]any {
	return k.runtime.Instances()
}

// Units lists the units that currently have a live instance.
func (k *Kernel) Units() []string {
	return k.runtime.Units()
}

// Operations lists the runnable methods of a live instance.
func (k *Kernel) Operations(unit string) []string {
	inst, ok := k.runtime.Instance(unit)
	if !ok {
		return nil
	}
	return runtime.Operations(inst)
}

// Available lists every unit the loader can currently resolve.
func (k *Kernel) Available(ctx context.Context) ([]string, error) {
	lc, err := k.loader.Open(ctx)
	if err != nil {
		return nil, err
	}
	return lc.Units(), nil
}

// Workers returns the live-worker set, oldest first.
func (k *Kernel) Workers() []domain.Worker {
	return k.runtime.Workers()
}

// CancelAll interrupts every live worker and returns how many were interrupted.
func (k *Kernel) CancelAll() int {
	return k.runtime.CancelAll()
}

// Cancel interrupts one worker by ID.
func (k *Kernel) Cancel(id string) bool {
	return k.runtime.Cancel(id)
}

// State returns the shared state mapping handed to units with SetState.
func (k *Kernel) State() map[string]any {
	return k.runtime.State()
}

// Closed reports whether the kernel has been shut down.
func (k *Kernel) Closed() bool {
	return k.runtime.Closed()
}

// Loader returns the unit loader.
func (k *Kernel) Loader() ports.UnitLoader {
	return k.loader
}

// Watch returns a channel that signals when unit sources change.
// Returns error if the loader does not support watching.
func (k *Kernel) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := k.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Shutdown releases retained resources and stops workers. Only the first
// call does work; later calls return an empty report.
func (k *Kernel) Shutdown(ctx context.Context) domain.TeardownReport {
	return k.runtime.Shutdown(ctx)
}

// Close implements io.Closer. It reports release failures and abandoned
// workers as one error.
func (k *Kernel) Close() error {
	report := k.Shutdown(context.Background())
	var errs []error
	for _, f := range report.Failures {
		errs = append(errs, f)
	}
	for _, w := range report.Abandoned {
		errs = append(errs, fmt.Errorf("worker %s (%s.%s) did not stop", w.ID, w.Unit, w.Operation))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("close kernel: %w", errors.Join(errs...))
}

// ShortName returns the last segment of a qualified unit name.
func ShortName(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		return name[i+1:]
	}
	return name
}
