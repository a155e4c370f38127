package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/notebook/internal/metrics"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/aretw0/notebook/pkg/unit"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Invoke loads the current definition of unitName, migrates the previous
// instance into it, and runs op on a worker while blocking until it ends.
// Cancelling ctx interrupts the worker.
func (e *Engine) Invoke(ctx context.Context, unitName, op string) (domain.Invocation, error) {
	ctx, span := e.tracer.Start(ctx, "notebook.invoke", trace.WithAttributes(
		attribute.String("notebook.unit", unitName),
		attribute.String("notebook.operation", op),
	))
	defer span.End()

	w, inv, err := e.launch(ctx, unitName, op, false)
	if err != nil {
		recordSpanError(span, err)
		return inv, err
	}

	err = e.await(ctx, w)
	inv.Duration = time.Since(w.started)
	e.metrics.Invocation(outcomeLabel(err), inv.Duration)
	recordSpanError(span, err)
	return inv, err
}

// Start is Invoke without waiting: the worker runs detached and the returned
// record can be used to follow or interrupt it.
func (e *Engine) Start(ctx context.Context, unitName, op string) (domain.Worker, error) {
	ctx, span := e.tracer.Start(ctx, "notebook.start", trace.WithAttributes(
		attribute.String("notebook.unit", unitName),
		attribute.String("notebook.operation", op),
	))
	defer span.End()

	w, _, err := e.launch(ctx, unitName, op, true)
	if err != nil {
		recordSpanError(span, err)
		return domain.Worker{}, err
	}
	return w.view(), nil
}

func (e *Engine) launch(ctx context.Context, unitName, op string, detached bool) (*worker, domain.Invocation, error) {
	inv := domain.Invocation{Unit: unitName, Operation: op}
	if e.closed.Load() {
		return nil, inv, domain.ErrKernelClosed
	}

	inst, err := e.load(ctx, unitName, &inv)
	if err != nil {
		if errors.Is(err, domain.ErrUnitNotFound) {
			e.metrics.Invocation(metrics.OutcomeNotFound, 0)
		} else {
			e.metrics.Invocation(metrics.OutcomeLoadFailed, 0)
		}
		return nil, inv, err
	}

	fn, ok := resolve(inst, op)
	if !ok {
		e.metrics.Invocation(metrics.OutcomeNotFound, 0)
		return nil, inv, fmt.Errorf("%w: %s.%s", domain.ErrOperationNotFound, unitName, op)
	}

	wctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	w := &worker{
		id:        uuid.NewString(),
		unit:      unitName,
		operation: op,
		started:   time.Now(),
		detached:  detached,
		ctx:       wctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	inv.WorkerID = w.id
	inv.Started = w.started

	e.workers.add(w)
	e.metrics.LiveWorkers(e.workers.Count())
	if err := e.pool.Submit(func() { e.run(w, fn) }); err != nil {
		e.workers.remove(w.id)
		e.metrics.LiveWorkers(e.workers.Count())
		cancel(err)
		return nil, inv, fmt.Errorf("submit %s.%s: %w", unitName, op, err)
	}

	e.logger.Debug("worker started", "unit", unitName, "operation", op, "worker_id", w.id, "detached", detached)
	if e.hooks.OnInvoke != nil {
		e.hooks.OnInvoke(ctx, &domain.InvocationEvent{
			EventBase: domain.EventBase{Timestamp: w.started, Type: domain.EventInvoke},
			Unit:      unitName,
			Operation: op,
			WorkerID:  w.id,
			Detached:  detached,
		})
	}
	return w, inv, nil
}

// load builds a fresh instance of unitName in a new loading context and moves
// the previous instance's state into it. The registry entry is replaced
// before the operation is resolved.
func (e *Engine) load(ctx context.Context, unitName string, inv *domain.Invocation) (any, error) {
	lc, err := e.loader.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open loading context: %w", err)
	}
	inst, err := lc.New(unitName)
	if err != nil {
		return nil, err
	}

	if prev, ok := e.registry.Get(unitName); ok {
		_, span := e.tracer.Start(ctx, "notebook.migrate", trace.WithAttributes(attribute.String("notebook.unit", unitName)))
		report := Migrate(lc, unitName, prev, inst, e.logger)
		span.SetAttributes(
			attribute.Int("notebook.migration.copied", report.Copied),
			attribute.Int("notebook.migration.migrated", report.Migrated),
			attribute.Int("notebook.migration.skipped", len(report.Skipped)),
		)
		span.End()

		inv.Reloaded = true
		inv.Migration = report
		e.metrics.Migration(report.Copied, report.Migrated, len(report.Skipped))
		if e.hooks.OnMigrate != nil {
			e.hooks.OnMigrate(ctx, &domain.MigrationEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventMigrate},
				Unit:      unitName,
				Report:    report,
			})
		}
	}

	if sa, ok := inst.(unit.StateAware); ok {
		sa.SetState(e.State())
	}
	e.registry.Put(unitName, inst)
	return inst, nil
}

// run is the worker body executed on the pool.
func (e *Engine) run(w *worker, fn func(context.Context) error) {
	err := call(w.ctx, fn)
	if err != nil {
		err = &domain.OperationFailedError{Unit: w.unit, Operation: w.operation, Cause: err}
	}
	w.finish(err)
	w.cancel(nil)
	e.workers.remove(w.id)
	e.metrics.LiveWorkers(e.workers.Count())

	outcome := w.outcome()
	if w.detached {
		e.metrics.Invocation(outcomeLabel(outcome), time.Since(w.started))
		if outcome != nil {
			e.logger.Warn("detached worker ended", "unit", w.unit, "operation", w.operation, "worker_id", w.id, "err", outcome)
		} else {
			e.logger.Info("detached worker ended", "unit", w.unit, "operation", w.operation, "worker_id", w.id)
		}
	}
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(w.ctx, &domain.InvocationEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventComplete},
			Unit:      w.unit,
			Operation: w.operation,
			WorkerID:  w.id,
			Detached:  w.detached,
			Err:       outcome,
		})
	}
}

// await blocks until w ends. Once the worker is interrupted, either by ctx or
// by the supervisor, it is given at most the grace period to stop.
func (e *Engine) await(ctx context.Context, w *worker) error {
	select {
	case <-w.done:
		return w.outcome()
	case <-ctx.Done():
		if w.interrupt() {
			e.metrics.Cancelled(1)
		}
	case <-w.ctx.Done():
	}

	if !w.wait(e.grace) {
		e.logger.Warn("worker ignored interrupt", "unit", w.unit, "operation", w.operation, "worker_id", w.id, "grace", e.grace)
		return domain.ErrCancelled
	}
	return w.outcome()
}

// call runs fn and turns a panic into a *domain.PanicError.
func call(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(ctx)
}

// resolve finds op on inst. The name is tried as given, then with its first
// letter upper-cased so that "increment" finds Increment.
func resolve(inst any, op string) (func(context.Context) error, bool) {
	if op == "" {
		return nil, false
	}
	v := reflect.ValueOf(inst)
	m := v.MethodByName(op)
	if !m.IsValid() {
		r, size := utf8.DecodeRuneInString(op)
		m = v.MethodByName(string(unicode.ToUpper(r)) + op[size:])
	}
	if !m.IsValid() {
		return nil, false
	}

	switch fn := m.Interface().(type) {
	case func():
		return func(context.Context) error { fn(); return nil }, true
	case func() error:
		return func(context.Context) error { return fn() }, true
	case func(context.Context):
		return func(ctx context.Context) error { fn(ctx); return nil }, true
	case func(context.Context) error:
		return fn, true
	}
	return nil, false
}

// Operations lists the runnable methods of inst, sorted by name.
func Operations(inst any) []string {
	v := reflect.ValueOf(inst)
	if !v.IsValid() {
		return nil
	}
	t := v.Type()
	var ops []string
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		if _, ok := resolve(inst, name); ok {
			ops = append(ops, name)
		}
	}
	return ops
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, domain.ErrCancelled):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeFailed
	}
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
