package runtime

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/notebook/internal/introspect"
	"github.com/aretw0/notebook/pkg/domain"
)

// statePath prefixes release paths of shared-state entries.
const statePath = "$state"

// Shutdown releases every resource reachable from the live instances and the
// shared state, then stops the supervisor, interrupts the remaining workers
// and clears the registry. Only the first call does work.
func (e *Engine) Shutdown(ctx context.Context) domain.TeardownReport {
	var report domain.TeardownReport
	e.shutdownOnce.Do(func() {
		e.closed.Store(true)
		report = e.teardown(ctx)
	})
	return report
}

func (e *Engine) teardown(ctx context.Context) domain.TeardownReport {
	e.logger.Info("closing instances", "count", e.registry.Len())
	r := &releaser{
		engine:  e,
		ctx:     ctx,
		visited: make(map[visitKey]bool),
	}
	for _, name := range e.registry.Names() {
		inst, _ := e.registry.Get(name)
		r.walk([]string{name}, reflect.ValueOf(inst))
	}

	state := e.State()
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.walk([]string{statePath, k}, reflect.ValueOf(state[k]))
	}

	e.supervisor.Stop()
	for _, w := range e.workers.all() {
		if w.interrupt() {
			e.metrics.Cancelled(1)
		}
		if !w.wait(e.grace) {
			e.logger.Warn("worker did not stop within grace period",
				"unit", w.unit, "operation", w.operation, "worker_id", w.id, "grace", e.grace)
			r.report.Abandoned = append(r.report.Abandoned, w.view())
		}
	}
	sortWorkers(r.report.Abandoned)

	e.pool.Release()
	e.registry.Clear()
	e.logger.Info("finished closing instances",
		"released", len(r.report.Released), "failed", len(r.report.Failures), "abandoned", len(r.report.Abandoned))
	return r.report
}

type releaser struct {
	engine  *Engine
	ctx     context.Context
	visited map[visitKey]bool
	report  domain.TeardownReport
}

// walk releases v if it is a closer and descends into it when it belongs to
// the reloadable codebase. Platform values are released but never entered.
func (r *releaser) walk(path []string, v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() || absent(v) {
		return
	}
	if v.Kind() == reflect.Pointer {
		key := keyOf(v)
		if r.visited[key] {
			return
		}
		r.visited[key] = true
	}

	if c, ok := closerOf(v); ok {
		r.release(path, c)
	}

	if _, owned := r.engine.loader.UnitName(v.Type()); !owned {
		return
	}
	for _, a := range introspect.Attributes(v.Type()) {
		f, ok := introspect.Field(v, a)
		if !ok {
			continue
		}
		r.walk(append(path[:len(path):len(path)], a.Name), f)
	}
}

func closerOf(v reflect.Value) (io.Closer, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if c, ok := v.Interface().(io.Closer); ok {
		return c, true
	}
	if v.Kind() == reflect.Struct && v.CanAddr() {
		if c, ok := v.Addr().Interface().(io.Closer); ok {
			return c, true
		}
	}
	return nil, false
}

func (r *releaser) release(path []string, c io.Closer) {
	name := strings.Join(path, ".")
	err := closeSafely(c)
	if err != nil {
		r.report.Failures = append(r.report.Failures, domain.ReleaseError{Path: path, Err: err})
		r.engine.logger.Warn("release failed", "path", name, "err", err)
	} else {
		r.report.Released = append(r.report.Released, name)
		r.engine.logger.Debug("released", "path", name)
	}
	r.engine.metrics.Released(err)
	if r.engine.hooks.OnRelease != nil {
		r.engine.hooks.OnRelease(r.ctx, &domain.ReleaseEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRelease},
			Path:      path,
			Err:       err,
		})
	}
}

func closeSafely(c io.Closer) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("close panicked: %v", rec)
		}
	}()
	return c.Close()
}
