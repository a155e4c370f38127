package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/notebook/pkg/domain"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// worker is the live record of one operation invocation.
type worker struct {
	id        string
	unit      string
	operation string
	started   time.Time
	detached  bool

	ctx         context.Context
	cancel      context.CancelCauseFunc
	done        chan struct{}
	interrupted atomic.Bool

	mu  sync.Mutex
	err error
}

func (w *worker) finish(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
	close(w.done)
}

func (w *worker) result() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// outcome is the invocation result as callers see it: an interrupted worker
// reports ErrCancelled even when its body returned normally.
func (w *worker) outcome() error {
	err := w.result()
	if !w.interrupted.Load() {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	return domain.ErrCancelled
}

func (w *worker) finished() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// interrupt cancels the worker's context once. It reports whether this call
// delivered the interrupt.
func (w *worker) interrupt() bool {
	if w.finished() || !w.interrupted.CompareAndSwap(false, true) {
		return false
	}
	w.cancel(domain.ErrCancelled)
	return true
}

// wait blocks until the worker terminates or the timeout elapses.
func (w *worker) wait(timeout time.Duration) bool {
	if timeout <= 0 {
		return w.finished()
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.done:
		return true
	case <-t.C:
		return false
	}
}

func (w *worker) view() domain.Worker {
	return domain.Worker{
		ID:          w.id,
		Unit:        w.unit,
		Operation:   w.operation,
		Started:     w.started,
		Detached:    w.detached,
		Interrupted: w.interrupted.Load(),
		Done:        w.finished(),
	}
}

// WorkerSet is the live-worker set. The scheduler adds and removes records;
// the supervisor interrupts and reaps.
type WorkerSet struct {
	m cmap.ConcurrentMap[string, *worker]
}

// NewWorkerSet creates an empty set.
func NewWorkerSet() *WorkerSet {
	return &WorkerSet{m: cmap.New[*worker]()}
}

func (s *WorkerSet) add(w *worker) { s.m.Set(w.id, w) }

func (s *WorkerSet) remove(id string) { s.m.Remove(id) }

func (s *WorkerSet) get(id string) (*worker, bool) { return s.m.Get(id) }

func (s *WorkerSet) all() []*worker {
	items := s.m.Items()
	out := make([]*worker, 0, len(items))
	for _, w := range items {
		out = append(out, w)
	}
	return out
}

// Reap removes terminated records and returns how many were removed.
func (s *WorkerSet) Reap() int {
	n := 0
	for _, w := range s.all() {
		if w.finished() && s.m.RemoveCb(w.id, func(_ string, cur *worker, exists bool) bool {
			return exists && cur == w
		}) {
			n++
		}
	}
	return n
}

// InterruptAll interrupts every live, not-yet-interrupted worker and returns
// how many interrupts were delivered.
func (s *WorkerSet) InterruptAll() int {
	n := 0
	for _, w := range s.all() {
		if w.interrupt() {
			n++
		}
	}
	return n
}

// Interrupt interrupts one worker by ID.
func (s *WorkerSet) Interrupt(id string) bool {
	w, ok := s.get(id)
	if !ok {
		return false
	}
	return w.interrupt()
}

// Live returns views of the registered workers, oldest first.
func (s *WorkerSet) Live() []domain.Worker {
	ws := s.all()
	out := make([]domain.Worker, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.view())
	}
	sortWorkers(out)
	return out
}

// Count returns the number of registered records.
func (s *WorkerSet) Count() int { return s.m.Count() }

func sortWorkers(ws []domain.Worker) {
	sort.Slice(ws, func(i, j int) bool {
		if !ws[i].Started.Equal(ws[j].Started) {
			return ws[i].Started.Before(ws[j].Started)
		}
		return ws[i].ID < ws[j].ID
	})
}
