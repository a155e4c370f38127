package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/notebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(id string, started time.Time) *worker {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &worker{
		id:        id,
		unit:      "Unit",
		operation: "Op",
		started:   started,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func TestWorkerSet_ReapRemovesFinishedOnly(t *testing.T) {
	s := NewWorkerSet()
	now := time.Now()
	running := newTestWorker("a", now)
	finished := newTestWorker("b", now.Add(time.Millisecond))
	finished.finish(nil)
	s.add(running)
	s.add(finished)

	assert.Equal(t, 1, s.Reap())
	assert.Equal(t, 1, s.Count())
	_, ok := s.get("a")
	assert.True(t, ok)
}

func TestWorkerSet_InterruptAllOncePerWorker(t *testing.T) {
	s := NewWorkerSet()
	w := newTestWorker("a", time.Now())
	s.add(w)

	assert.Equal(t, 1, s.InterruptAll())
	assert.Equal(t, 0, s.InterruptAll())
	assert.ErrorIs(t, context.Cause(w.ctx), domain.ErrCancelled)
	assert.False(t, s.Interrupt("missing"))
}

func TestWorkerSet_LiveIsOrderedByStart(t *testing.T) {
	s := NewWorkerSet()
	now := time.Now()
	s.add(newTestWorker("late", now.Add(time.Second)))
	s.add(newTestWorker("b", now))
	s.add(newTestWorker("a", now))

	var ids []string
	for _, w := range s.Live() {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []string{"a", "b", "late"}, ids)
}

func TestWorker_Outcome(t *testing.T) {
	ok := newTestWorker("ok", time.Now())
	ok.finish(nil)
	assert.NoError(t, ok.outcome())

	failed := newTestWorker("failed", time.Now())
	failed.interrupt()
	failed.finish(errors.New("late failure"))
	err := failed.outcome()
	require.ErrorIs(t, err, domain.ErrCancelled)
	assert.Contains(t, err.Error(), "late failure")

	done := newTestWorker("done", time.Now())
	done.finish(nil)
	assert.False(t, done.interrupt(), "finished workers are not interrupted")
}

func TestWorker_WaitHonoursTimeout(t *testing.T) {
	w := newTestWorker("a", time.Now())
	assert.False(t, w.wait(5*time.Millisecond))
	assert.False(t, w.wait(0))
	w.finish(nil)
	assert.True(t, w.wait(0))
}

func TestSupervisor_StopIsIdempotent(t *testing.T) {
	s := NewSupervisor(NewWorkerSet(), nil, WithSupervisorSchedule(time.Millisecond, time.Millisecond))
	s.Stop()
	s.Start()
	s.Stop()

	s = NewSupervisor(NewWorkerSet(), nil, WithSupervisorSchedule(time.Millisecond, time.Millisecond))
	s.Start()
	s.Stop()
	s.Stop()
}

type failingSignal struct{ calls int }

func (f *failingSignal) Consume(context.Context) (bool, error) {
	f.calls++
	return false, errors.New("unreachable store")
}

func TestSupervisor_TickReapsAndSurvivesSignalErrors(t *testing.T) {
	ws := NewWorkerSet()
	w := newTestWorker("a", time.Now())
	w.finish(nil)
	ws.add(w)
	sig := &failingSignal{}
	s := NewSupervisor(ws, sig)

	assert.Zero(t, s.Tick(context.Background()))
	assert.Zero(t, ws.Count())
	assert.Equal(t, 1, sig.calls)
}
