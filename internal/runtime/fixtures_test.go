package runtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/aretw0/notebook/pkg/unit"
)

type counterV1 struct {
	unit.Base
	Count int
}

func (c *counterV1) Increment() { c.Count++ }

type counterV2 struct {
	unit.Base
	Count int
	Label string
}

func (c *counterV2) Increment() { c.Count += 10 }

type counterV3 struct {
	unit.Base
	Label string
}

func (c *counterV3) Increment() {}

// conn stands in for a platform resource such as a database handle.
type conn struct {
	closed atomic.Int32
	err    error
}

func (c *conn) Close() error {
	c.closed.Add(1)
	return c.err
}

type childV1 struct {
	N    int
	Conn *conn
}

type childV2 struct {
	N     int
	Conn  *conn
	Extra string
}

type parentV1 struct {
	unit.Base
	Child *childV1
	Conn  *conn
	Tags  []string
}

func (p *parentV1) Touch() {}

type parentV2 struct {
	unit.Base
	Child *childV2
	Conn  *conn
	Tags  []string
}

func (p *parentV2) Touch() {}

type nodeV1 struct {
	Name string
	Next *nodeV1
}

type nodeV2 struct {
	Name string
	Next *nodeV2
}

type retyped struct {
	unit.Base
	Count string
}

type job struct {
	unit.Base
	release chan struct{}
	state   map[string]any
	mu      sync.Mutex
	calls   int
}

func newJob() *job { return &job{release: make(chan struct{})} }

func (w *job) SetState(state map[string]any) { w.state = state }

// Loop runs until interrupted.
func (w *job) Loop(ctx context.Context) error {
	<-ctx.Done()
	return context.Cause(ctx)
}

// Stubborn ignores interrupts until released.
func (w *job) Stubborn() {
	<-w.release
}

func (w *job) Fail() error { return errors.New("boom") }

func (w *job) Explode() { panic("kaboom") }

func (w *job) Remember() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	w.state["calls"] = w.calls
}

func (w *job) Arity(int) {}

// stubSignal fires a fixed number of times.
type stubSignal struct {
	pending atomic.Int32
	err     error
}

func (s *stubSignal) Raise() { s.pending.Add(1) }

func (s *stubSignal) Consume(context.Context) (bool, error) {
	for {
		n := s.pending.Load()
		if n <= 0 {
			return false, nil
		}
		if s.pending.CompareAndSwap(n, n-1) {
			return true, s.err
		}
	}
}

type holder struct {
	unit.Base
	Conn *conn
	Box  *box
}

func (h *holder) Touch() {}

// box is a platform value; its contents belong to whoever built it.
type box struct {
	Inner *conn
}

type closing struct {
	unit.Base
	closed int
}

func (c *closing) Touch() {}

func (c *closing) Close() error {
	c.closed++
	return nil
}

type anyHolder struct {
	unit.Base
	Child any
}
