package observability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/notebook/pkg/domain"
)

// Record is one line of the event stream. Err carries the error text that
// the in-memory events keep as an error value.
type Record struct {
	Event any    `json:"event"`
	Err   string `json:"err,omitempty"`
}

// EventStream writes every kernel event to w as JSON Lines. Hooks run on
// worker goroutines, so writes are serialised.
type EventStream struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *slog.Logger
}

// NewEventStream creates a stream over w. Write failures are logged, never
// returned to the kernel.
func NewEventStream(w io.Writer, logger *slog.Logger) *EventStream {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EventStream{enc: json.NewEncoder(w), logger: logger}
}

// Hooks returns the lifecycle hooks that feed the stream.
func (s *EventStream) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInvoke: func(_ context.Context, e *domain.InvocationEvent) {
			s.write(e, e.Err)
		},
		OnComplete: func(_ context.Context, e *domain.InvocationEvent) {
			s.write(e, e.Err)
		},
		OnMigrate: func(_ context.Context, e *domain.MigrationEvent) {
			s.write(e, nil)
		},
		OnRelease: func(_ context.Context, e *domain.ReleaseEvent) {
			s.write(e, e.Err)
		},
	}
}

func (s *EventStream) write(event any, err error) {
	rec := Record{Event: event}
	if err != nil {
		rec.Err = err.Error()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if werr := s.enc.Encode(rec); werr != nil {
		s.logger.Warn("event stream write failed", "err", werr)
	}
}
