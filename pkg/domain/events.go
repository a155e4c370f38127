package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventInvoke   EventType = "invoke"
	EventComplete EventType = "complete"
	EventMigrate  EventType = "migrate"
	EventRelease  EventType = "release"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// InvocationEvent represents the start or end of an operation invocation.
type InvocationEvent struct {
	EventBase
	Unit      string `json:"unit"`
	Operation string `json:"operation"`
	WorkerID  string `json:"worker_id,omitempty"`
	Detached  bool   `json:"detached,omitempty"`
	Err       error  `json:"-"`
}

// MigrationEvent is emitted after state moved into a freshly loaded instance.
type MigrationEvent struct {
	EventBase
	Unit   string          `json:"unit"`
	Report MigrationReport `json:"report"`
}

// ReleaseEvent is emitted for every resource closed during teardown.
type ReleaseEvent struct {
	EventBase
	Path []string `json:"path"`
	Err  error    `json:"-"`
}

// LifecycleHooks defines callbacks for kernel observability.
type LifecycleHooks struct {
	OnInvoke   func(context.Context, *InvocationEvent)
	OnComplete func(context.Context, *InvocationEvent)
	OnMigrate  func(context.Context, *MigrationEvent)
	OnRelease  func(context.Context, *ReleaseEvent)
}
