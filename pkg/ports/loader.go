package ports

import (
	"context"
	"reflect"
)

// Classifier decides whether a type belongs to the reloadable codebase.
// Types it does not know are platform/library types: shared by reference,
// never recursed into and never re-instantiated.
type Classifier interface {
	// UnitName returns the unit name of a pointer-to-struct or struct type.
	UnitName(t reflect.Type) (string, bool)
}

// UnitLoader produces loading contexts over a fixed set of search roots.
// This allows the definition source (in-process catalog, Go plugins) to be decoupled.
type UnitLoader interface {
	Classifier

	// Open returns a fresh, isolated loading context holding the current
	// definitions. Every command that (re)loads a unit opens its own context.
	Open(ctx context.Context) (LoadingContext, error)

	// Roots returns the search roots, in resolution order.
	Roots() []string
}

// LoadingContext is the namespace scoping one reload/construction pass.
type LoadingContext interface {
	Classifier

	// New instantiates the current definition of name with its zero-argument constructor.
	// It returns domain.ErrUnitNotFound or domain.ErrConstructionFailed.
	New(name string) (any, error)

	// Units lists the unit names this context resolves, sorted.
	Units() []string
}

// Watchable defines an interface for loaders that can notify about definition changes.
type Watchable interface {
	// Watch returns a channel that is signaled when definitions change.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
