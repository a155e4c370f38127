/*
Package notebook is a stateful hot-reload execution kernel.

A Kernel keeps one live instance of every unit you invoke. Each invocation
loads the unit's current definition, builds a fresh instance, carries the
previous instance's state into it field by field, and runs the requested
operation on a worker. Editing a unit between invocations therefore keeps its
accumulated state: fields that still exist keep their values, new fields get
their defaults, removed fields are dropped.

# Units

A unit is a pointer-to-struct type registered under a stable name:

	type Counter struct {
		unit.Base
		Count int
	}

	func (c *Counter) Increment() { c.Count++ }

	loader := memory.NewLoader(unit.Define("Counter", func() *Counter { return &Counter{} }))

Operations are methods with one of the signatures func(), func() error,
func(context.Context) or func(context.Context) error. The context is the
worker's interrupt: it is cancelled when a cancellation signal is observed,
when the caller's context ends, or on shutdown.

Values whose type is itself a unit are rebuilt on reload and migrated
recursively. Everything else (connections, caches, slices, maps) is handed to
the new instance by reference.

# Usage

	k, err := notebook.New(loader, notebook.WithSignal(file.NewSignal("cancel.signal")))
	if err != nil {
		log.Fatal(err)
	}
	defer k.Close()

	if _, err := k.Invoke(ctx, "Counter", "Increment"); err != nil {
		log.Print(err)
	}

For source-based units, pkg/adapters/plugin compiles search roots into Go
plugins; pkg/runner provides the interactive command loop used by
cmd/notebook.
*/
package notebook
