package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/aretw0/notebook/pkg/domain"
	"github.com/aretw0/notebook/pkg/ports"
	"github.com/aretw0/notebook/pkg/unit"
)

// Loader implements ports.UnitLoader over an in-process catalog of definitions.
// Calling Define again for an existing name is the in-process equivalent of
// editing the unit's source: contexts opened afterwards see the new version.
type Loader struct {
	mu       sync.RWMutex
	defs     map[string]unit.Definition
	index    *unit.Index
	watchers []chan struct{}
}

// NewLoader creates a Loader with an initial set of definitions.
func NewLoader(defs ...unit.Definition) *Loader {
	l := &Loader{
		defs:  make(map[string]unit.Definition),
		index: unit.NewIndex(),
	}
	l.Define(defs...)
	return l
}

// Define registers or replaces definitions. Invalid definitions are ignored.
func (l *Loader) Define(defs ...unit.Definition) {
	l.mu.Lock()
	for _, def := range defs {
		if def.Validate() != nil {
			continue
		}
		l.defs[def.Name] = def
		l.index.Add(def)
	}
	l.mu.Unlock()
	l.notify()
}

// Remove drops the current definition of name. Existing instances keep working.
func (l *Loader) Remove(name string) {
	l.mu.Lock()
	delete(l.defs, name)
	l.mu.Unlock()
	l.notify()
}

// Open snapshots the current definitions into an isolated loading context.
func (l *Loader) Open(_ context.Context) (ports.LoadingContext, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snapshot := make(map[string]unit.Definition, len(l.defs))
	for name, def := range l.defs {
		snapshot[name] = def
	}
	return NewContext(snapshot, l.index), nil
}

// UnitName classifies a type against every generation ever defined.
func (l *Loader) UnitName(t reflect.Type) (string, bool) {
	return l.index.UnitName(t)
}

// Roots returns nil: the catalog has no filesystem search roots.
func (l *Loader) Roots() []string { return nil }

// Watch returns a channel that is signaled on every Define/Remove.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, w := range l.watchers {
			if w == ch {
				l.watchers = append(l.watchers[:i], l.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (l *Loader) notify() {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, w := range l.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

// Context is a snapshot of definitions; it implements ports.LoadingContext.
type Context struct {
	defs  map[string]unit.Definition
	index *unit.Index
	cause error
}

// NewContext wraps a set of definitions resolved by any source.
// Other loaders (e.g. the plugin loader) reuse it once they have collected definitions.
func NewContext(defs map[string]unit.Definition, index *unit.Index) *Context {
	return &Context{defs: defs, index: index}
}

// WithCause records why some definitions may be missing from the context,
// e.g. a source that failed to build. Unknown names report it.
func (c *Context) WithCause(err error) *Context {
	c.cause = err
	return c
}

// New instantiates the snapshotted definition of name.
func (c *Context) New(name string) (any, error) {
	def, ok := c.defs[name]
	if !ok {
		if c.cause != nil {
			return nil, fmt.Errorf("%w: %s (%w)", domain.ErrUnitNotFound, name, c.cause)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, name)
	}
	return Construct(def)
}

// UnitName implements ports.Classifier.
func (c *Context) UnitName(t reflect.Type) (string, bool) {
	return c.index.UnitName(t)
}

// Units lists the names this context resolves.
func (c *Context) Units() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Construct runs a definition's zero-argument constructor, turning panics and
// malformed results into domain.ErrConstructionFailed.
func Construct(def unit.Definition) (inst any, err error) {
	if def.New == nil {
		return nil, fmt.Errorf("%w: %s has no zero-argument constructor", domain.ErrConstructionFailed, def.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = fmt.Errorf("%w: %s: panic: %v", domain.ErrConstructionFailed, def.Name, r)
		}
	}()
	inst = def.New()
	v := reflect.ValueOf(inst)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s constructor returned %T", domain.ErrConstructionFailed, def.Name, inst)
	}
	return inst, nil
}
