package unit

import (
	"reflect"
	"sort"
	"sync"
)

// Index maps every registered unit type, of every generation, to its unit name.
// Instances outlive the loading context that built them, so classification of
// old values needs a table that is never pruned.
type Index struct {
	mu    sync.RWMutex
	types map[reflect.Type]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{types: make(map[reflect.Type]string)}
}

// Add records the definition's type.
func (x *Index) Add(def Definition) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.types[def.Type] = def.Name
}

// UnitName resolves a pointer-to-struct or struct type to its unit name.
func (x *Index) UnitName(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}
	if t.Kind() == reflect.Struct {
		t = reflect.PointerTo(t)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	name, ok := x.types[t]
	return name, ok
}

// Names returns the distinct unit names ever recorded, sorted.
func (x *Index) Names() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	seen := make(map[string]struct{}, len(x.types))
	for _, name := range x.types {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
