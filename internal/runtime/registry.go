package runtime

import (
	"sort"
	"sync"
)

// Registry holds the single live instance of every unit name.
// Only the command loop writes to it; the mutex exists for concurrent readers
// such as the introspection endpoint.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]any)}
}

// Get returns the live instance of name.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Put replaces the live instance of name.
func (r *Registry) Put(name string, inst any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[name] = inst
}

// Names returns the registered unit names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the name -> instance table.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.instances))
	for name, inst := range r.instances {
		out[name] = inst
	}
	return out
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Clear drops every entry and returns what was held.
func (r *Registry) Clear() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.instances
	r.instances = make(map[string]any)
	return old
}
