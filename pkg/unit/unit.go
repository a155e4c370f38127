// Package unit is the authoring API for reloadable units.
//
// A unit is a pointer-to-struct Go type registered under a stable, qualified
// name. Its fields are the attributes the kernel migrates across reloads and
// its methods are the operations a command can invoke:
//
//	type Counter struct {
//		unit.Base
//		N int
//	}
//
//	func (c *Counter) Increment() { c.N++ }
//
//	func Register(r unit.Registrar) {
//		r.Define(unit.Define("cells.Counter", func() *Counter { return &Counter{} }))
//	}
//
// Plugins built from a search root export exactly that Register function.
package unit

import (
	"fmt"
	"reflect"
)

// Base is the common root type shared by all units.
// Embedding it is optional; nothing declared on it is ever migrated.
type Base struct{}

// BaseType is the reflect.Type of Base.
var BaseType = reflect.TypeFor[Base]()

// Definition is one loadable version of a unit.
type Definition struct {
	Name string
	// Type is always a pointer to a struct.
	Type reflect.Type
	New  func() any
}

// Define builds a Definition from a typed constructor.
func Define[T any](name string, ctor func() *T) Definition {
	def := Definition{
		Name: name,
		Type: reflect.TypeFor[*T](),
	}
	if ctor != nil {
		def.New = func() any { return ctor() }
	}
	return def
}

// Validate reports whether the definition can be registered.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("unit definition has no name")
	}
	if d.Type == nil || d.Type.Kind() != reflect.Pointer || d.Type.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unit %s: type %v is not a pointer to a struct", d.Name, d.Type)
	}
	return nil
}

// Registrar receives unit definitions from a source.
type Registrar interface {
	Define(defs ...Definition)
}

// RegisterFunc is the symbol a unit plugin exports as "Register".
type RegisterFunc = func(Registrar)

// StateAware units receive the kernel's shared state mapping after every
// construction and migration.
type StateAware interface {
	SetState(state map[string]any)
}
