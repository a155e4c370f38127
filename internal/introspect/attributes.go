// Package introspect enumerates the attributes (storage slots) of unit types.
package introspect

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/aretw0/notebook/pkg/unit"
)

// Attribute is one named, typed storage slot of a unit type.
type Attribute struct {
	Name string
	// Index is the field path for reflect.Value.FieldByIndex. It only crosses
	// embedded struct values, never pointers.
	Index     []int
	Type      reflect.Type
	Declaring reflect.Type
	Exported  bool
}

type descriptor struct {
	attrs  []Attribute
	byName map[string]int
}

var descriptors sync.Map // reflect.Type -> *descriptor

// Attributes returns the attributes of a struct or pointer-to-struct type in
// declaration order, fields of embedded structs promoted in place.
// The shared root type unit.Base contributes nothing.
func Attributes(t reflect.Type) []Attribute {
	d := describe(t)
	if d == nil {
		return nil
	}
	return d.attrs
}

// Lookup finds an attribute by name.
func Lookup(t reflect.Type, name string) (Attribute, bool) {
	d := describe(t)
	if d == nil {
		return Attribute{}, false
	}
	i, ok := d.byName[name]
	if !ok {
		return Attribute{}, false
	}
	return d.attrs[i], true
}

// Field returns a settable view of the attribute on v, which must be a
// non-nil pointer to a struct or an addressable struct.
func Field(v reflect.Value, a Attribute) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct || !v.CanAddr() {
		return reflect.Value{}, false
	}
	f, err := v.FieldByIndexErr(a.Index)
	if err != nil || !f.CanAddr() {
		return reflect.Value{}, false
	}
	if !f.CanSet() {
		// unexported: same memory, without the read-only flag
		f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
	}
	return f, true
}

// Values returns attribute name to current value for a unit instance.
func Values(inst any) map[string]any {
	v := reflect.ValueOf(inst)
	out := make(map[string]any)
	for _, a := range Attributes(v.Type()) {
		f, ok := Field(v, a)
		if !ok {
			continue
		}
		out[a.Name] = f.Interface()
	}
	return out
}

func describe(t reflect.Type) *descriptor {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if d, ok := descriptors.Load(t); ok {
		return d.(*descriptor)
	}
	d, _ := descriptors.LoadOrStore(t, build(t))
	return d.(*descriptor)
}

type candidate struct {
	attr  Attribute
	depth int
}

func build(t reflect.Type) *descriptor {
	var cands []candidate
	collect(t, nil, 0, &cands)

	shallowest := make(map[string]int)
	for _, c := range cands {
		if d, ok := shallowest[c.attr.Name]; !ok || c.depth < d {
			shallowest[c.attr.Name] = c.depth
		}
	}
	atDepth := make(map[string]int)
	for _, c := range cands {
		if c.depth == shallowest[c.attr.Name] {
			atDepth[c.attr.Name]++
		}
	}

	d := &descriptor{byName: make(map[string]int)}
	for _, c := range cands {
		// deeper names are shadowed; equal-depth duplicates are ambiguous
		if c.depth != shallowest[c.attr.Name] || atDepth[c.attr.Name] != 1 {
			continue
		}
		d.byName[c.attr.Name] = len(d.attrs)
		d.attrs = append(d.attrs, c.attr)
	}
	return d
}

var basePtr = reflect.PointerTo(unit.BaseType)

func collect(t reflect.Type, index []int, depth int, out *[]candidate) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "_" {
			continue
		}
		idx := make([]int, len(index)+1)
		copy(idx, index)
		idx[len(index)] = i

		if f.Anonymous {
			if f.Type == unit.BaseType || f.Type == basePtr {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				collect(f.Type, idx, depth+1, out)
				continue
			}
		}
		*out = append(*out, candidate{
			attr: Attribute{
				Name:      f.Name,
				Index:     idx,
				Type:      f.Type,
				Declaring: t,
				Exported:  f.IsExported(),
			},
			depth: depth,
		})
	}
}
