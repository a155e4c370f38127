package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/aretw0/notebook/internal/introspect"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/aretw0/notebook/pkg/ports"
)

var errInaccessible = errors.New("attribute is not addressable")

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

type migrator struct {
	lc      ports.LoadingContext
	logger  *slog.Logger
	visited map[visitKey]reflect.Value
	report  domain.MigrationReport
}

// Migrate copies attribute values from prev into next, two instances of the
// same unit name whose definitions may differ. Values of platform types are
// shared by reference; values of unit types are re-created through lc and
// migrated recursively. Each attribute is best-effort: failures are reported
// and logged, never fatal.
func Migrate(lc ports.LoadingContext, unitName string, prev, next any, logger *slog.Logger) domain.MigrationReport {
	m := &migrator{
		lc:      lc,
		logger:  logger,
		visited: make(map[visitKey]reflect.Value),
	}
	pv, nv := reflect.ValueOf(prev), reflect.ValueOf(next)
	if !isInstance(pv) || !isInstance(nv) {
		return m.report
	}
	m.visited[keyOf(pv)] = nv
	m.copyInto(unitName, pv, nv)
	return m.report
}

func isInstance(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct
}

func keyOf(v reflect.Value) visitKey {
	return visitKey{ptr: v.Pointer(), typ: v.Type()}
}

func (m *migrator) copyInto(path string, prev, next reflect.Value) {
	prevType := prev.Type()
	for _, attr := range introspect.Attributes(next.Type()) {
		old, ok := introspect.Lookup(prevType, attr.Name)
		if !ok {
			continue
		}
		src, ok := introspect.Field(prev, old)
		if !ok {
			m.skip(path, attr.Name, errInaccessible)
			continue
		}
		if absent(src) {
			continue
		}
		dst, ok := introspect.Field(next, attr)
		if !ok {
			m.skip(path, attr.Name, errInaccessible)
			continue
		}

		val, owned, err := m.translate(path+"."+attr.Name, src)
		if err != nil {
			m.skip(path, attr.Name, err)
			continue
		}
		if err := assign(dst, val); err != nil {
			m.skip(path, attr.Name, err)
			continue
		}
		if owned {
			m.report.Migrated++
		} else {
			m.report.Copied++
		}
	}
}

// translate returns the value to store in the new instance and whether it
// belongs to the reloadable codebase.
func (m *migrator) translate(path string, src reflect.Value) (reflect.Value, bool, error) {
	v := src
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	name, owned := m.lc.UnitName(v.Type())
	if !owned {
		return v, false, nil
	}

	switch v.Kind() {
	case reflect.Pointer:
		key := keyOf(v)
		if fresh, ok := m.visited[key]; ok {
			return fresh, true, nil
		}
		fresh, err := m.instantiate(name)
		if err != nil {
			return reflect.Value{}, true, err
		}
		m.visited[key] = fresh
		m.copyInto(path, v, fresh)
		return fresh, true, nil

	case reflect.Struct:
		fresh, err := m.instantiate(name)
		if err != nil {
			return reflect.Value{}, true, err
		}
		old := v
		if !old.CanAddr() {
			tmp := reflect.New(old.Type())
			tmp.Elem().Set(old)
			old = tmp
		}
		m.copyInto(path, old, fresh)
		return fresh.Elem(), true, nil
	}
	return v, false, nil
}

func (m *migrator) instantiate(name string) (reflect.Value, error) {
	inst, err := m.lc.New(name)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(inst), nil
}

func (m *migrator) skip(path, attribute string, reason error) {
	m.report.Skipped = append(m.report.Skipped, domain.AttributeSkippedError{
		Unit:      path,
		Attribute: attribute,
		Reason:    reason,
	})
	m.logger.Warn("migration attribute skipped", "unit", path, "attribute", attribute, "err", reason)
}

// absent reports nil values, looking through an interface so that a typed
// nil pointer held in one counts as absent too.
func absent(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || absent(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func assign(dst, val reflect.Value) (err error) {
	if !val.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("%s is not assignable to %s", val.Type(), dst.Type())
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assign: %v", r)
		}
	}()
	dst.Set(val)
	return nil
}
