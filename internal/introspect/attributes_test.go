package introspect_test

import (
	"reflect"
	"testing"

	"github.com/aretw0/notebook/internal/introspect"
	"github.com/aretw0/notebook/pkg/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ancestor struct {
	ID    string
	Label string
}

type child struct {
	unit.Base
	ancestor
	Label  string // shadows ancestor.Label
	Count  int
	hidden []string
	_      int
}

type left struct{ Dup int }
type right struct{ Dup int }

type ambiguous struct {
	left
	right
	Keep bool
}

func names(attrs []introspect.Attribute) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a.Name)
	}
	return out
}

func TestAttributes_PromotesAncestorsAndSkipsRoot(t *testing.T) {
	attrs := introspect.Attributes(reflect.TypeFor[*child]())

	assert.Equal(t, []string{"ID", "Label", "Count", "hidden"}, names(attrs))

	label, ok := introspect.Lookup(reflect.TypeFor[child](), "Label")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[child](), label.Declaring, "outer field wins")

	id, ok := introspect.Lookup(reflect.TypeFor[child](), "ID")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[ancestor](), id.Declaring)

	hidden, ok := introspect.Lookup(reflect.TypeFor[child](), "hidden")
	require.True(t, ok)
	assert.False(t, hidden.Exported)
}

func TestAttributes_AmbiguousNamesAreDropped(t *testing.T) {
	assert.Equal(t, []string{"Keep"}, names(introspect.Attributes(reflect.TypeFor[ambiguous]())))
}

func TestAttributes_NonStruct(t *testing.T) {
	assert.Nil(t, introspect.Attributes(reflect.TypeFor[int]()))
	assert.Nil(t, introspect.Attributes(nil))
	_, ok := introspect.Lookup(reflect.TypeFor[string](), "x")
	assert.False(t, ok)
}

func TestAttributes_Stable(t *testing.T) {
	a := introspect.Attributes(reflect.TypeFor[child]())
	b := introspect.Attributes(reflect.TypeFor[*child]())
	assert.Equal(t, a, b)
}

func TestField_ReadsAndWritesUnexported(t *testing.T) {
	c := &child{hidden: []string{"a"}}
	attr, ok := introspect.Lookup(reflect.TypeOf(c), "hidden")
	require.True(t, ok)

	f, ok := introspect.Field(reflect.ValueOf(c), attr)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, f.Interface())

	f.Set(reflect.ValueOf([]string{"b", "c"}))
	assert.Equal(t, []string{"b", "c"}, c.hidden)
}

func TestField_RejectsUnaddressable(t *testing.T) {
	attr, _ := introspect.Lookup(reflect.TypeFor[child](), "Count")
	_, ok := introspect.Field(reflect.ValueOf(child{}), attr)
	assert.False(t, ok)

	var nilChild *child
	_, ok = introspect.Field(reflect.ValueOf(nilChild), attr)
	assert.False(t, ok)
}

func TestValues(t *testing.T) {
	c := &child{Count: 3, Label: "outer"}
	c.ID = "x"
	vals := introspect.Values(c)
	assert.Equal(t, 3, vals["Count"])
	assert.Equal(t, "outer", vals["Label"])
	assert.Equal(t, "x", vals["ID"])
	assert.Contains(t, vals, "hidden")
}
