// Package graph renders the retained-instance graph of a kernel: live units,
// the nested unit instances they own and the resources they hold.
package graph

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/notebook/internal/introspect"
)

// NodeKind distinguishes the shapes drawn for a node.
type NodeKind int

const (
	// KindUnit is a registry entry.
	KindUnit NodeKind = iota
	// KindNested is a unit instance reachable from another unit.
	KindNested
	// KindResource is a releasable platform value.
	KindResource
)

// Node is one retained object.
type Node struct {
	ID    string
	Label string
	Kind  NodeKind
}

// Edge links an owner to an attribute value.
type Edge struct {
	From, To string
	Label    string
}

// Graph is the retained-instance graph.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Classifier reports whether t is a unit type.
type Classifier func(t reflect.Type) (string, bool)

// Build walks every instance in name order. A value reached twice becomes one
// node with two incoming edges.
func Build(instances map[string]any, classify Classifier) Graph {
	b := &builder{classify: classify, seen: make(map[uintptr]string)}
	names := make([]string, 0, len(instances))
	for name := range instances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := reflect.ValueOf(instances[name])
		if v.Kind() != reflect.Pointer || v.IsNil() {
			continue
		}
		b.seen[v.Pointer()] = name
		b.g.Nodes = append(b.g.Nodes, Node{ID: name, Label: name, Kind: KindUnit})
		b.attributes(name, v)
	}
	return b.g
}

type builder struct {
	classify Classifier
	seen     map[uintptr]string
	g        Graph
}

func (b *builder) attributes(owner string, v reflect.Value) {
	for _, a := range introspect.Attributes(v.Type()) {
		f, ok := introspect.Field(v, a)
		if !ok {
			continue
		}
		b.value(owner, a.Name, f)
	}
}

func (b *builder) value(owner, attr string, f reflect.Value) {
	for f.Kind() == reflect.Interface && !f.IsNil() {
		f = f.Elem()
	}
	if f.Kind() != reflect.Pointer || f.IsNil() {
		return
	}
	if id, ok := b.seen[f.Pointer()]; ok {
		b.g.Edges = append(b.g.Edges, Edge{From: owner, To: id, Label: attr})
		return
	}

	id := owner + "." + attr
	name, isUnit := b.classify(f.Type())
	switch {
	case isUnit:
		b.seen[f.Pointer()] = id
		b.g.Nodes = append(b.g.Nodes, Node{ID: id, Label: name, Kind: KindNested})
		b.g.Edges = append(b.g.Edges, Edge{From: owner, To: id, Label: attr})
		b.attributes(id, f)
	case f.CanInterface():
		if _, ok := f.Interface().(io.Closer); !ok {
			return
		}
		b.seen[f.Pointer()] = id
		b.g.Nodes = append(b.g.Nodes, Node{ID: id, Label: f.Type().String(), Kind: KindResource})
		b.g.Edges = append(b.g.Edges, Edge{From: owner, To: id, Label: attr})
	}
}

// Overlay highlights units that currently run operations.
type Overlay struct {
	Active []string
}

// GenerateMermaid produces a Mermaid flowchart from a graph:
// - Unit: [Rectangle]
// - Nested unit: (Rounded)
// - Resource: [[Subroutine]]
func GenerateMermaid(g Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, n := range g.Nodes {
		opener, closer := "[", "]"
		switch n.Kind {
		case KindNested:
			opener, closer = "(", ")"
		case KindResource:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(n.ID), opener, escape(n.Label), closer)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(e.From), escape(e.Label), sanitizeMermaidID(e.To))
	}

	if overlay != nil && len(overlay.Active) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		done := make(map[string]bool)
		for _, id := range overlay.Active {
			safe := sanitizeMermaidID(id)
			if safe != "" && !done[safe] {
				done[safe] = true
				fmt.Fprintf(&sb, "    class %s active;\n", safe)
			}
		}
	}
	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", "*", "_").Replace(id)
}
