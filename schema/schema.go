// Package schema builds and loads shape tables: the per-kind slot
// descriptors the marshalling engine needs to traverse a node graph.
// Tables can be assembled in code through New and Define, or loaded
// from a TOML grammar file through Load and Parse.
package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/alvoskov/node-marshal/node"
)

// Table is a concrete node.ShapeTable backed by maps. A Table is built
// once and read-only afterwards, so it is safe for concurrent use by any
// number of Marshal and Unmarshal calls.
type Table struct {
	version string
	shapes  map[node.Kind]node.Shape
	names   map[node.Kind]string
	ids     map[string]node.Kind
}

// New returns an empty table with the given version string. The version
// is stamped into every container produced under the table, and loading
// a container requires an exact match.
func New(version string) *Table {
	return &Table{
		version: version,
		shapes:  make(map[node.Kind]node.Shape),
		names:   make(map[node.Kind]string),
		ids:     make(map[string]node.Kind),
	}
}

// Define registers a kind with its name and shape. Redefining an id or
// reusing a name is an error: a grammar with two meanings for one kind
// cannot round-trip.
func (t *Table) Define(name string, id node.Kind, shape node.Shape) error {
	if name == "" {
		return fmt.Errorf("schema: kind %d has no name", id)
	}
	if prev, ok := t.names[id]; ok {
		return fmt.Errorf("schema: kind id %d already defined as %q", id, prev)
	}
	if prev, ok := t.ids[name]; ok {
		return fmt.Errorf("schema: kind name %q already defined as id %d", name, prev)
	}
	t.shapes[id] = shape
	t.names[id] = name
	t.ids[name] = id
	return nil
}

// MustDefine is Define for static grammar construction; it panics on a
// conflicting definition.
func (t *Table) MustDefine(name string, id node.Kind, shape node.Shape) {
	if err := t.Define(name, id, shape); err != nil {
		panic(err)
	}
}

// ShapeOf implements node.ShapeTable.
func (t *Table) ShapeOf(k node.Kind) (node.Shape, bool) {
	shape, ok := t.shapes[k]
	return shape, ok
}

// KindName implements node.ShapeTable. Unknown kinds return "".
func (t *Table) KindName(k node.Kind) string {
	return t.names[k]
}

// Version implements node.ShapeTable.
func (t *Table) Version() string {
	return t.version
}

// KindID resolves a kind name back to its id.
func (t *Table) KindID(name string) (node.Kind, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// Len returns the number of defined kinds.
func (t *Table) Len() int {
	return len(t.shapes)
}

// KindNames returns every defined kind name in lexical order.
func (t *Table) KindNames() []string {
	out := make([]string, 0, len(t.ids))
	for name := range t.ids {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// TOML grammar files
// ---------------------------------------------------------------------------

// grammarFile mirrors the on-disk TOML layout:
//
//	version = "1.0"
//
//	[kinds.block]
//	id = 1
//	slots = ["node", "node", "none"]
type grammarFile struct {
	Version string                 `toml:"version"`
	Kinds   map[string]grammarKind `toml:"kinds"`
}

type grammarKind struct {
	ID    uint16   `toml:"id"`
	Slots []string `toml:"slots"`
}

var slotKindByName = map[string]node.SlotKind{
	"none":    node.SlotNone,
	"raw":     node.SlotRaw,
	"node":    node.SlotNode,
	"value":   node.SlotValue,
	"symbol":  node.SlotSymbol,
	"group":   node.SlotGroup,
	"args":    node.SlotArgs,
	"binding": node.SlotBinding,
}

// Load reads a TOML grammar file from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: cannot read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema: in %s: %w", path, err)
	}
	return t, nil
}

// Parse builds a table from TOML grammar text.
func Parse(data []byte) (*Table, error) {
	var f grammarFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schema: parse error: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("schema: grammar has no version")
	}

	t := New(f.Version)

	// Define in sorted name order so duplicate-id errors are stable.
	names := make([]string, 0, len(f.Kinds))
	for name := range f.Kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		k := f.Kinds[name]
		shape, err := parseShape(k.Slots)
		if err != nil {
			return nil, fmt.Errorf("schema: kind %q: %w", name, err)
		}
		if err := t.Define(name, node.Kind(k.ID), shape); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func parseShape(slots []string) (node.Shape, error) {
	if len(slots) > 3 {
		return node.Shape{}, fmt.Errorf("%d slots declared, at most 3 allowed", len(slots))
	}
	var shape node.Shape
	for i, s := range slots {
		sk, ok := slotKindByName[s]
		if !ok {
			return node.Shape{}, fmt.Errorf("slot %d: unknown slot kind %q", i, s)
		}
		shape[i] = sk
	}
	return shape, nil
}
