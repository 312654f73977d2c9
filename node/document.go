package node

import (
	"fmt"
	"reflect"

	"github.com/alvoskov/node-marshal/base85"
)

// MarshalText is Marshal with the container rendered as base85 text, for
// embedding a graph in quoted source.
func MarshalText(root *Node, table ShapeTable, opts ...Option) ([]byte, error) {
	data, err := Marshal(root, table, opts...)
	if err != nil {
		return nil, err
	}
	return []byte(base85.Encode(data)), nil
}

// UnmarshalText is Unmarshal over base85 text produced by MarshalText.
func UnmarshalText(text []byte, table ShapeTable, opts ...Option) (*Node, error) {
	data, err := base85.Decode(string(text))
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, table, opts...)
}

// ---------------------------------------------------------------------------
// Document inspection
// ---------------------------------------------------------------------------

// Document is a parsed container held in its serialized form. It allows
// inspecting and editing a container without a shape table and without
// reconstructing the graph, so a document from a foreign platform or
// table version can still be examined.
type Document struct {
	c *container
}

// ParseDocument parses container bytes into a Document. Only the magic is
// checked; platform and version gating happens at Unmarshal time.
func ParseDocument(data []byte) (*Document, error) {
	c, err := unmarshalContainer(data)
	if err != nil {
		return nil, err
	}
	if c.Magic != MagicTag {
		return nil, &CompatibilityError{Field: "magic", Got: c.Magic, Want: MagicTag}
	}
	return &Document{c: c}, nil
}

// Name returns the descriptive name recorded in the container.
func (d *Document) Name() string { return d.c.Name }

// File returns the source file recorded in the container.
func (d *Document) File() string { return d.c.File }

// Path returns the load path recorded in the container.
func (d *Document) Path() string { return d.c.Path }

// Platform returns the platform tag of the producing environment.
func (d *Document) Platform() string { return d.c.Platform }

// Version returns the shape-table version the container was produced
// under.
func (d *Document) Version() string { return d.c.Version }

// Symbols returns a copy of the container's symbol table in ordinal
// order.
func (d *Document) Symbols() []string {
	out := make([]string, len(d.c.Symbols))
	copy(out, d.c.Symbols)
	return out
}

// Values returns a copy of the container's literal value table in
// ordinal order. The copy is shallow; edit entries through ReplaceValue.
func (d *Document) Values() []any {
	out := make([]any, len(d.c.Values))
	copy(out, d.c.Values)
	return out
}

// Stats summarizes the size of each container section.
type Stats struct {
	Nodes    int
	Symbols  int
	Values   int
	Groups   int
	Args     int
	Bindings int
}

func (d *Document) Stats() Stats {
	return Stats{
		Nodes:    int(d.c.NodeCount),
		Symbols:  len(d.c.Symbols),
		Values:   len(d.c.Values),
		Groups:   len(d.c.Groups),
		Args:     len(d.c.Args),
		Bindings: len(d.c.Bindings),
	}
}

// ReplaceSymbol renames every occurrence of old to new by rewriting the
// symbol table entry in place. The rename is visible to every node,
// group, binding and args record that referenced the symbol, since they
// all hold ordinals. It returns false if old does not occur, and an error
// if new is already present, which would silently merge two distinct
// identifiers.
func (d *Document) ReplaceSymbol(old, new string) (bool, error) {
	at := -1
	for i, s := range d.c.Symbols {
		if s == new {
			return false, fmt.Errorf("node-marshal: symbol %q already present", new)
		}
		if s == old {
			at = i
		}
	}
	if at < 0 {
		return false, nil
	}
	d.c.Symbols[at] = new
	return true, nil
}

// ReplaceValue swaps a literal for another by rewriting its value-table
// entry in place, visible to every node that referenced it. Values are
// matched as they sit in the container, so numbers follow the envelope's
// decoded representation (integers read back as uint64 or int64). It
// returns false if old does not occur, and an error if new is already
// present.
func (d *Document) ReplaceValue(old, new any) (bool, error) {
	at := -1
	for i, v := range d.c.Values {
		if reflect.DeepEqual(v, new) {
			return false, fmt.Errorf("node-marshal: value %v already present", new)
		}
		if reflect.DeepEqual(v, old) {
			at = i
		}
	}
	if at < 0 {
		return false, nil
	}
	d.c.Values[at] = new
	return true, nil
}

// Bytes reserializes the document, reflecting any edits made through
// ReplaceSymbol or ReplaceValue.
func (d *Document) Bytes() ([]byte, error) {
	return marshalContainer(d.c)
}

// String returns a one-line summary of the document.
func (d *Document) String() string {
	s := d.Stats()
	return fmt.Sprintf("document %q (%s, table %s): %d nodes, %d symbols, %d values",
		d.c.Name, d.c.Platform, d.c.Version, s.Nodes, s.Symbols, s.Values)
}

// MarshalText renders the document as base85 text suitable for embedding
// in sources that cannot carry raw bytes.
func (d *Document) MarshalText() ([]byte, error) {
	data, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	return []byte(base85.Encode(data)), nil
}

// UnmarshalText parses a base85 rendering produced by MarshalText.
func (d *Document) UnmarshalText(text []byte) error {
	data, err := base85.Decode(string(text))
	if err != nil {
		return err
	}
	nd, err := ParseDocument(data)
	if err != nil {
		return err
	}
	d.c = nd.c
	return nil
}
