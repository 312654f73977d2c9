package node

import "fmt"

// ---------------------------------------------------------------------------
// Node model
// ---------------------------------------------------------------------------

// Kind identifies a node kind within an externally supplied grammar.
// The engine attaches no meaning to individual kinds; everything it needs
// to know about a kind comes from the ShapeTable.
type Kind uint16

// Node is a fixed-arity graph element: a kind, a metadata word and three
// slots. Node identity is by pointer, not by value: two structurally equal
// nodes reached through different pointers are distinct graph entries.
//
// A slot holds one of:
//   - nil
//   - uint64 (a raw word, stored verbatim)
//   - *Node
//   - Symbol, *SymbolGroup, *ArgsRecord or *Binding
//   - any other value, for slots the shape declares as Value
//
// Which of these a slot is allowed to hold is decided by the node's shape,
// not by the slot content itself.
type Node struct {
	Kind  Kind
	Extra uint64 // per-node metadata word (line numbers, flags); at most 48 bits
	Slots [3]any
}

// maxExtra bounds the per-node metadata word. The wire format packs Extra
// and Kind into a single word, leaving 48 bits for Extra.
const maxExtra = 1<<48 - 1

// Symbol is a canonical identifier name. Symbols are interned by name, so
// two equal Symbol values always map to the same ordinal.
type Symbol string

// SymbolGroup is an ordered list of symbols referenced as a unit, such as
// the local identifiers of a scope. Groups are interned by pointer identity
// because a group may be shared between nodes.
type SymbolGroup struct {
	Names []Symbol
}

// ArgsRecord describes the arguments of a parameterized scope. It references
// up to five child nodes and three symbols and is interned by pointer
// identity, since several scopes may share one record.
type ArgsRecord struct {
	PreInit     *Node
	PostInit    *Node
	PreCount    int64
	PostCount   int64
	FirstPost   Symbol // empty means absent
	Rest        Symbol
	Block       Symbol
	KeywordArgs *Node
	KeywordRest *Node
	Optional    *Node
}

// Binding is an opaque external-resolution handle identified by a symbol,
// such as a process-global variable slot. Only the symbol travels through
// the wire format; reconstruction asks a BindingResolver for a live record.
type Binding struct {
	Name Symbol
}

// BindingResolver produces the live binding record for a symbol during
// reconstruction. It runs once per binding entry in the container; two
// entries naming the same symbol trigger two calls. The default resolver
// allocates a fresh record on every call.
type BindingResolver func(Symbol) *Binding

// ---------------------------------------------------------------------------
// Shape contract
// ---------------------------------------------------------------------------

// SlotKind declares what a node slot refers to.
type SlotKind uint8

const (
	SlotNone    SlotKind = iota // slot is unused
	SlotRaw                     // raw word, stored without dereferencing
	SlotNode                    // child node reference
	SlotValue                   // interned literal value
	SlotSymbol                  // interned symbol
	SlotGroup                   // interned symbol group
	SlotArgs                    // interned args record
	SlotBinding                 // interned external binding
)

var slotKindNames = [...]string{
	SlotNone:    "none",
	SlotRaw:     "raw",
	SlotNode:    "node",
	SlotValue:   "value",
	SlotSymbol:  "symbol",
	SlotGroup:   "group",
	SlotArgs:    "args",
	SlotBinding: "binding",
}

func (k SlotKind) String() string {
	if int(k) < len(slotKindNames) {
		return slotKindNames[k]
	}
	return fmt.Sprintf("slotkind(%d)", uint8(k))
}

// Shape declares the referent kind of each of a node's three slots.
type Shape [3]SlotKind

// ShapeTable supplies the shape of every node kind a graph may contain.
// It is configuration data: the engine never hard-codes kinds, and a graph
// containing a kind the table does not cover fails with a SchemaError.
type ShapeTable interface {
	// ShapeOf returns the static shape of a kind, or false if the kind
	// is unknown.
	ShapeOf(Kind) (Shape, bool)

	// KindName returns a human-readable name for a kind, used in errors
	// and tree dumps.
	KindName(Kind) string

	// Version identifies the shape table revision. Containers record it
	// and refuse to load under a table with a different version.
	Version() string
}

// ShapeOverride refines a node's static shape based on the node's runtime
// content. Overrides cover kinds whose slot meaning depends on a
// discriminating field, such as an assignment node whose slot holds either
// a raw count or a symbol. An override returns the refined shape and true,
// or false to leave the static shape in effect. Overrides run in
// registration order, each seeing the previous result.
type ShapeOverride func(*Node, Shape) (Shape, bool)

// effectiveShape resolves the shape of n under table and overrides.
func effectiveShape(n *Node, table ShapeTable, overrides []ShapeOverride) (Shape, error) {
	shape, ok := table.ShapeOf(n.Kind)
	if !ok {
		return Shape{}, &SchemaError{
			Kind:     n.Kind,
			KindName: table.KindName(n.Kind),
			Slot:     -1,
			Reason:   "no shape descriptor for kind",
		}
	}
	for _, ov := range overrides {
		if refined, ok := ov(n, shape); ok {
			shape = refined
		}
	}
	return shape, nil
}
