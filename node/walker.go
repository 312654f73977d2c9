package node

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("node-marshal")

// ---------------------------------------------------------------------------
// Graph walker: assigns ordinals to every node and interned leaf
// ---------------------------------------------------------------------------

// graph holds the ordinal assignments produced by one walk. Everything in
// it is call-local; a graph is built, serialized and discarded within a
// single Marshal.
type graph struct {
	table     ShapeTable
	overrides []ShapeOverride

	nodes    []*Node
	nodeOrds map[*Node]uint32

	symbols  *internTable[Symbol, Symbol]
	values   *internTable[any, any]
	groups   *internTable[*SymbolGroup, *SymbolGroup]
	args     *internTable[*ArgsRecord, *ArgsRecord]
	bindings *internTable[*Binding, *Binding]
}

// walkGraph traverses the graph from root, assigning a stable ordinal to
// every distinct node and interning every leaf it reaches. The root always
// receives ordinal 0.
func walkGraph(root *Node, table ShapeTable, overrides []ShapeOverride) (*graph, error) {
	if root == nil {
		return nil, &SchemaError{Slot: -1, KindName: "<root>", Reason: "root node is nil"}
	}
	g := &graph{
		table:     table,
		overrides: overrides,
		nodeOrds:  make(map[*Node]uint32),
		symbols:   newInternTable[Symbol, Symbol](),
		values:    newInternTable[any, any](),
		groups:    newInternTable[*SymbolGroup, *SymbolGroup](),
		args:      newInternTable[*ArgsRecord, *ArgsRecord](),
		bindings:  newInternTable[*Binding, *Binding](),
	}
	if _, err := g.walk(root); err != nil {
		return nil, err
	}
	log.Debugf("walk complete: %d nodes, %d symbols, %d values, %d groups, %d args, %d bindings",
		len(g.nodes), g.symbols.size(), g.values.size(), g.groups.size(), g.args.size(), g.bindings.size())
	return g, nil
}

// walk visits n and returns its ordinal. A node already seen returns its
// existing ordinal without re-traversal; a node is numbered before its
// slots are visited, which is what makes shared substructure and true
// cycles safe.
func (g *graph) walk(n *Node) (uint32, error) {
	if ord, ok := g.nodeOrds[n]; ok {
		return ord, nil
	}
	shape, err := effectiveShape(n, g.table, g.overrides)
	if err != nil {
		return 0, err
	}

	ord := uint32(len(g.nodes))
	g.nodeOrds[n] = ord
	g.nodes = append(g.nodes, n)

	for i := 0; i < 3; i++ {
		if err := g.walkSlot(n, i, shape[i]); err != nil {
			return 0, err
		}
	}
	return ord, nil
}

// walkSlot dispatches one slot of n according to its declared kind,
// validating the slot content against the shape as it goes.
func (g *graph) walkSlot(n *Node, i int, sk SlotKind) error {
	s := n.Slots[i]
	if s == nil {
		// Empty slots are legal for every referent kind; they travel as
		// explicit empties and come back as nil.
		return nil
	}

	switch sk {
	case SlotNone:
		// Content of an unused slot is ignored, matching the contract that
		// the shape, not the content, decides what a slot means.
		return nil

	case SlotRaw:
		if _, ok := s.(uint64); !ok {
			return g.slotErr(n, i, "raw slot holds %T, want uint64", s)
		}
		return nil

	case SlotNode:
		child, ok := s.(*Node)
		if !ok {
			return g.slotErr(n, i, "child slot holds %T, not a node", s)
		}
		_, err := g.walk(child)
		return err

	case SlotValue:
		if _, isNode := s.(*Node); isNode {
			return g.slotErr(n, i, "value slot holds a node")
		}
		key, err := valueKey(s)
		if err != nil {
			return g.slotErr(n, i, "%s", err.(*SchemaError).Reason)
		}
		g.values.intern(key, s)
		return nil

	case SlotSymbol:
		sym, ok := s.(Symbol)
		if !ok {
			return g.slotErr(n, i, "symbol slot holds %T", s)
		}
		g.symbols.intern(sym, sym)
		return nil

	case SlotGroup:
		grp, ok := s.(*SymbolGroup)
		if !ok {
			return g.slotErr(n, i, "group slot holds %T", s)
		}
		g.groups.intern(grp, grp)
		for _, name := range grp.Names {
			g.symbols.intern(name, name)
		}
		return nil

	case SlotArgs:
		rec, ok := s.(*ArgsRecord)
		if !ok {
			return g.slotErr(n, i, "args slot holds %T", s)
		}
		return g.walkArgs(rec)

	case SlotBinding:
		b, ok := s.(*Binding)
		if !ok {
			return g.slotErr(n, i, "binding slot holds %T", s)
		}
		g.bindings.intern(b, b)
		g.symbols.intern(b.Name, b.Name)
		return nil

	default:
		return g.slotErr(n, i, "shape declares unsupported slot kind %d", uint8(sk))
	}
}

// walkArgs interns an args record and traverses its embedded references.
func (g *graph) walkArgs(rec *ArgsRecord) error {
	if _, seen := g.args.ordinal(rec); seen {
		return nil
	}
	g.args.intern(rec, rec)

	for _, child := range [...]*Node{rec.PreInit, rec.PostInit, rec.KeywordArgs, rec.KeywordRest, rec.Optional} {
		if child == nil {
			continue
		}
		if _, err := g.walk(child); err != nil {
			return err
		}
	}
	for _, sym := range [...]Symbol{rec.FirstPost, rec.Rest, rec.Block} {
		if sym != "" {
			g.symbols.intern(sym, sym)
		}
	}
	return nil
}

func (g *graph) slotErr(n *Node, slot int, format string, args ...any) error {
	return &SchemaError{
		Kind:     n.Kind,
		KindName: g.table.KindName(n.Kind),
		Slot:     slot,
		Reason:   fmt.Sprintf(format, args...),
	}
}
