package node

import "bytes"

// ---------------------------------------------------------------------------
// Wire encoding
// ---------------------------------------------------------------------------
//
// Each node occupies a 4-byte header followed by its variable-length
// payloads. Header bytes 0..2 describe the three slots: the low nibble is
// the referent discriminant and the high nibble is the payload byte count.
// Header byte 3 is the byte count of the metadata word, which packs
// Extra<<16 | Kind. Payloads follow in order: metadata word first, then
// the slot words.

const (
	wireRaw     = 0 // literal word
	wireNode    = 1 // node ordinal
	wireSymbol  = 2 // symbol ordinal
	wireBinding = 3 // binding ordinal
	wireGroup   = 4 // symbol group ordinal
	wireArgs    = 5 // args record ordinal
	wireValue   = 6 // value ordinal
	wireNone    = 7 // empty slot
)

const nodeHeaderLen = 4

// absent marks a missing ordinal reference in a wireArgsRecord.
const absent = int64(-1)

// Marshal serializes a node graph rooted at root into a self-describing
// container. Shared substructure and cycles are preserved: each distinct
// node serializes exactly once and every further reference becomes an
// ordinal. The container records the table's version and the producing
// platform, and Unmarshal refuses containers that do not match.
func Marshal(root *Node, table ShapeTable, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)

	g, err := walkGraph(root, table, cfg.overrides)
	if err != nil {
		return nil, err
	}

	stream, err := g.encodeNodes()
	if err != nil {
		return nil, err
	}

	c := &container{
		Magic:     MagicTag,
		Platform:  cfg.platform,
		Version:   table.Version(),
		Symbols:   g.symbolStrings(),
		Values:    g.values.payloadsInOrder(),
		Groups:    g.groupOrdinals(),
		Args:      g.argsRecords(),
		Bindings:  g.bindingOrdinals(),
		NodeCount: uint32(len(g.nodes)),
		Nodes:     stream,
		Name:      cfg.name,
		File:      cfg.file,
		Path:      cfg.path,
	}

	data, err := marshalContainer(c)
	if err != nil {
		return nil, err
	}
	log.Debugf("marshalled %q: %d nodes, %d container bytes", cfg.name, c.NodeCount, len(data))
	return data, nil
}

// encodeNodes serializes every walked node, in ordinal order, into one
// byte stream.
func (g *graph) encodeNodes() ([]byte, error) {
	var buf bytes.Buffer
	for _, n := range g.nodes {
		if err := g.encodeNode(&buf, n); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (g *graph) encodeNode(buf *bytes.Buffer, n *Node) error {
	shape, err := effectiveShape(n, g.table, g.overrides)
	if err != nil {
		return err
	}
	if n.Extra > maxExtra {
		return &SchemaError{
			Kind:     n.Kind,
			KindName: g.table.KindName(n.Kind),
			Slot:     -1,
			Reason:   "metadata word exceeds 48 bits",
		}
	}
	meta := n.Extra<<16 | uint64(n.Kind)

	var header [nodeHeaderLen]byte
	var words [3]uint64
	for i := 0; i < 3; i++ {
		disc, word, err := g.slotWire(n, i, shape[i])
		if err != nil {
			return err
		}
		words[i] = word
		plen := 0
		if disc != wireNone {
			plen = wordLen(word)
		}
		header[i] = byte(disc) | byte(plen)<<4
	}
	header[3] = byte(wordLen(meta))

	buf.Write(header[:])
	buf.Write(appendWord(nil, meta))
	for i := 0; i < 3; i++ {
		if header[i]&0x0F != wireNone {
			buf.Write(appendWord(nil, words[i]))
		}
	}
	return nil
}

// slotWire maps one slot to its wire discriminant and payload word. The
// walk already validated slot contents, so lookup misses here indicate a
// walker bug rather than caller error and surface as schema errors.
func (g *graph) slotWire(n *Node, i int, sk SlotKind) (int, uint64, error) {
	s := n.Slots[i]
	if s == nil || sk == SlotNone {
		return wireNone, 0, nil
	}
	switch sk {
	case SlotRaw:
		return wireRaw, s.(uint64), nil
	case SlotNode:
		ord, ok := g.nodeOrds[s.(*Node)]
		if !ok {
			return 0, 0, g.slotErr(n, i, "child node was never walked")
		}
		return wireNode, uint64(ord), nil
	case SlotSymbol:
		ord, _ := g.symbols.ordinal(s.(Symbol))
		return wireSymbol, uint64(ord), nil
	case SlotValue:
		key, err := valueKey(s)
		if err != nil {
			return 0, 0, err
		}
		ord, ok := g.values.ordinal(key)
		if !ok {
			return 0, 0, g.slotErr(n, i, "value was never interned")
		}
		return wireValue, uint64(ord), nil
	case SlotGroup:
		ord, _ := g.groups.ordinal(s.(*SymbolGroup))
		return wireGroup, uint64(ord), nil
	case SlotArgs:
		ord, _ := g.args.ordinal(s.(*ArgsRecord))
		return wireArgs, uint64(ord), nil
	case SlotBinding:
		ord, _ := g.bindings.ordinal(s.(*Binding))
		return wireBinding, uint64(ord), nil
	}
	return 0, 0, g.slotErr(n, i, "shape declares unsupported slot kind %d", uint8(sk))
}

// ---------------------------------------------------------------------------
// Category table assembly
// ---------------------------------------------------------------------------

func (g *graph) symbolStrings() []string {
	syms := g.symbols.payloadsInOrder()
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = string(s)
	}
	return out
}

func (g *graph) groupOrdinals() [][]uint32 {
	grps := g.groups.payloadsInOrder()
	out := make([][]uint32, len(grps))
	for i, grp := range grps {
		ords := make([]uint32, len(grp.Names))
		for j, name := range grp.Names {
			ords[j], _ = g.symbols.ordinal(name)
		}
		out[i] = ords
	}
	return out
}

func (g *graph) bindingOrdinals() []uint32 {
	bnds := g.bindings.payloadsInOrder()
	out := make([]uint32, len(bnds))
	for i, b := range bnds {
		out[i], _ = g.symbols.ordinal(b.Name)
	}
	return out
}

func (g *graph) argsRecords() []wireArgsRecord {
	recs := g.args.payloadsInOrder()
	out := make([]wireArgsRecord, len(recs))
	for i, rec := range recs {
		w := wireArgsRecord{
			PreCount:  rec.PreCount,
			PostCount: rec.PostCount,
		}
		w.PreInit = g.argsNodeOrd(rec.PreInit)
		w.PostInit = g.argsNodeOrd(rec.PostInit)
		w.KeywordArgs = g.argsNodeOrd(rec.KeywordArgs)
		w.KeywordRest = g.argsNodeOrd(rec.KeywordRest)
		w.Optional = g.argsNodeOrd(rec.Optional)
		w.FirstPost = g.argsSymbolOrd(rec.FirstPost)
		w.Rest = g.argsSymbolOrd(rec.Rest)
		w.Block = g.argsSymbolOrd(rec.Block)
		out[i] = w
	}
	return out
}

func (g *graph) argsNodeOrd(n *Node) int64 {
	if n == nil {
		return absent
	}
	return int64(g.nodeOrds[n])
}

func (g *graph) argsSymbolOrd(s Symbol) int64 {
	if s == "" {
		return absent
	}
	ord, _ := g.symbols.ordinal(s)
	return int64(ord)
}
