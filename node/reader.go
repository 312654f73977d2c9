package node

// ---------------------------------------------------------------------------
// Wire decoding
// ---------------------------------------------------------------------------

// Unmarshal reconstructs a node graph from a container produced by
// Marshal. Decoding is two-pass: every node is allocated as an empty
// placeholder first, then the stream is replayed to fill slots, so
// ordinal references forward in the stream and true cycles resolve to the
// same pointers they were serialized from.
//
// The container's magic, platform tag and table version are checked
// before anything is allocated; a mismatch returns a CompatibilityError
// and nothing else happens.
func Unmarshal(data []byte, table ShapeTable, opts ...Option) (*Node, error) {
	cfg := newConfig(opts)

	c, err := unmarshalContainer(data)
	if err != nil {
		return nil, err
	}
	if err := checkCompat(c, cfg.platform, table.Version()); err != nil {
		return nil, err
	}
	if c.NodeCount == 0 {
		return nil, corrupt("container holds no nodes")
	}
	if int(c.NodeCount)*nodeHeaderLen > len(c.Nodes) {
		return nil, corrupt("node stream too short: %d bytes for %d nodes", len(c.Nodes), c.NodeCount)
	}

	d, err := allocate(c, cfg.resolver)
	if err != nil {
		return nil, err
	}
	if err := d.resolve(c.Nodes, table); err != nil {
		return nil, err
	}
	log.Debugf("unmarshalled %q: %d nodes, %d symbols", c.Name, len(d.nodes), len(d.symbols))
	return d.nodes[0], nil
}

func checkCompat(c *container, platform, version string) error {
	if c.Magic != MagicTag {
		return &CompatibilityError{Field: "magic", Got: c.Magic, Want: MagicTag}
	}
	if c.Platform != platform {
		return &CompatibilityError{Field: "platform", Got: c.Platform, Want: platform}
	}
	if c.Version != version {
		return &CompatibilityError{Field: "version", Got: c.Version, Want: version}
	}
	return nil
}

// decoder holds the allocated category tables of one Unmarshal call,
// indexed by the same ordinals the stream references.
type decoder struct {
	symbols  []Symbol
	values   []any
	groups   []*SymbolGroup
	args     []*ArgsRecord
	bindings []*Binding
	nodes    []*Node
}

// allocate materializes every category table and a placeholder node per
// stream entry. Args records resolve completely here: their node fields
// point at placeholders that the resolve pass fills in place.
func allocate(c *container, resolve BindingResolver) (*decoder, error) {
	d := &decoder{
		symbols: make([]Symbol, len(c.Symbols)),
		values:  c.Values,
		nodes:   make([]*Node, c.NodeCount),
	}
	for i, s := range c.Symbols {
		d.symbols[i] = Symbol(s)
	}
	for i := range d.nodes {
		d.nodes[i] = &Node{}
	}

	d.groups = make([]*SymbolGroup, len(c.Groups))
	for i, ords := range c.Groups {
		grp := &SymbolGroup{Names: make([]Symbol, len(ords))}
		for j, ord := range ords {
			if int(ord) >= len(d.symbols) {
				return nil, corrupt("group %d references symbol %d of %d", i, ord, len(d.symbols))
			}
			grp.Names[j] = d.symbols[ord]
		}
		d.groups[i] = grp
	}

	d.bindings = make([]*Binding, len(c.Bindings))
	for i, ord := range c.Bindings {
		if int(ord) >= len(d.symbols) {
			return nil, corrupt("binding %d references symbol %d of %d", i, ord, len(d.symbols))
		}
		b := resolve(d.symbols[ord])
		if b == nil {
			return nil, corrupt("binding resolver returned nil for %q", d.symbols[ord])
		}
		d.bindings[i] = b
	}

	d.args = make([]*ArgsRecord, len(c.Args))
	for i, w := range c.Args {
		rec := &ArgsRecord{PreCount: w.PreCount, PostCount: w.PostCount}
		var err error
		if rec.PreInit, err = d.argsNode(i, w.PreInit); err != nil {
			return nil, err
		}
		if rec.PostInit, err = d.argsNode(i, w.PostInit); err != nil {
			return nil, err
		}
		if rec.KeywordArgs, err = d.argsNode(i, w.KeywordArgs); err != nil {
			return nil, err
		}
		if rec.KeywordRest, err = d.argsNode(i, w.KeywordRest); err != nil {
			return nil, err
		}
		if rec.Optional, err = d.argsNode(i, w.Optional); err != nil {
			return nil, err
		}
		if rec.FirstPost, err = d.argsSymbol(i, w.FirstPost); err != nil {
			return nil, err
		}
		if rec.Rest, err = d.argsSymbol(i, w.Rest); err != nil {
			return nil, err
		}
		if rec.Block, err = d.argsSymbol(i, w.Block); err != nil {
			return nil, err
		}
		d.args[i] = rec
	}
	return d, nil
}

func (d *decoder) argsNode(rec int, ord int64) (*Node, error) {
	if ord == absent {
		return nil, nil
	}
	if ord < 0 || int(ord) >= len(d.nodes) {
		return nil, corrupt("args record %d references node %d of %d", rec, ord, len(d.nodes))
	}
	return d.nodes[ord], nil
}

func (d *decoder) argsSymbol(rec int, ord int64) (Symbol, error) {
	if ord == absent {
		return "", nil
	}
	if ord < 0 || int(ord) >= len(d.symbols) {
		return "", corrupt("args record %d references symbol %d of %d", rec, ord, len(d.symbols))
	}
	return d.symbols[ord], nil
}

// resolve replays the node stream, filling each placeholder in ordinal
// order. Every node is either fully resolved or untouched; a failure
// anywhere abandons the whole call.
func (d *decoder) resolve(stream []byte, table ShapeTable) error {
	off := 0
	for i := range d.nodes {
		n, err := d.resolveNode(stream, &off, i, table)
		if err != nil {
			return err
		}
		*d.nodes[i] = *n
	}
	if off != len(stream) {
		return corruptAt(off, "%d trailing bytes after last node", len(stream)-off)
	}
	return nil
}

func (d *decoder) resolveNode(stream []byte, off *int, idx int, table ShapeTable) (*Node, error) {
	start := *off
	if start+nodeHeaderLen > len(stream) {
		return nil, corruptAt(start, "truncated header for node %d", idx)
	}
	header := stream[start : start+nodeHeaderLen]
	*off += nodeHeaderLen

	meta, err := d.takeWord(stream, off, int(header[3]))
	if err != nil {
		return nil, err
	}
	n := &Node{
		Kind:  Kind(meta & 0xFFFF),
		Extra: meta >> 16,
	}
	if _, ok := table.ShapeOf(n.Kind); !ok {
		return nil, &SchemaError{
			Kind:     n.Kind,
			KindName: table.KindName(n.Kind),
			Slot:     -1,
			Reason:   "no shape descriptor for kind",
		}
	}

	for i := 0; i < 3; i++ {
		disc := int(header[i] & 0x0F)
		plen := int(header[i] >> 4)
		if disc == wireNone {
			continue
		}
		pos := *off
		word, err := d.takeWord(stream, off, plen)
		if err != nil {
			return nil, err
		}
		n.Slots[i], err = d.slotRef(disc, word, pos)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (d *decoder) takeWord(stream []byte, off *int, plen int) (uint64, error) {
	// The writer never emits more than 8 bytes per word; a longer length
	// would shift the high bytes out of the word unnoticed.
	if plen > 8 {
		return 0, corruptAt(*off, "payload of %d bytes exceeds word size", plen)
	}
	if *off+plen > len(stream) {
		return 0, corruptAt(*off, "truncated payload of %d bytes", plen)
	}
	w := readWord(stream[*off : *off+plen])
	*off += plen
	return w, nil
}

func (d *decoder) slotRef(disc int, word uint64, pos int) (any, error) {
	switch disc {
	case wireRaw:
		return word, nil
	case wireNode:
		if word >= uint64(len(d.nodes)) {
			return nil, corruptAt(pos, "node ordinal %d of %d", word, len(d.nodes))
		}
		return d.nodes[word], nil
	case wireSymbol:
		if word >= uint64(len(d.symbols)) {
			return nil, corruptAt(pos, "symbol ordinal %d of %d", word, len(d.symbols))
		}
		return d.symbols[word], nil
	case wireValue:
		if word >= uint64(len(d.values)) {
			return nil, corruptAt(pos, "value ordinal %d of %d", word, len(d.values))
		}
		return d.values[word], nil
	case wireGroup:
		if word >= uint64(len(d.groups)) {
			return nil, corruptAt(pos, "group ordinal %d of %d", word, len(d.groups))
		}
		return d.groups[word], nil
	case wireArgs:
		if word >= uint64(len(d.args)) {
			return nil, corruptAt(pos, "args ordinal %d of %d", word, len(d.args))
		}
		return d.args[word], nil
	case wireBinding:
		if word >= uint64(len(d.bindings)) {
			return nil, corruptAt(pos, "binding ordinal %d of %d", word, len(d.bindings))
		}
		return d.bindings[word], nil
	}
	return nil, corruptAt(pos, "invalid slot discriminant %d", disc)
}
