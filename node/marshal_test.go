package node

import (
	"fmt"
	"testing"

	_ "github.com/tliron/commonlog/simple"
)

// ---------------------------------------------------------------------------
// Test grammar
// ---------------------------------------------------------------------------

const (
	kindLeaf  Kind = 1 // raw word, literal value, symbol
	kindPair  Kind = 2 // two children
	kindScope Kind = 3 // locals group, args record, body
	kindRef   Kind = 4 // binding
	kindAsgn  Kind = 5 // raw or symbol in slot 0 depending on Extra
)

// testTable is an inline ShapeTable for these tests. The schema package
// cannot be used here without an import cycle.
type testTable struct {
	version string
}

var testShapes = map[Kind]Shape{
	kindLeaf:  {SlotRaw, SlotValue, SlotSymbol},
	kindPair:  {SlotNode, SlotNode, SlotNone},
	kindScope: {SlotGroup, SlotArgs, SlotNode},
	kindRef:   {SlotBinding, SlotNone, SlotNone},
	kindAsgn:  {SlotRaw, SlotNode, SlotNone},
}

var testNames = map[Kind]string{
	kindLeaf:  "leaf",
	kindPair:  "pair",
	kindScope: "scope",
	kindRef:   "ref",
	kindAsgn:  "asgn",
}

func (t testTable) ShapeOf(k Kind) (Shape, bool) {
	s, ok := testShapes[k]
	return s, ok
}

func (t testTable) KindName(k Kind) string { return testNames[k] }

func (t testTable) Version() string {
	if t.version != "" {
		return t.version
	}
	return "test-1"
}

func roundTrip(t *testing.T, root *Node, opts ...Option) *Node {
	t.Helper()
	data, err := Marshal(root, testTable{}, opts...)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	got, err := Unmarshal(data, testTable{}, opts...)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	return got
}

// ---------------------------------------------------------------------------
// Round-trip tests
// ---------------------------------------------------------------------------

func TestRoundTripSingleLeaf(t *testing.T) {
	root := &Node{
		Kind:  kindLeaf,
		Extra: 7,
		Slots: [3]any{uint64(99), "hello", Symbol("x")},
	}
	got := roundTrip(t, root)

	if got.Kind != kindLeaf {
		t.Errorf("Kind = %d, want %d", got.Kind, kindLeaf)
	}
	if got.Extra != 7 {
		t.Errorf("Extra = %d, want 7", got.Extra)
	}
	if got.Slots[0] != uint64(99) {
		t.Errorf("slot 0 = %v, want 99", got.Slots[0])
	}
	if got.Slots[1] != "hello" {
		t.Errorf("slot 1 = %v, want hello", got.Slots[1])
	}
	if got.Slots[2] != Symbol("x") {
		t.Errorf("slot 2 = %v, want :x", got.Slots[2])
	}
}

func TestRoundTripEmptySlots(t *testing.T) {
	root := &Node{Kind: kindLeaf}
	got := roundTrip(t, root)

	for i, s := range got.Slots {
		if s != nil {
			t.Errorf("slot %d = %v, want nil", i, s)
		}
	}
}

func TestRoundTripRawZeroIsNotNil(t *testing.T) {
	root := &Node{Kind: kindLeaf, Slots: [3]any{uint64(0), nil, nil}}
	got := roundTrip(t, root)

	if got.Slots[0] != uint64(0) {
		t.Errorf("slot 0 = %v (%T), want uint64 0", got.Slots[0], got.Slots[0])
	}
	if got.Slots[1] != nil {
		t.Errorf("slot 1 = %v, want nil", got.Slots[1])
	}
}

func TestRoundTripSharedChild(t *testing.T) {
	shared := &Node{Kind: kindLeaf, Slots: [3]any{nil, nil, Symbol("s")}}
	root := &Node{Kind: kindPair, Slots: [3]any{shared, shared, nil}}
	got := roundTrip(t, root)

	left, ok := got.Slots[0].(*Node)
	if !ok {
		t.Fatalf("slot 0 is %T, want *Node", got.Slots[0])
	}
	right, ok := got.Slots[1].(*Node)
	if !ok {
		t.Fatalf("slot 1 is %T, want *Node", got.Slots[1])
	}
	if left != right {
		t.Error("shared child came back as two distinct nodes")
	}
	if left.Slots[2] != Symbol("s") {
		t.Errorf("child symbol = %v, want :s", left.Slots[2])
	}
}

func TestRoundTripCycle(t *testing.T) {
	a := &Node{Kind: kindPair}
	b := &Node{Kind: kindPair}
	a.Slots[0] = b
	b.Slots[0] = a

	got := roundTrip(t, a)
	gb, ok := got.Slots[0].(*Node)
	if !ok {
		t.Fatalf("slot 0 is %T, want *Node", got.Slots[0])
	}
	back, ok := gb.Slots[0].(*Node)
	if !ok {
		t.Fatalf("cycle slot is %T, want *Node", gb.Slots[0])
	}
	if back != got {
		t.Error("cycle did not close on the root")
	}
}

func TestRoundTripSymbolDedup(t *testing.T) {
	l1 := &Node{Kind: kindLeaf, Slots: [3]any{nil, nil, Symbol("same")}}
	l2 := &Node{Kind: kindLeaf, Slots: [3]any{nil, nil, Symbol("same")}}
	root := &Node{Kind: kindPair, Slots: [3]any{l1, l2, nil}}

	data, err := Marshal(root, testTable{})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument error: %v", err)
	}
	if got := doc.Stats().Symbols; got != 1 {
		t.Errorf("symbol table holds %d entries, want 1", got)
	}
}

func TestRoundTripGroupAndArgs(t *testing.T) {
	locals := &SymbolGroup{Names: []Symbol{"a", "b", "rest"}}
	optInit := &Node{Kind: kindLeaf, Slots: [3]any{uint64(1), nil, nil}}
	args := &ArgsRecord{
		PreCount: 2,
		Rest:     "rest",
		Optional: optInit,
	}
	body := &Node{Kind: kindLeaf, Slots: [3]any{nil, nil, Symbol("a")}}
	root := &Node{Kind: kindScope, Slots: [3]any{locals, args, body}}

	got := roundTrip(t, root)

	grp, ok := got.Slots[0].(*SymbolGroup)
	if !ok {
		t.Fatalf("slot 0 is %T, want *SymbolGroup", got.Slots[0])
	}
	if len(grp.Names) != 3 || grp.Names[0] != "a" || grp.Names[2] != "rest" {
		t.Errorf("group names = %v", grp.Names)
	}

	rec, ok := got.Slots[1].(*ArgsRecord)
	if !ok {
		t.Fatalf("slot 1 is %T, want *ArgsRecord", got.Slots[1])
	}
	if rec.PreCount != 2 {
		t.Errorf("PreCount = %d, want 2", rec.PreCount)
	}
	if rec.Rest != "rest" {
		t.Errorf("Rest = %q, want rest", rec.Rest)
	}
	if rec.Block != "" {
		t.Errorf("Block = %q, want empty", rec.Block)
	}
	if rec.Optional == nil || rec.Optional.Slots[0] != uint64(1) {
		t.Errorf("Optional did not round-trip: %+v", rec.Optional)
	}
	if rec.PreInit != nil {
		t.Errorf("PreInit = %+v, want nil", rec.PreInit)
	}
}

func TestRoundTripSharedArgsRecord(t *testing.T) {
	args := &ArgsRecord{PreCount: 1}
	s1 := &Node{Kind: kindScope, Slots: [3]any{nil, args, nil}}
	s2 := &Node{Kind: kindScope, Slots: [3]any{nil, args, nil}}
	root := &Node{Kind: kindPair, Slots: [3]any{s1, s2, nil}}

	got := roundTrip(t, root)
	g1 := got.Slots[0].(*Node).Slots[1].(*ArgsRecord)
	g2 := got.Slots[1].(*Node).Slots[1].(*ArgsRecord)
	if g1 != g2 {
		t.Error("shared args record came back as two records")
	}
}

func TestRoundTripBinding(t *testing.T) {
	root := &Node{Kind: kindRef, Slots: [3]any{&Binding{Name: "$stderr"}, nil, nil}}

	resolved := make(map[Symbol]*Binding)
	got := roundTrip(t, root, WithBindingResolver(func(s Symbol) *Binding {
		b := &Binding{Name: s}
		resolved[s] = b
		return b
	}))

	b, ok := got.Slots[0].(*Binding)
	if !ok {
		t.Fatalf("slot 0 is %T, want *Binding", got.Slots[0])
	}
	if b.Name != "$stderr" {
		t.Errorf("binding name = %q, want $stderr", b.Name)
	}
	if resolved["$stderr"] != b {
		t.Error("resolver result was not used for the slot")
	}
}

func TestBindingResolverRunsPerEntry(t *testing.T) {
	// Bindings intern by pointer, so two records sharing a name stay two
	// container entries and the resolver runs for each.
	r1 := &Node{Kind: kindRef, Slots: [3]any{&Binding{Name: "$g"}, nil, nil}}
	r2 := &Node{Kind: kindRef, Slots: [3]any{&Binding{Name: "$g"}, nil, nil}}
	root := &Node{Kind: kindPair, Slots: [3]any{r1, r2, nil}}

	calls := 0
	got := roundTrip(t, root, WithBindingResolver(func(s Symbol) *Binding {
		calls++
		return &Binding{Name: s}
	}))
	if calls != 2 {
		t.Errorf("resolver ran %d times, want 2", calls)
	}
	b1 := got.Slots[0].(*Node).Slots[0].(*Binding)
	b2 := got.Slots[1].(*Node).Slots[0].(*Binding)
	if b1 == b2 {
		t.Error("distinct binding records came back merged")
	}
}

func TestRoundTripShapeOverride(t *testing.T) {
	// An asgn node whose Extra is 1 carries a symbol in slot 0 instead of
	// a raw word.
	override := func(n *Node, shape Shape) (Shape, bool) {
		if n.Kind == kindAsgn && n.Extra == 1 {
			shape[0] = SlotSymbol
			return shape, true
		}
		return Shape{}, false
	}

	val := &Node{Kind: kindLeaf, Slots: [3]any{uint64(5), nil, nil}}
	root := &Node{Kind: kindAsgn, Extra: 1, Slots: [3]any{Symbol("lhs"), val, nil}}

	got := roundTrip(t, root, WithShapeOverride(override))
	if got.Slots[0] != Symbol("lhs") {
		t.Errorf("slot 0 = %v (%T), want :lhs", got.Slots[0], got.Slots[0])
	}

	// Without the override the same node fails validation.
	if _, err := Marshal(root, testTable{}); err == nil {
		t.Error("Marshal without override should reject a symbol in a raw slot")
	}
}

func TestTextRoundTrip(t *testing.T) {
	shared := &Node{Kind: kindLeaf, Slots: [3]any{uint64(8), nil, Symbol("t")}}
	root := &Node{Kind: kindPair, Slots: [3]any{shared, shared, nil}}

	text, err := MarshalText(root, testTable{})
	if err != nil {
		t.Fatalf("MarshalText error: %v", err)
	}
	got, err := UnmarshalText(text, testTable{})
	if err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if got.Slots[0] != got.Slots[1] {
		t.Error("shared child came back duplicated through the text form")
	}
	if _, err := UnmarshalText([]byte(" FAAAAA"), testTable{}); err == nil {
		t.Error("corrupt text should fail")
	}
}

func TestMarshalNilRoot(t *testing.T) {
	if _, err := Marshal(nil, testTable{}); err == nil {
		t.Error("Marshal(nil) should fail")
	}
}

func TestMarshalUnknownKind(t *testing.T) {
	_, err := Marshal(&Node{Kind: 999}, testTable{})
	var se *SchemaError
	if !asSchemaError(err, &se) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
	if se.Kind != 999 {
		t.Errorf("SchemaError.Kind = %d, want 999", se.Kind)
	}
}

func TestMarshalWrongSlotType(t *testing.T) {
	root := &Node{Kind: kindLeaf, Slots: [3]any{"not a word", nil, nil}}
	_, err := Marshal(root, testTable{})
	var se *SchemaError
	if !asSchemaError(err, &se) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
	if se.Slot != 0 {
		t.Errorf("SchemaError.Slot = %d, want 0", se.Slot)
	}
}

func TestMarshalOversizedExtra(t *testing.T) {
	root := &Node{Kind: kindLeaf, Extra: maxExtra + 1}
	var se *SchemaError
	if _, err := Marshal(root, testTable{}); !asSchemaError(err, &se) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	shared := &Node{Kind: kindLeaf, Slots: [3]any{nil, nil, Symbol("s")}}
	root := &Node{Kind: kindPair, Slots: [3]any{shared, shared, nil}}

	d1, err := Marshal(root, testTable{}, WithName("det"))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	d2, err := Marshal(root, testTable{}, WithName("det"))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(d1) != string(d2) {
		t.Error("two marshals of the same graph differ")
	}
}

func asSchemaError(err error, out **SchemaError) bool {
	if err == nil {
		return false
	}
	se, ok := err.(*SchemaError)
	if ok {
		*out = se
	}
	return ok
}

// ---------------------------------------------------------------------------
// Error formatting
// ---------------------------------------------------------------------------

func TestErrorStrings(t *testing.T) {
	se := &SchemaError{Kind: 2, KindName: "pair", Slot: 1, Reason: "bad"}
	if want := "node-marshal: schema: kind pair: slot 1: bad"; se.Error() != want {
		t.Errorf("SchemaError = %q, want %q", se.Error(), want)
	}

	ce := corruptAt(12, "truncated payload of %d bytes", 3)
	if want := "node-marshal: corrupt container at byte 12: truncated payload of 3 bytes"; ce.Error() != want {
		t.Errorf("CorruptionError = %q, want %q", ce.Error(), want)
	}

	me := &CompatibilityError{Field: "magic", Got: "X", Want: MagicTag}
	if want := fmt.Sprintf("node-marshal: incompatible container: magic is %q, want %q", "X", MagicTag); me.Error() != want {
		t.Errorf("CompatibilityError = %q, want %q", me.Error(), want)
	}
}
