package node

import "testing"

// ---------------------------------------------------------------------------
// Interning table tests
// ---------------------------------------------------------------------------

func TestInternAssignsDenseOrdinals(t *testing.T) {
	tbl := newInternTable[Symbol, Symbol]()

	if got := tbl.intern("a", "a"); got != 0 {
		t.Errorf("first intern = %d, want 0", got)
	}
	if got := tbl.intern("b", "b"); got != 1 {
		t.Errorf("second intern = %d, want 1", got)
	}
	if got := tbl.intern("a", "a"); got != 0 {
		t.Errorf("re-intern = %d, want 0", got)
	}
	if tbl.size() != 2 {
		t.Errorf("size() = %d, want 2", tbl.size())
	}

	ordered := tbl.payloadsInOrder()
	if len(ordered) != 2 || ordered[0] != "a" || ordered[1] != "b" {
		t.Errorf("payloadsInOrder() = %v, want [a b]", ordered)
	}
}

func TestInternLookupWithoutInterning(t *testing.T) {
	tbl := newInternTable[*Binding, *Binding]()
	b := &Binding{Name: "x"}

	if _, ok := tbl.ordinal(b); ok {
		t.Error("ordinal before intern should miss")
	}
	tbl.intern(b, b)
	ord, ok := tbl.ordinal(b)
	if !ok || ord != 0 {
		t.Errorf("ordinal(b) = (%d, %v), want (0, true)", ord, ok)
	}

	// A structurally equal binding through a different pointer is distinct.
	other := &Binding{Name: "x"}
	if _, ok := tbl.ordinal(other); ok {
		t.Error("different pointer should not share an ordinal")
	}
}

func TestValueKeyComparable(t *testing.T) {
	k1, err := valueKey(int64(42))
	if err != nil {
		t.Fatalf("valueKey(int64) error: %v", err)
	}
	k2, err := valueKey(int64(42))
	if err != nil {
		t.Fatalf("valueKey(int64) error: %v", err)
	}
	if k1 != k2 {
		t.Errorf("equal comparable values produced distinct keys %v, %v", k1, k2)
	}
}

func TestValueKeyPointerIdentity(t *testing.T) {
	s1 := []int{1, 2}
	s2 := []int{1, 2}
	k1, err := valueKey(s1)
	if err != nil {
		t.Fatalf("valueKey(slice) error: %v", err)
	}
	k2, err := valueKey(s2)
	if err != nil {
		t.Fatalf("valueKey(slice) error: %v", err)
	}
	if k1 == k2 {
		t.Error("distinct slices should not share a key")
	}
	k1b, err := valueKey(s1)
	if err != nil {
		t.Fatalf("valueKey(slice) error: %v", err)
	}
	if k1 != k1b {
		t.Error("same slice should keep its key")
	}
}

func TestValueKeyRejectsNonComparable(t *testing.T) {
	type record struct {
		names []string
	}
	if _, err := valueKey(record{names: []string{"a"}}); err == nil {
		t.Error("struct with slice field should be rejected")
	}
}
