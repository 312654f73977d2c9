package node

import "reflect"

// ---------------------------------------------------------------------------
// Interning tables
// ---------------------------------------------------------------------------

// internTable assigns dense, zero-based ordinals to distinct keys in
// first-encountered order. Interning the same key twice returns the same
// ordinal and leaves the first payload untouched.
type internTable[K comparable, P any] struct {
	ords     map[K]uint32
	payloads []P
}

func newInternTable[K comparable, P any]() *internTable[K, P] {
	return &internTable[K, P]{ords: make(map[K]uint32)}
}

// intern returns the ordinal for key, assigning the next free ordinal and
// recording payload if the key is new.
func (t *internTable[K, P]) intern(key K, payload P) uint32 {
	if ord, ok := t.ords[key]; ok {
		return ord
	}
	ord := uint32(len(t.payloads))
	t.ords[key] = ord
	t.payloads = append(t.payloads, payload)
	return ord
}

// ordinal looks up a key without interning it.
func (t *internTable[K, P]) ordinal(key K) (uint32, bool) {
	ord, ok := t.ords[key]
	return ord, ok
}

// payloadsInOrder returns the payloads indexed by ordinal. The returned
// slice is the table's own backing array; callers must not modify it.
func (t *internTable[K, P]) payloadsInOrder() []P {
	return t.payloads
}

func (t *internTable[K, P]) size() int {
	return len(t.payloads)
}

// ---------------------------------------------------------------------------
// Value surrogate keys
// ---------------------------------------------------------------------------

// refKey stands in for a value that cannot key a map directly. Raw
// addresses never reach the wire format; they only scope dedup within a
// single marshalling pass.
type refKey struct {
	ptr uintptr
	typ reflect.Type
}

// valueKey derives the interning key for a literal value: comparable
// values key by themselves, pointer-shaped values by address. Values that
// are neither (a struct with a slice field, say) cannot be deduplicated
// stably and are rejected.
func valueKey(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return refKey{ptr: rv.Pointer(), typ: rv.Type()}, nil
	}
	if rv.Comparable() {
		return v, nil
	}
	return nil, &SchemaError{
		Slot:   -1,
		Reason: "value of type " + rv.Type().String() + " cannot be interned",
	}
}
