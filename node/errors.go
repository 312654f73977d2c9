package node

import "fmt"

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// SchemaError reports a graph that violates its shape table: an unknown
// kind, a slot holding the wrong referent, or a malformed args record.
// It is fatal to the pass that raised it and is never retried.
type SchemaError struct {
	Kind     Kind
	KindName string
	Slot     int // offending slot 0..2, or -1 when not slot-specific
	Reason   string
}

func (e *SchemaError) Error() string {
	name := e.KindName
	if name == "" {
		name = fmt.Sprintf("%d", e.Kind)
	}
	if e.Slot >= 0 {
		return fmt.Sprintf("node-marshal: schema: kind %s: slot %d: %s", name, e.Slot, e.Reason)
	}
	return fmt.Sprintf("node-marshal: schema: kind %s: %s", name, e.Reason)
}

// CorruptionError reports a container that cannot be decoded: a truncated
// stream, an out-of-range ordinal or an invalid discriminant. Offset is the
// byte position inside the node stream where decoding failed, or -1 when
// the failure is outside the stream.
type CorruptionError struct {
	Offset int
	Reason string
}

func (e *CorruptionError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("node-marshal: corrupt container at byte %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("node-marshal: corrupt container: %s", e.Reason)
}

// CompatibilityError reports a container produced under an incompatible
// format, platform or shape-table version. It is raised before any
// allocation happens, so a rejected container costs nothing.
type CompatibilityError struct {
	Field string // "magic", "platform" or "version"
	Got   string
	Want  string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("node-marshal: incompatible container: %s is %q, want %q", e.Field, e.Got, e.Want)
}

// corrupt builds a CorruptionError outside the node stream.
func corrupt(format string, args ...any) *CorruptionError {
	return &CorruptionError{Offset: -1, Reason: fmt.Sprintf(format, args...)}
}

// corruptAt builds a CorruptionError at a node stream offset.
func corruptAt(off int, format string, args ...any) *CorruptionError {
	return &CorruptionError{Offset: off, Reason: fmt.Sprintf(format, args...)}
}
