// Package node implements a schema-driven marshalling engine for directed
// graphs of fixed-arity nodes.
//
// This package contains:
//   - The node model: a kind plus three slots, each holding nothing, a raw
//     word, a child node, or a reference into one of five interned categories
//   - Interning tables assigning dense ordinals to shared leaves
//   - A pre-order graph walker that tolerates shared substructure and cycles
//   - A binary encoder producing a compact, relocatable container
//   - A two-pass decoder that allocates placeholders before resolving
//     references, so forward and cyclic references relocate correctly
//
// Node shapes are not compiled in. Callers supply a ShapeTable describing
// which referent kind each slot of each node kind carries; the schema
// package provides a TOML-backed implementation.
package node
