package node

import (
	"fmt"
	"strings"
)

// DumpTree renders a graph as indented text for debugging. Each line is
// one node: its kind name, its metadata word when nonzero, then its
// non-empty slots. A node reached a second time prints as a back
// reference instead of recursing, so shared substructure and cycles
// terminate.
func DumpTree(root *Node, table ShapeTable) string {
	var b strings.Builder
	d := &treeDumper{table: table, seen: make(map[*Node]int)}
	d.dump(&b, root, 0)
	return b.String()
}

type treeDumper struct {
	table ShapeTable
	seen  map[*Node]int
	next  int
}

func (d *treeDumper) dump(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		fmt.Fprintf(b, "%s-\n", indent)
		return
	}
	if id, ok := d.seen[n]; ok {
		fmt.Fprintf(b, "%s@%d\n", indent, id)
		return
	}
	id := d.next
	d.next++
	d.seen[n] = id

	fmt.Fprintf(b, "%s%s", indent, d.kindName(n.Kind))
	if n.Extra != 0 {
		fmt.Fprintf(b, " [%d]", n.Extra)
	}
	b.WriteByte('\n')

	for i := 0; i < 3; i++ {
		d.dumpSlot(b, n.Slots[i], depth+1)
	}
}

func (d *treeDumper) dumpSlot(b *strings.Builder, s any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := s.(type) {
	case nil:
		// Empty slots are omitted to keep dumps compact.
	case *Node:
		d.dump(b, v, depth)
	case Symbol:
		fmt.Fprintf(b, "%s:%s\n", indent, v)
	case *SymbolGroup:
		names := make([]string, len(v.Names))
		for i, n := range v.Names {
			names[i] = string(n)
		}
		fmt.Fprintf(b, "%s(%s)\n", indent, strings.Join(names, " "))
	case *ArgsRecord:
		fmt.Fprintf(b, "%sargs pre=%d post=%d\n", indent, v.PreCount, v.PostCount)
		for _, child := range [...]*Node{v.PreInit, v.PostInit, v.KeywordArgs, v.KeywordRest, v.Optional} {
			if child != nil {
				d.dump(b, child, depth+1)
			}
		}
	case *Binding:
		fmt.Fprintf(b, "%s&%s\n", indent, v.Name)
	default:
		fmt.Fprintf(b, "%s%v\n", indent, v)
	}
}

func (d *treeDumper) kindName(k Kind) string {
	if name := d.table.KindName(k); name != "" {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}
