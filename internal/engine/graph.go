package engine

import (
	"bufio"
	"fmt"
	"io"
)

type Edge struct {
	From *Value
	To   *Value
}

// Trace collects the nodes reachable from root in topological order and the
// operand edges between them.
func Trace(root *Value) ([]*Value, []Edge) {
	nodes := TopologicalOrder(root)
	var edges []Edge
	for _, node := range nodes {
		for _, child := range node.prev {
			edges = append(edges, Edge{From: child, To: node})
		}
	}
	return nodes, edges
}

// WriteDOT renders the graph rooted at root in Graphviz DOT, laid out left to
// right. Each non-leaf gets an extra op node between its operands and itself.
func WriteDOT(w io.Writer, root *Value) error {
	nodes, edges := Trace(root)
	ids := make(map[*Value]int, len(nodes))
	for i, node := range nodes {
		ids[node] = i
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph G {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	for _, node := range nodes {
		id := ids[node]
		fmt.Fprintf(bw, "  n%d [shape=record, label=\"{ data %.4f | grad %.4f }\"];\n", id, node.data, node.grad)
		if node.op != "" {
			fmt.Fprintf(bw, "  n%dop [label=%q];\n", id, node.op)
			fmt.Fprintf(bw, "  n%dop -> n%d;\n", id, id)
		}
	}
	for _, edge := range edges {
		fmt.Fprintf(bw, "  n%d -> n%dop;\n", ids[edge.From], ids[edge.To])
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
