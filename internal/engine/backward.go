package engine

import (
	"errors"
	"fmt"
	"math"
)

var ErrNonFinite = errors.New("non-finite value in graph")

// TopologicalOrder lists every node reachable from root exactly once, with
// operands ahead of the nodes that use them. The root is last.
func TopologicalOrder(root *Value) []*Value {
	var topo []*Value
	visited := make(map[*Value]bool)

	type frame struct {
		node *Value
		next int
	}
	stack := []frame{{node: root}}
	visited[root] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.prev) {
			child := top.node.prev[top.next]
			top.next++
			if !visited[child] {
				visited[child] = true
				stack = append(stack, frame{node: child})
			}
			continue
		}
		topo = append(topo, top.node)
		stack = stack[:len(stack)-1]
	}
	return topo
}

// Backward seeds v's gradient with 1 and applies the chain rule to every
// node reachable from v in reverse topological order. Gradients accumulate
// on top of whatever was there, so callers zero parameters between passes.
//
// The pass always runs to completion. Afterwards any NaN or infinite value
// or gradient in the graph is reported as ErrNonFinite.
func (v *Value) Backward() error {
	topo := TopologicalOrder(v)

	v.grad = 1
	for i := len(topo) - 1; i >= 0; i-- {
		if fn := topo[i].backward; fn != nil {
			fn()
		}
	}

	for _, node := range topo {
		if !isFinite(node.data) {
			return fmt.Errorf("%w: data=%v at %s", ErrNonFinite, node.data, describe(node))
		}
		if !isFinite(node.grad) {
			return fmt.Errorf("%w: grad=%v at %s", ErrNonFinite, node.grad, describe(node))
		}
	}
	return nil
}

// ZeroGrads resets the gradient of every node reachable from root.
func ZeroGrads(root *Value) {
	for _, node := range TopologicalOrder(root) {
		node.grad = 0
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func describe(node *Value) string {
	if node.op == "" {
		return "leaf"
	}
	return "op " + node.op
}
