package engine

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a scalar node in an expression graph. Every arithmetic or
// activation call returns a new Value that keeps shared references to its
// operands, so a whole computation forms a DAG rooted at its result.
type Value struct {
	data     float64
	grad     float64
	op       string
	prev     []*Value
	backward func()
}

// New returns a leaf node holding x.
func New(x float64) *Value {
	return &Value{data: x}
}

// Values wraps each float in a leaf node.
func Values(xs ...float64) []*Value {
	out := make([]*Value, len(xs))
	for i, x := range xs {
		out[i] = New(x)
	}
	return out
}

func newResult(data float64, op string, children ...*Value) *Value {
	for _, child := range children {
		if child == nil {
			panic("engine: nil operand for " + op)
		}
	}
	return &Value{data: data, op: op, prev: children}
}

func (v *Value) Data() float64 { return v.data }

func (v *Value) Grad() float64 { return v.grad }

// Op is the label of the operation that produced v, empty for leaves.
func (v *Value) Op() string { return v.op }

// Children returns the operands v was computed from.
func (v *Value) Children() []*Value {
	return append([]*Value(nil), v.prev...)
}

// SetData overwrites the forward value. It is meant for parameter updates on
// leaves; derived nodes are not recomputed.
func (v *Value) SetData(x float64) { v.data = x }

func (v *Value) ZeroGrad() { v.grad = 0 }

func (v *Value) String() string {
	return fmt.Sprintf("Value(data=%s, grad=%s)", formatFloat(v.data), formatFloat(v.grad))
}

func (v *Value) Add(other *Value) *Value {
	out := newResult(v.data+other.data, "+", v, other)
	out.backward = func() {
		v.grad += out.grad
		other.grad += out.grad
	}
	return out
}

func (v *Value) AddScalar(x float64) *Value {
	return v.Add(New(x))
}

func (v *Value) Mul(other *Value) *Value {
	out := newResult(v.data*other.data, "*", v, other)
	out.backward = func() {
		v.grad += other.data * out.grad
		other.grad += v.data * out.grad
	}
	return out
}

func (v *Value) MulScalar(x float64) *Value {
	return v.Mul(New(x))
}

// Pow raises v to a constant power. The exponent is not part of the graph.
func (v *Value) Pow(p float64) *Value {
	out := newResult(math.Pow(v.data, p), "**"+formatFloat(p), v)
	out.backward = func() {
		v.grad += p * math.Pow(v.data, p-1) * out.grad
	}
	return out
}

func (v *Value) Neg() *Value {
	return v.MulScalar(-1)
}

func (v *Value) Sub(other *Value) *Value {
	return v.Add(other.Neg())
}

func (v *Value) SubScalar(x float64) *Value {
	return v.AddScalar(-x)
}

// Div computes v * other^-1. Dividing by a zero node yields an infinite
// result which Backward reports as ErrNonFinite.
func (v *Value) Div(other *Value) *Value {
	return v.Mul(other.Pow(-1))
}

func (v *Value) DivScalar(x float64) *Value {
	return v.Mul(New(x).Pow(-1))
}

func (v *Value) Exp() *Value {
	e := math.Exp(v.data)
	out := newResult(e, "exp", v)
	out.backward = func() {
		v.grad += e * out.grad
	}
	return out
}

func (v *Value) Log() *Value {
	out := newResult(math.Log(v.data), "log", v)
	out.backward = func() {
		v.grad += (1 / v.data) * out.grad
	}
	return out
}

func (v *Value) Tanh() *Value {
	t := math.Tanh(v.data)
	out := newResult(t, "tanh", v)
	out.backward = func() {
		v.grad += (1 - t*t) * out.grad
	}
	return out
}

// Sum adds values left to right. An empty sum is a zero leaf.
func Sum(values ...*Value) *Value {
	if len(values) == 0 {
		return New(0)
	}
	acc := values[0]
	for _, value := range values[1:] {
		acc = acc.Add(value)
	}
	return acc
}

// Dot returns sum(a[i]*b[i]).
func Dot(a, b []*Value) (*Value, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("vector length mismatch: %d != %d", len(a), len(b))
	}
	terms := make([]*Value, len(a))
	for i := range a {
		terms[i] = a[i].Mul(b[i])
	}
	return Sum(terms...), nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
