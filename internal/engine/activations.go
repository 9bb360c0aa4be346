package engine

import "math"

const (
	// sigmoidSaturation is the |x| beyond which sigmoid is treated as exactly 0 or 1.
	sigmoidSaturation = 20.0
	// softplusLinearCutoff is the βx beyond which softplus is treated as the identity.
	softplusLinearCutoff = 20.0

	geluCoeff = 0.044715

	defaultSoftplusBeta = 1.0
)

var sqrt2OverPi = math.Sqrt(2 / math.Pi)

func (v *Value) ReLU() *Value {
	out := newResult(math.Max(0, v.data), "ReLU", v)
	out.backward = func() {
		if out.data > 0 {
			v.grad += out.grad
		}
	}
	return out
}

// Sigmoid computes 1/(1+e^-x). Outside [-20, 20] the output is clamped to 0
// or 1 and the local gradient is zero.
func (v *Value) Sigmoid() *Value {
	x := v.data
	if x < -sigmoidSaturation || x > sigmoidSaturation {
		out := newResult(Sigmoid(x), "sigmoid", v)
		out.backward = func() {}
		return out
	}
	s := Sigmoid(x)
	out := newResult(s, "sigmoid", v)
	out.backward = func() {
		v.grad += s * (1 - s) * out.grad
	}
	return out
}

// LeakyReLU returns x for positive x and alpha*x otherwise.
func (v *Value) LeakyReLU(alpha float64) *Value {
	x := v.data
	data := x
	if x <= 0 {
		data = alpha * x
	}
	out := newResult(data, "LeakyReLU("+formatFloat(alpha)+")", v)
	out.backward = func() {
		if x > 0 {
			v.grad += out.grad
			return
		}
		v.grad += alpha * out.grad
	}
	return out
}

// ELU returns x for positive x and alpha*(e^x - 1) otherwise.
func (v *Value) ELU(alpha float64) *Value {
	x := v.data
	op := "ELU(" + formatFloat(alpha) + ")"
	if x > 0 {
		out := newResult(x, op, v)
		out.backward = func() {
			v.grad += out.grad
		}
		return out
	}
	out := newResult(alpha*(math.Exp(x)-1), op, v)
	out.backward = func() {
		v.grad += (out.data + alpha) * out.grad
	}
	return out
}

// Swish is the self-gated x*sigmoid(beta*x).
func (v *Value) Swish(beta float64) *Value {
	x := v.data
	sig := Sigmoid(beta * x)
	out := newResult(x*sig, "Swish("+formatFloat(beta)+")", v)
	out.backward = func() {
		v.grad += (sig + beta*x*sig*(1-sig)) * out.grad
	}
	return out
}

// GELU uses the tanh approximation 0.5x(1 + tanh(sqrt(2/pi)(x + 0.044715x^3))).
func (v *Value) GELU() *Value {
	x := v.data
	t := math.Tanh(sqrt2OverPi * (x + geluCoeff*x*x*x))
	out := newResult(0.5*x*(1+t), "GELU", v)
	out.backward = func() {
		dt := (1 - t*t) * sqrt2OverPi * (1 + 3*geluCoeff*x*x)
		v.grad += (0.5*(1+t) + 0.5*x*dt) * out.grad
	}
	return out
}

// Softplus computes log(1 + e^(beta*x)) / beta, switching to the identity
// once beta*x exceeds 20. A zero beta means the default of 1.
func (v *Value) Softplus(beta float64) *Value {
	if beta == 0 {
		beta = defaultSoftplusBeta
	}
	x := v.data
	op := "Softplus(" + formatFloat(beta) + ")"
	bx := beta * x
	if bx > softplusLinearCutoff {
		out := newResult(x, op, v)
		out.backward = func() {
			v.grad += out.grad
		}
		return out
	}
	out := newResult(math.Log1p(math.Exp(bx))/beta, op, v)
	out.backward = func() {
		v.grad += (1 / (1 + math.Exp(-bx))) * out.grad
	}
	return out
}

// Sigmoid is the saturating, numerically stable logistic function shared by
// the Sigmoid and Swish nodes.
func Sigmoid(x float64) float64 {
	switch {
	case x < -sigmoidSaturation:
		return 0
	case x > sigmoidSaturation:
		return 1
	case x > 0:
		return 1 / (1 + math.Exp(-x))
	default:
		e := math.Exp(x)
		return e / (1 + e)
	}
}
