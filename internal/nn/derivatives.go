package nn

import (
	"fmt"
	"math"

	"micrograd/internal/engine"
)

// Derivative evaluates the closed-form derivative of a registered activation
// at x, with cfg resolved against the activation's defaults.
func Derivative(name string, x float64, cfg ActivationConfig) (float64, error) {
	cfg.Name = name
	spec, resolved, err := Resolve(cfg)
	if err != nil {
		return 0, err
	}
	if spec.Derivative == nil {
		return 0, fmt.Errorf("activation %s has no closed-form derivative", spec.Name)
	}
	return spec.Derivative(x, resolved), nil
}

func reluDerivative(x float64, _ ActivationConfig) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func sigmoidDerivative(x float64, _ ActivationConfig) float64 {
	if x < -20 || x > 20 {
		return 0
	}
	s := engine.Sigmoid(x)
	return s * (1 - s)
}

func tanhDerivative(x float64, _ ActivationConfig) float64 {
	y := math.Tanh(x)
	return 1 - (y * y)
}

func leakyReLUDerivative(x float64, cfg ActivationConfig) float64 {
	if x > 0 {
		return 1
	}
	return cfg.Alpha
}

func eluDerivative(x float64, cfg ActivationConfig) float64 {
	if x > 0 {
		return 1
	}
	// d/dx α(e^x - 1) = αe^x
	return cfg.Alpha * math.Exp(x)
}

func swishDerivative(x float64, cfg ActivationConfig) float64 {
	s := engine.Sigmoid(cfg.Beta * x)
	return s + cfg.Beta*x*s*(1-s)
}

func geluDerivative(x float64, _ ActivationConfig) float64 {
	c := math.Sqrt(2 / math.Pi)
	t := math.Tanh(c * (x + 0.044715*x*x*x))
	return 0.5*(1+t) + 0.5*x*(1-t*t)*c*(1+3*0.044715*x*x)
}

func softplusDerivative(x float64, cfg ActivationConfig) float64 {
	if cfg.Beta*x > 20 {
		return 1
	}
	return 1 / (1 + math.Exp(-cfg.Beta*x))
}
