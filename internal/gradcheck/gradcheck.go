// Package gradcheck compares gradients produced by reverse-mode
// differentiation against central finite differences.
package gradcheck

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"micrograd/internal/engine"
	"micrograd/internal/nn"
)

const (
	DefaultTolerance = 1e-5
	defaultStep      = 1e-6
)

// DefaultPoints avoids the kinks of relu-like activations at 0 and the
// saturated tails of sigmoid.
var DefaultPoints = []float64{-3.7, -2.1, -0.9, -0.35, 0.15, 0.6, 1.4, 2.8}

type Result struct {
	Name string
	// Checks is the number of scalar gradients compared.
	Checks int
	// MaxAbsError is the worst |engine - finite difference|.
	MaxAbsError float64
	// MaxClosedFormError is the worst |engine - closed form|, activations only.
	MaxClosedFormError float64
	Passed             bool
}

func settings() *fd.Settings {
	return &fd.Settings{Formula: fd.Central, Step: defaultStep}
}

// CheckActivation evaluates the activation at each point and compares the
// engine gradient with a numerical derivative and the registry's closed form.
func CheckActivation(cfg nn.ActivationConfig, points []float64, tol float64) (Result, error) {
	spec, resolved, err := nn.Resolve(cfg)
	if err != nil {
		return Result{}, err
	}
	if len(points) == 0 {
		points = DefaultPoints
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	forward := func(x float64) float64 {
		return spec.Apply(engine.New(x), resolved).Data()
	}

	res := Result{Name: spec.Name, Checks: len(points)}
	for _, x := range points {
		in := engine.New(x)
		if err := spec.Apply(in, resolved).Backward(); err != nil {
			return Result{}, fmt.Errorf("%s at %g: %w", spec.Name, x, err)
		}
		numeric := fd.Derivative(forward, x, settings())
		res.MaxAbsError = math.Max(res.MaxAbsError, math.Abs(in.Grad()-numeric))

		if spec.Derivative != nil {
			closed := spec.Derivative(x, resolved)
			res.MaxClosedFormError = math.Max(res.MaxClosedFormError, math.Abs(in.Grad()-closed))
		}
	}
	res.Passed = res.MaxAbsError <= tol && res.MaxClosedFormError <= tol
	return res, nil
}

// CheckActivations runs CheckActivation with default parameters for every
// registered activation.
func CheckActivations(points []float64, tol float64) ([]Result, error) {
	names := nn.ListActivations()
	results := make([]Result, 0, len(names))
	for _, name := range names {
		res, err := CheckActivation(nn.ActivationConfig{Name: name}, points, tol)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// CheckModel compares dLoss/dParam for every parameter of m. The model's
// parameters are restored before returning.
func CheckModel(m *nn.MLP, inputs [][]float64, targets []float64, loss nn.LossFunc, tol float64) (Result, error) {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	original := m.ParameterValues()
	defer func() {
		_ = m.LoadParameters(original)
	}()

	lossNode := func() (*engine.Value, error) {
		preds := make([]*engine.Value, len(inputs))
		for i, x := range inputs {
			p, err := m.Predict(x)
			if err != nil {
				return nil, err
			}
			preds[i] = p
		}
		return loss(preds, targets)
	}

	out, err := lossNode()
	if err != nil {
		return Result{}, err
	}
	m.ZeroGrad()
	if err := out.Backward(); err != nil {
		return Result{}, err
	}
	params := m.Parameters()
	analytic := make([]float64, len(params))
	for i, p := range params {
		analytic[i] = p.Grad()
	}

	var evalErr error
	objective := func(x []float64) float64 {
		if err := m.LoadParameters(x); err != nil {
			evalErr = err
			return math.NaN()
		}
		v, err := lossNode()
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return v.Data()
	}
	numeric := fd.Gradient(nil, objective, original, settings())
	if evalErr != nil {
		return Result{}, evalErr
	}

	res := Result{Name: "mlp", Checks: len(params)}
	for i := range analytic {
		res.MaxAbsError = math.Max(res.MaxAbsError, math.Abs(analytic[i]-numeric[i]))
	}
	res.Passed = res.MaxAbsError <= tol
	return res, nil
}
