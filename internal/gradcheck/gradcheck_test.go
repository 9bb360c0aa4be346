package gradcheck

import (
	"errors"
	"math/rand"
	"testing"

	"micrograd/internal/nn"
)

func TestCheckActivationsPass(t *testing.T) {
	results, err := CheckActivations(nil, 0)
	if err != nil {
		t.Fatalf("check activations: %v", err)
	}
	if len(results) != len(nn.ListActivations()) {
		t.Fatalf("expected one result per activation, got %d", len(results))
	}
	for _, res := range results {
		if !res.Passed {
			t.Fatalf("gradient check failed for %s: fd=%g closed=%g", res.Name, res.MaxAbsError, res.MaxClosedFormError)
		}
		if res.Checks != len(DefaultPoints) {
			t.Fatalf("unexpected check count for %s: %d", res.Name, res.Checks)
		}
	}
}

func TestCheckActivationWithParameters(t *testing.T) {
	for _, cfg := range []nn.ActivationConfig{
		{Name: "leaky_relu", Alpha: 0.2},
		{Name: "elu", Alpha: 0.5},
		{Name: "swish", Beta: 3},
		{Name: "softplus", Beta: 2},
	} {
		res, err := CheckActivation(cfg, []float64{-1.3, -0.2, 0.4, 1.7}, 0)
		if err != nil {
			t.Fatalf("check %s: %v", cfg.Name, err)
		}
		if !res.Passed {
			t.Fatalf("gradient check failed for %+v: %+v", cfg, res)
		}
	}
}

func TestCheckActivationUnknown(t *testing.T) {
	_, err := CheckActivation(nn.ActivationConfig{Name: "nope"}, nil, 0)
	if !errors.Is(err, nn.ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
}

func TestCheckModel(t *testing.T) {
	m, err := nn.NewMLP(2, []int{4, 3, 1}, nn.ActivationConfig{Name: "gelu"}, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("new mlp: %v", err)
	}
	before := m.ParameterValues()

	inputs := [][]float64{{0.2, -0.4}, {1.1, 0.3}, {-0.7, 0.9}}
	targets := []float64{1, -1, 1}
	res, err := CheckModel(m, inputs, targets, nn.MSE, 0)
	if err != nil {
		t.Fatalf("check model: %v", err)
	}
	if !res.Passed {
		t.Fatalf("model gradient check failed: %+v", res)
	}
	if res.Checks != len(before) {
		t.Fatalf("unexpected check count: %d", res.Checks)
	}

	after := m.ParameterValues()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("parameter %d not restored: %f != %f", i, before[i], after[i])
		}
	}
}
