package nn

import (
	"errors"
	"math"
	"strings"
	"testing"

	"micrograd/internal/engine"
)

func TestRegisterAndGetActivation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	err := RegisterActivation(ActivationSpec{
		Name:  "quad",
		Apply: func(v *engine.Value, _ ActivationConfig) *engine.Value { return v.Mul(v) },
	})
	if err != nil {
		t.Fatalf("register activation: %v", err)
	}
	spec, err := GetActivation("QUAD")
	if err != nil {
		t.Fatalf("get activation: %v", err)
	}
	if got := spec.Apply(engine.New(3), ActivationConfig{}).Data(); got != 9 {
		t.Fatalf("unexpected activation result: got=%f want=9", got)
	}
	if spec.Display != "quad" {
		t.Fatalf("expected display to default to name, got %q", spec.Display)
	}
}

func TestRegisterActivationValidation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	identity := func(v *engine.Value, _ ActivationConfig) *engine.Value { return v }
	if err := RegisterActivation(ActivationSpec{Name: "", Apply: identity}); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterActivation(ActivationSpec{Name: "nil"}); err == nil {
		t.Fatal("expected nil function error")
	}
}

func TestRegisterActivationDuplicate(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	identity := func(v *engine.Value, _ ActivationConfig) *engine.Value { return v }
	if err := RegisterActivation(ActivationSpec{Name: "dup", Apply: identity}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := RegisterActivation(ActivationSpec{Name: "dup", Apply: identity}); !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected ErrActivationExists, got: %v", err)
	}
	if err := RegisterActivation(ActivationSpec{Name: "ReLU", Apply: identity}); !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected case-insensitive duplicate, got: %v", err)
	}
}

func TestGetActivationNotFound(t *testing.T) {
	_, err := GetActivation("missing")
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
	if !strings.Contains(err.Error(), "available: ") || !strings.Contains(err.Error(), "softplus") {
		t.Fatalf("expected available activations in error, got: %v", err)
	}
}

func TestListActivationsSorted(t *testing.T) {
	want := []string{"elu", "gelu", "leaky_relu", "linear", "relu", "sigmoid", "softplus", "swish", "tanh"}
	got := ListActivations()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected activation list: %+v", got)
	}
}

func TestResolveAppliesDefaults(t *testing.T) {
	cases := []struct {
		name  string
		alpha float64
		beta  float64
	}{
		{"leaky_relu", 0.01, 0},
		{"elu", 1, 0},
		{"swish", 0, 1},
		{"softplus", 0, 1},
		{"gelu", 0, 0},
	}
	for _, c := range cases {
		_, cfg, err := Resolve(ActivationConfig{Name: c.name})
		if err != nil {
			t.Fatalf("resolve %s: %v", c.name, err)
		}
		if cfg.Alpha != c.alpha || cfg.Beta != c.beta {
			t.Fatalf("unexpected defaults for %s: %+v", c.name, cfg)
		}
	}

	_, cfg, err := Resolve(ActivationConfig{Name: "Swish", Beta: 2})
	if err != nil {
		t.Fatalf("resolve swish: %v", err)
	}
	if cfg.Name != "swish" || cfg.Beta != 2 {
		t.Fatalf("expected explicit beta to be kept, got %+v", cfg)
	}

	_, cfg, err = Resolve(ActivationConfig{})
	if err != nil || cfg.Name != "linear" {
		t.Fatalf("expected empty name to resolve to linear, got cfg=%+v err=%v", cfg, err)
	}
}

func TestResolveRejectsNonFiniteParameters(t *testing.T) {
	if _, _, err := Resolve(ActivationConfig{Name: "elu", Alpha: math.NaN()}); !errors.Is(err, ErrActivationParams) {
		t.Fatalf("expected ErrActivationParams, got: %v", err)
	}
	if _, _, err := Resolve(ActivationConfig{Name: "softplus", Beta: math.Inf(1)}); !errors.Is(err, ErrActivationParams) {
		t.Fatalf("expected ErrActivationParams, got: %v", err)
	}
}
