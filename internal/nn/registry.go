package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"micrograd/internal/engine"
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("unknown activation")
	ErrActivationParams   = errors.New("invalid activation parameters")
)

// ActivationConfig selects an activation by name. Zero Alpha or Beta means
// the activation's default.
type ActivationConfig struct {
	Name  string
	Alpha float64
	Beta  float64
}

type ApplyFunc func(v *engine.Value, cfg ActivationConfig) *engine.Value

type DerivativeFunc func(x float64, cfg ActivationConfig) float64

type ActivationSpec struct {
	Name       string
	Display    string
	Apply      ApplyFunc
	Derivative DerivativeFunc
	Defaults   ActivationConfig
}

var activationRegistry = struct {
	mu sync.RWMutex
	m  map[string]ActivationSpec
}{
	m: make(map[string]ActivationSpec),
}

func init() {
	initializeBuiltInActivations()
}

func initializeBuiltInActivations() {
	MustRegisterActivation(ActivationSpec{
		Name:       "linear",
		Display:    "Linear",
		Apply:      func(v *engine.Value, _ ActivationConfig) *engine.Value { return v },
		Derivative: func(float64, ActivationConfig) float64 { return 1 },
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "relu",
		Display:    "ReLU",
		Apply:      func(v *engine.Value, _ ActivationConfig) *engine.Value { return v.ReLU() },
		Derivative: reluDerivative,
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "sigmoid",
		Display:    "Sigmoid",
		Apply:      func(v *engine.Value, _ ActivationConfig) *engine.Value { return v.Sigmoid() },
		Derivative: sigmoidDerivative,
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "tanh",
		Display:    "Tanh",
		Apply:      func(v *engine.Value, _ ActivationConfig) *engine.Value { return v.Tanh() },
		Derivative: tanhDerivative,
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "leaky_relu",
		Display:    "LeakyReLU",
		Apply:      func(v *engine.Value, cfg ActivationConfig) *engine.Value { return v.LeakyReLU(cfg.Alpha) },
		Derivative: leakyReLUDerivative,
		Defaults:   ActivationConfig{Alpha: 0.01},
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "elu",
		Display:    "ELU",
		Apply:      func(v *engine.Value, cfg ActivationConfig) *engine.Value { return v.ELU(cfg.Alpha) },
		Derivative: eluDerivative,
		Defaults:   ActivationConfig{Alpha: 1},
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "swish",
		Display:    "Swish",
		Apply:      func(v *engine.Value, cfg ActivationConfig) *engine.Value { return v.Swish(cfg.Beta) },
		Derivative: swishDerivative,
		Defaults:   ActivationConfig{Beta: 1},
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "gelu",
		Display:    "GELU",
		Apply:      func(v *engine.Value, _ ActivationConfig) *engine.Value { return v.GELU() },
		Derivative: geluDerivative,
	})
	MustRegisterActivation(ActivationSpec{
		Name:       "softplus",
		Display:    "Softplus",
		Apply:      func(v *engine.Value, cfg ActivationConfig) *engine.Value { return v.Softplus(cfg.Beta) },
		Derivative: softplusDerivative,
		Defaults:   ActivationConfig{Beta: 1},
	})
}

func RegisterActivation(spec ActivationSpec) error {
	name := normalizeName(spec.Name)
	if name == "" {
		return errors.New("activation name is required")
	}
	if spec.Apply == nil {
		return errors.New("activation function is required")
	}
	if spec.Display == "" {
		spec.Display = name
	}
	spec.Name = name
	spec.Defaults.Name = name

	activationRegistry.mu.Lock()
	defer activationRegistry.mu.Unlock()

	if _, exists := activationRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, name)
	}
	activationRegistry.m[name] = spec
	return nil
}

func MustRegisterActivation(spec ActivationSpec) {
	if err := RegisterActivation(spec); err != nil {
		panic(err)
	}
}

func GetActivation(name string) (ActivationSpec, error) {
	activationRegistry.mu.RLock()
	spec, ok := activationRegistry.m[normalizeName(name)]
	activationRegistry.mu.RUnlock()
	if !ok {
		return ActivationSpec{}, fmt.Errorf("%w %q (available: %s)", ErrActivationNotFound, name, strings.Join(ListActivations(), ", "))
	}
	return spec, nil
}

func ListActivations() []string {
	activationRegistry.mu.RLock()
	defer activationRegistry.mu.RUnlock()

	names := make([]string, 0, len(activationRegistry.m))
	for name := range activationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up cfg.Name, fills in defaults and validates the parameters.
func Resolve(cfg ActivationConfig) (ActivationSpec, ActivationConfig, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "linear"
	}
	spec, err := GetActivation(cfg.Name)
	if err != nil {
		return ActivationSpec{}, ActivationConfig{}, err
	}
	cfg.Name = spec.Name
	if cfg.Alpha == 0 {
		cfg.Alpha = spec.Defaults.Alpha
	}
	if cfg.Beta == 0 {
		cfg.Beta = spec.Defaults.Beta
	}
	if math.IsNaN(cfg.Alpha) || math.IsInf(cfg.Alpha, 0) {
		return ActivationSpec{}, ActivationConfig{}, fmt.Errorf("%w: %s alpha=%v", ErrActivationParams, spec.Name, cfg.Alpha)
	}
	if math.IsNaN(cfg.Beta) || math.IsInf(cfg.Beta, 0) {
		return ActivationSpec{}, ActivationConfig{}, fmt.Errorf("%w: %s beta=%v", ErrActivationParams, spec.Name, cfg.Beta)
	}
	return spec, cfg, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func resetActivationRegistryForTests() {
	activationRegistry.mu.Lock()
	activationRegistry.m = make(map[string]ActivationSpec)
	activationRegistry.mu.Unlock()
	initializeBuiltInActivations()
}
