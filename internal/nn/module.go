package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"micrograd/internal/engine"
	"micrograd/internal/model"
)

// Module is anything holding trainable scalar parameters.
type Module interface {
	Parameters() []*engine.Value
	ZeroGrad()
}

type Neuron struct {
	w   []*engine.Value
	b   *engine.Value
	act ActivationSpec
	cfg ActivationConfig
}

// NewNeuron draws nin weights uniformly from [-1, 1) and starts the bias at 0.
func NewNeuron(nin int, act ActivationConfig, rng *rand.Rand) (*Neuron, error) {
	if nin <= 0 {
		return nil, fmt.Errorf("neuron input count must be positive, got %d", nin)
	}
	spec, cfg, err := Resolve(act)
	if err != nil {
		return nil, err
	}
	w := make([]*engine.Value, nin)
	for i := range w {
		w[i] = engine.New(rng.Float64()*2 - 1)
	}
	return &Neuron{w: w, b: engine.New(0), act: spec, cfg: cfg}, nil
}

// Call computes act(w·x + b).
func (n *Neuron) Call(x []*engine.Value) (*engine.Value, error) {
	if len(x) != len(n.w) {
		return nil, fmt.Errorf("neuron expects %d inputs, got %d", len(n.w), len(x))
	}
	act := n.b
	for i, wi := range n.w {
		act = act.Add(wi.Mul(x[i]))
	}
	return n.act.Apply(act, n.cfg), nil
}

func (n *Neuron) Parameters() []*engine.Value {
	params := make([]*engine.Value, 0, len(n.w)+1)
	params = append(params, n.w...)
	return append(params, n.b)
}

func (n *Neuron) ZeroGrad() { zeroGrad(n) }

func (n *Neuron) Activation() ActivationConfig { return n.cfg }

func (n *Neuron) String() string {
	return fmt.Sprintf("%s Neuron(%d)", n.act.Display, len(n.w))
}

type Layer struct {
	neurons []*Neuron
}

func NewLayer(nin, nout int, act ActivationConfig, rng *rand.Rand) (*Layer, error) {
	if nout <= 0 {
		return nil, fmt.Errorf("layer output count must be positive, got %d", nout)
	}
	neurons := make([]*Neuron, nout)
	for i := range neurons {
		n, err := NewNeuron(nin, act, rng)
		if err != nil {
			return nil, err
		}
		neurons[i] = n
	}
	return &Layer{neurons: neurons}, nil
}

func (l *Layer) Call(x []*engine.Value) ([]*engine.Value, error) {
	out := make([]*engine.Value, len(l.neurons))
	for i, n := range l.neurons {
		v, err := n.Call(x)
		if err != nil {
			return nil, fmt.Errorf("neuron %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (l *Layer) Parameters() []*engine.Value {
	var params []*engine.Value
	for _, n := range l.neurons {
		params = append(params, n.Parameters()...)
	}
	return params
}

func (l *Layer) ZeroGrad() { zeroGrad(l) }

func (l *Layer) Inputs() int { return len(l.neurons[0].w) }

func (l *Layer) Outputs() int { return len(l.neurons) }

func (l *Layer) String() string {
	parts := make([]string, len(l.neurons))
	for i, n := range l.neurons {
		parts[i] = n.String()
	}
	return "Layer of [" + strings.Join(parts, ", ") + "]"
}

type MLP struct {
	layers []*Layer
}

// NewMLP builds len(nouts) dense layers. Hidden layers use the hidden
// activation; the output layer is always linear.
func NewMLP(nin int, nouts []int, hidden ActivationConfig, rng *rand.Rand) (*MLP, error) {
	arch := model.Architecture{Inputs: nin}
	for i, nout := range nouts {
		spec := model.LayerSpec{Outputs: nout, Activation: "linear"}
		if i != len(nouts)-1 {
			spec.Activation = hidden.Name
			spec.Alpha = hidden.Alpha
			spec.Beta = hidden.Beta
		}
		arch.Layers = append(arch.Layers, spec)
	}
	return NewMLPFromArchitecture(arch, rng)
}

func NewMLPFromArchitecture(arch model.Architecture, rng *rand.Rand) (*MLP, error) {
	if len(arch.Layers) == 0 {
		return nil, fmt.Errorf("mlp requires at least one layer")
	}
	layers := make([]*Layer, len(arch.Layers))
	in := arch.Inputs
	for i, spec := range arch.Layers {
		layer, err := NewLayer(in, spec.Outputs, ActivationConfig{
			Name:  spec.Activation,
			Alpha: spec.Alpha,
			Beta:  spec.Beta,
		}, rng)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers[i] = layer
		in = spec.Outputs
	}
	return &MLP{layers: layers}, nil
}

// Restore rebuilds an MLP with the given architecture and parameter vector.
func Restore(arch model.Architecture, params []float64) (*MLP, error) {
	m, err := NewMLPFromArchitecture(arch, rand.New(rand.NewSource(0)))
	if err != nil {
		return nil, err
	}
	if err := m.LoadParameters(params); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MLP) Call(x []*engine.Value) ([]*engine.Value, error) {
	var err error
	for i, layer := range m.layers {
		x, err = layer.Call(x)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return x, nil
}

// Predict runs a forward pass on plain inputs and returns the first output.
func (m *MLP) Predict(x []float64) (*engine.Value, error) {
	out, err := m.Call(engine.Values(x...))
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *MLP) Parameters() []*engine.Value {
	var params []*engine.Value
	for _, layer := range m.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

func (m *MLP) ZeroGrad() { zeroGrad(m) }

func (m *MLP) Architecture() model.Architecture {
	arch := model.Architecture{Inputs: m.layers[0].Inputs()}
	for _, layer := range m.layers {
		cfg := layer.neurons[0].cfg
		arch.Layers = append(arch.Layers, model.LayerSpec{
			Outputs:    layer.Outputs(),
			Activation: cfg.Name,
			Alpha:      cfg.Alpha,
			Beta:       cfg.Beta,
		})
	}
	return arch
}

func (m *MLP) ParameterValues() []float64 {
	params := m.Parameters()
	out := make([]float64, len(params))
	for i, p := range params {
		out[i] = p.Data()
	}
	return out
}

func (m *MLP) LoadParameters(values []float64) error {
	params := m.Parameters()
	if len(values) != len(params) {
		return fmt.Errorf("parameter count mismatch: model has %d, got %d", len(params), len(values))
	}
	for i, p := range params {
		p.SetData(values[i])
	}
	return nil
}

func (m *MLP) String() string {
	parts := make([]string, len(m.layers))
	for i, layer := range m.layers {
		parts[i] = layer.String()
	}
	return "MLP of [" + strings.Join(parts, ", ") + "]"
}

func zeroGrad(m Module) {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}
