package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Dataset is a labelled set of 2-D points with labels in {-1, +1}.
type Dataset struct {
	Name   string
	Inputs [][]float64
	Labels []float64
}

func (d Dataset) Len() int { return len(d.Labels) }

// Batch draws size samples without replacement. A non-positive size or one
// at least as large as the dataset returns the whole dataset in order.
func (d Dataset) Batch(rng *rand.Rand, size int) Dataset {
	if size <= 0 || size >= d.Len() {
		return d
	}
	idx := rng.Perm(d.Len())[:size]
	out := Dataset{
		Name:   d.Name,
		Inputs: make([][]float64, size),
		Labels: make([]float64, size),
	}
	for i, j := range idx {
		out.Inputs[i] = d.Inputs[j]
		out.Labels[i] = d.Labels[j]
	}
	return out
}

type Options struct {
	Samples int
	Noise   float64
	Seed    int64
}

type generator func(opts Options, rng *rand.Rand) Dataset

var generators = map[string]generator{
	"xor":     xor,
	"moons":   moons,
	"circles": circles,
}

func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Generate(name string, opts Options) (Dataset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	gen, ok := generators[key]
	if !ok {
		return Dataset{}, fmt.Errorf("unsupported dataset: %s", name)
	}
	if opts.Samples < 0 {
		return Dataset{}, fmt.Errorf("samples must be non-negative, got %d", opts.Samples)
	}
	if opts.Samples == 0 {
		opts.Samples = 100
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	d := gen(opts, rng)
	d.Name = key
	return d, nil
}

// xor ignores Samples: it is always the four truth-table rows.
func xor(_ Options, _ *rand.Rand) Dataset {
	return Dataset{
		Inputs: [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
		Labels: []float64{-1, 1, 1, -1},
	}
}

// moons produces two interleaving half circles, the outer one labelled -1.
func moons(opts Options, rng *rand.Rand) Dataset {
	nOuter := opts.Samples / 2
	nInner := opts.Samples - nOuter
	d := Dataset{}
	for i := 0; i < nOuter; i++ {
		t := linspace(i, nOuter) * math.Pi
		d.add(math.Cos(t), math.Sin(t), -1, opts.Noise, rng)
	}
	for i := 0; i < nInner; i++ {
		t := linspace(i, nInner) * math.Pi
		d.add(1-math.Cos(t), 1-math.Sin(t)-0.5, 1, opts.Noise, rng)
	}
	d.shuffle(rng)
	return d
}

// circles produces a unit circle labelled -1 around a half-size circle
// labelled +1.
func circles(opts Options, rng *rand.Rand) Dataset {
	nOuter := opts.Samples / 2
	nInner := opts.Samples - nOuter
	d := Dataset{}
	for i := 0; i < nOuter; i++ {
		t := 2 * math.Pi * float64(i) / float64(nOuter)
		d.add(math.Cos(t), math.Sin(t), -1, opts.Noise, rng)
	}
	for i := 0; i < nInner; i++ {
		t := 2 * math.Pi * float64(i) / float64(nInner)
		d.add(0.5*math.Cos(t), 0.5*math.Sin(t), 1, opts.Noise, rng)
	}
	d.shuffle(rng)
	return d
}

func (d *Dataset) add(x, y, label, noise float64, rng *rand.Rand) {
	if noise > 0 {
		x += rng.NormFloat64() * noise
		y += rng.NormFloat64() * noise
	}
	d.Inputs = append(d.Inputs, []float64{x, y})
	d.Labels = append(d.Labels, label)
}

func (d *Dataset) shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Labels), func(i, j int) {
		d.Inputs[i], d.Inputs[j] = d.Inputs[j], d.Inputs[i]
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
	})
}

// linspace returns the i-th of n evenly spaced points on [0, 1].
func linspace(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}
