package train

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"micrograd/internal/dataset"
	"micrograd/internal/engine"
	"micrograd/internal/model"
	"micrograd/internal/nn"
)

type Config struct {
	Hidden     []int
	Activation nn.ActivationConfig
	Loss       string
	Epochs     int
	// BatchSize <= 0 trains on the full dataset every epoch.
	BatchSize int
	// LearningRate decays linearly to FinalLearningRate over Epochs.
	LearningRate      float64
	FinalLearningRate float64
	Momentum          float64
	L2                float64
	Seed              int64
}

func (c Config) withDefaults() Config {
	if len(c.Hidden) == 0 {
		c.Hidden = []int{16, 16}
	}
	if c.Epochs == 0 {
		c.Epochs = 100
	}
	if c.LearningRate == 0 {
		c.LearningRate = 1.0
	}
	if c.FinalLearningRate == 0 {
		c.FinalLearningRate = 0.1 * c.LearningRate
	}
	if c.Activation.Name == "" {
		c.Activation.Name = "relu"
	}
	return c
}

func (c Config) validate() error {
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must be non-negative, got %d", c.Epochs)
	}
	if c.LearningRate < 0 || c.FinalLearningRate < 0 {
		return fmt.Errorf("learning rates must be non-negative")
	}
	if c.L2 < 0 {
		return fmt.Errorf("l2 must be non-negative, got %f", c.L2)
	}
	for _, width := range c.Hidden {
		if width <= 0 {
			return fmt.Errorf("hidden layer widths must be positive, got %v", c.Hidden)
		}
	}
	return nil
}

type Trainer struct {
	cfg    Config
	model  *nn.MLP
	loss   nn.LossFunc
	opt    *nn.SGD
	rng    *rand.Rand
	logger *slog.Logger
	// OnEpoch, when set, is called after every epoch.
	OnEpoch func(model.EpochMetrics)
}

type Result struct {
	Model   *nn.MLP
	History []model.EpochMetrics
	Final   model.EpochMetrics
}

// New builds an MLP with len(Hidden) hidden layers and one linear output for
// inputs-dimensional data.
func New(inputs int, cfg Config, logger *slog.Logger) (*Trainer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	lossFn, err := nn.GetLoss(cfg.Loss)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	nouts := append(append([]int(nil), cfg.Hidden...), 1)
	m, err := nn.NewMLP(inputs, nouts, cfg.Activation, rng)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		cfg:    cfg,
		model:  m,
		loss:   lossFn,
		opt:    &nn.SGD{LearningRate: cfg.LearningRate, Momentum: cfg.Momentum},
		rng:    rng,
		logger: logger,
	}, nil
}

func (t *Trainer) Model() *nn.MLP { return t.model }

func (t *Trainer) Config() Config { return t.cfg }

// Evaluate returns data loss plus L2 penalty and accuracy on d without
// touching gradients.
func (t *Trainer) Evaluate(d dataset.Dataset) (model.EpochMetrics, error) {
	total, preds, err := t.objective(d)
	if err != nil {
		return model.EpochMetrics{}, err
	}
	return model.EpochMetrics{Loss: total.Data(), Accuracy: nn.Accuracy(preds, d.Labels)}, nil
}

// Run trains for the configured number of epochs. Cancellation is checked
// between epochs; the partial history is returned alongside ctx.Err().
func (t *Trainer) Run(ctx context.Context, d dataset.Dataset) (Result, error) {
	if d.Len() == 0 {
		return Result{}, fmt.Errorf("dataset %q is empty", d.Name)
	}
	params := t.model.Parameters()
	t.logger.Info("training started",
		"dataset", d.Name,
		"samples", d.Len(),
		"parameters", len(params),
		"epochs", t.cfg.Epochs,
		"activation", t.cfg.Activation.Name,
	)

	history := make([]model.EpochMetrics, 0, t.cfg.Epochs)
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{Model: t.model, History: history}, err
		}

		batch := d.Batch(t.rng, t.cfg.BatchSize)
		total, preds, err := t.objective(batch)
		if err != nil {
			return Result{Model: t.model, History: history}, err
		}

		t.model.ZeroGrad()
		if err := total.Backward(); err != nil {
			return Result{Model: t.model, History: history}, fmt.Errorf("epoch %d: %w", epoch+1, err)
		}

		lr := nn.LinearDecay(t.cfg.LearningRate, t.cfg.FinalLearningRate, epoch, t.cfg.Epochs)
		t.opt.LearningRate = lr
		t.opt.Step(params)

		metrics := model.EpochMetrics{
			Epoch:        epoch + 1,
			Loss:         total.Data(),
			Accuracy:     nn.Accuracy(preds, batch.Labels),
			LearningRate: lr,
		}
		history = append(history, metrics)
		t.logger.Debug("epoch", "epoch", metrics.Epoch, "loss", metrics.Loss, "accuracy", metrics.Accuracy, "lr", lr)
		if t.OnEpoch != nil {
			t.OnEpoch(metrics)
		}
	}

	final, err := t.Evaluate(d)
	if err != nil {
		return Result{Model: t.model, History: history}, err
	}
	final.Epoch = len(history)
	t.logger.Info("training finished", "loss", final.Loss, "accuracy", final.Accuracy)
	return Result{Model: t.model, History: history, Final: final}, nil
}

func (t *Trainer) objective(d dataset.Dataset) (*engine.Value, []*engine.Value, error) {
	preds := make([]*engine.Value, d.Len())
	for i, x := range d.Inputs {
		p, err := t.model.Predict(x)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", i, err)
		}
		preds[i] = p
	}
	dataLoss, err := t.loss(preds, d.Labels)
	if err != nil {
		return nil, nil, err
	}
	if t.cfg.L2 == 0 {
		return dataLoss, preds, nil
	}
	return dataLoss.Add(nn.L2(t.model.Parameters(), t.cfg.L2)), preds, nil
}
