package micrograd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"micrograd/internal/dataset"
	"micrograd/internal/engine"
	"micrograd/internal/gradcheck"
	"micrograd/internal/model"
	"micrograd/internal/nn"
	"micrograd/internal/stats"
	"micrograd/internal/storage"
	"micrograd/internal/train"
)

const defaultDBPath = "micrograd.db"

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

type TrainRequest struct {
	RunID             string
	Dataset           string
	Samples           int
	Noise             float64
	Seed              int64
	Hidden            []int
	Activation        string
	Alpha             float64
	Beta              float64
	Loss              string
	Epochs            int
	BatchSize         int
	LearningRate      float64
	FinalLearningRate float64
	Momentum          float64
	L2                float64
	OnEpoch           func(model.EpochMetrics)
}

type TrainSummary struct {
	RunID         string
	SnapshotID    string
	Parameters    int
	FinalLoss     float64
	FinalAccuracy float64
	History       []model.EpochMetrics
	Model         string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID         string
	CreatedAt     time.Time
	Dataset       string
	Activation    string
	Epochs        int
	Parameters    int
	FinalLoss     float64
	FinalAccuracy float64
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type PredictRequest struct {
	RunID  string
	Latest bool
	Inputs [][]float64
}

type GradCheckRequest struct {
	// Activation restricts the check to one activation; empty checks all.
	Activation string
	Alpha      float64
	Beta       float64
	Points     []float64
	Tolerance  float64
	// Model additionally checks a small MLP end to end.
	Model bool
	Seed  int64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type GraphRequest struct {
	Activation string
	Alpha      float64
	Beta       float64
	Inputs     []float64
	Seed       int64
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.DBPath == "" {
		opts.DBPath = defaultDBPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return &Client{store: store, logger: opts.Logger, now: time.Now}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if req.Dataset == "" {
		req.Dataset = "moons"
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Loss == "" {
		req.Loss = "hinge"
	}

	data, err := dataset.Generate(req.Dataset, dataset.Options{Samples: req.Samples, Noise: req.Noise, Seed: req.Seed})
	if err != nil {
		return TrainSummary{}, err
	}
	trainer, err := train.New(2, train.Config{
		Hidden:            req.Hidden,
		Activation:        nn.ActivationConfig{Name: req.Activation, Alpha: req.Alpha, Beta: req.Beta},
		Loss:              req.Loss,
		Epochs:            req.Epochs,
		BatchSize:         req.BatchSize,
		LearningRate:      req.LearningRate,
		FinalLearningRate: req.FinalLearningRate,
		Momentum:          req.Momentum,
		L2:                req.L2,
		Seed:              req.Seed,
	}, c.logger.With("run_id", req.RunID))
	if err != nil {
		return TrainSummary{}, err
	}
	trainer.OnEpoch = req.OnEpoch

	res, err := trainer.Run(ctx, data)
	if err != nil {
		return TrainSummary{}, fmt.Errorf("train run %s: %w", req.RunID, err)
	}

	cfg := trainer.Config()
	arch := res.Model.Architecture()
	snapshot := model.Snapshot{
		VersionedRecord: storage.Versioned(),
		ID:              uuid.NewString(),
		RunID:           req.RunID,
		Architecture:    arch,
		Parameters:      res.Model.ParameterValues(),
	}
	run := model.Run{
		VersionedRecord: storage.Versioned(),
		ID:              req.RunID,
		CreatedAtUTC:    storage.FormatTimestamp(c.now()),
		Dataset:         data.Name,
		Samples:         data.Len(),
		Noise:           req.Noise,
		Seed:            req.Seed,
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		LearningRate:    cfg.LearningRate,
		Momentum:        cfg.Momentum,
		Loss:            cfg.Loss,
		L2:              cfg.L2,
		Architecture:    arch,
		FinalLoss:       res.Final.Loss,
		FinalAccuracy:   res.Final.Accuracy,
		SnapshotID:      snapshot.ID,
	}
	if err := c.store.SaveSnapshot(ctx, snapshot); err != nil {
		return TrainSummary{}, err
	}
	if err := c.store.SaveHistory(ctx, run.ID, res.History); err != nil {
		return TrainSummary{}, err
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return TrainSummary{}, err
	}

	return TrainSummary{
		RunID:         run.ID,
		SnapshotID:    snapshot.ID,
		Parameters:    len(snapshot.Parameters),
		FinalLoss:     res.Final.Loss,
		FinalAccuracy: res.Final.Accuracy,
		History:       res.History,
		Model:         res.Model.String(),
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	items := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		createdAt, err := time.Parse(time.RFC3339Nano, run.CreatedAtUTC)
		if err != nil {
			return nil, fmt.Errorf("run %s: parse created_at_utc: %w", run.ID, err)
		}
		activation := ""
		if len(run.Architecture.Layers) > 0 {
			activation = run.Architecture.Layers[0].Activation
		}
		items = append(items, RunItem{
			RunID:         run.ID,
			CreatedAt:     createdAt,
			Dataset:       run.Dataset,
			Activation:    activation,
			Epochs:        run.Epochs,
			Parameters:    run.Architecture.ParameterCount(),
			FinalLoss:     run.FinalLoss,
			FinalAccuracy: run.FinalAccuracy,
		})
	}
	return items, nil
}

func (c *Client) History(ctx context.Context, req HistoryRequest) ([]model.EpochMetrics, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: history for %s", ErrRunNotFound, runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[len(history)-req.Limit:]
	}
	return history, nil
}

// Predict restores the run's trained snapshot and evaluates it on each input.
func (c *Client) Predict(ctx context.Context, req PredictRequest) ([]float64, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	snapshot, ok, err := c.store.GetSnapshot(ctx, run.SnapshotID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("snapshot %s for run %s not found", run.SnapshotID, runID)
	}
	m, err := nn.Restore(snapshot.Architecture, snapshot.Parameters)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %s: %w", snapshot.ID, err)
	}

	out := make([]float64, len(req.Inputs))
	for i, x := range req.Inputs {
		v, err := m.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = v.Data()
	}
	return out, nil
}

func (c *Client) GradCheck(_ context.Context, req GradCheckRequest) ([]gradcheck.Result, error) {
	var results []gradcheck.Result
	if req.Activation == "" {
		all, err := gradcheck.CheckActivations(req.Points, req.Tolerance)
		if err != nil {
			return nil, err
		}
		results = append(results, all...)
	} else {
		res, err := gradcheck.CheckActivation(nn.ActivationConfig{
			Name:  req.Activation,
			Alpha: req.Alpha,
			Beta:  req.Beta,
		}, req.Points, req.Tolerance)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if !req.Model {
		return results, nil
	}

	hidden := req.Activation
	if hidden == "" {
		hidden = "tanh"
	}
	m, err := nn.NewMLP(2, []int{4, 4, 1}, nn.ActivationConfig{Name: hidden, Alpha: req.Alpha, Beta: req.Beta}, rand.New(rand.NewSource(req.Seed)))
	if err != nil {
		return nil, err
	}
	data, err := dataset.Generate("moons", dataset.Options{Samples: 8, Noise: 0.1, Seed: req.Seed})
	if err != nil {
		return nil, err
	}
	res, err := gradcheck.CheckModel(m, data.Inputs, data.Labels, nn.MSE, req.Tolerance)
	if err != nil {
		return nil, err
	}
	return append(results, res), nil
}

// Export writes the run's config, history, snapshot and the DOT graph of the
// restored model evaluated at the origin into OutDir/<run id>.
func (c *Client) Export(ctx context.Context, req ExportRequest) (string, error) {
	if req.OutDir == "" {
		return "", errors.New("output directory is required")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return "", err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	history, _, err := c.store.GetHistory(ctx, runID)
	if err != nil {
		return "", err
	}
	snapshot, ok, err := c.store.GetSnapshot(ctx, run.SnapshotID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("snapshot %s for run %s not found", run.SnapshotID, runID)
	}
	m, err := nn.Restore(snapshot.Architecture, snapshot.Parameters)
	if err != nil {
		return "", fmt.Errorf("restore snapshot %s: %w", snapshot.ID, err)
	}

	dir, err := stats.WriteRunArtifacts(req.OutDir, stats.RunArtifacts{
		Run:      run,
		History:  history,
		Snapshot: snapshot,
		Graph: func(w io.Writer) error {
			out, err := m.Predict(make([]float64, snapshot.Architecture.Inputs))
			if err != nil {
				return err
			}
			if err := out.Backward(); err != nil {
				return err
			}
			return engine.WriteDOT(w, out)
		},
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("run exported", "run_id", runID, "dir", dir)
	return dir, nil
}

// Graph writes the DOT graph of a single backpropagated neuron act(w·x + b).
func (c *Client) Graph(w io.Writer, req GraphRequest) error {
	if len(req.Inputs) == 0 {
		req.Inputs = []float64{1, -2}
	}
	n, err := nn.NewNeuron(len(req.Inputs), nn.ActivationConfig{
		Name:  req.Activation,
		Alpha: req.Alpha,
		Beta:  req.Beta,
	}, rand.New(rand.NewSource(req.Seed)))
	if err != nil {
		return err
	}
	out, err := n.Call(engine.Values(req.Inputs...))
	if err != nil {
		return err
	}
	if err := out.Backward(); err != nil {
		return err
	}
	return engine.WriteDOT(w, out)
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id is required (or use latest)")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no runs recorded", ErrRunNotFound)
	}
	return runs[0].ID, nil
}
