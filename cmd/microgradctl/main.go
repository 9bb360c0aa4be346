package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"micrograd/internal/dataset"
	"micrograd/internal/model"
	"micrograd/internal/nn"
	"micrograd/internal/storage"
	mg "micrograd/pkg/micrograd"
)

const defaultDBPath = "micrograd.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "activations":
		return runActivations(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "predict":
		return runPredict(ctx, args[1:])
	case "gradcheck":
		return runGradCheck(ctx, args[1:])
	case "graph":
		return runGraph(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type storeFlags struct {
	kind    *string
	dbPath  *string
	verbose *bool
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:  fs.String("db-path", defaultDBPath, "sqlite database path"),
		verbose: fs.Bool("verbose", false, "log debug output to stderr"),
	}
}

func (f storeFlags) open(ctx context.Context) (*mg.Client, error) {
	level := slog.LevelWarn
	if *f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return mg.New(ctx, mg.Options{StoreKind: *f.kind, DBPath: *f.dbPath, Logger: logger})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("initialized store=%s\n", *sf.kind)
	return nil
}

func runActivations(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("activations", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range nn.ListActivations() {
		spec, cfg, err := nn.Resolve(nn.ActivationConfig{Name: name})
		if err != nil {
			return err
		}
		line := fmt.Sprintf("activation=%s display=%s", spec.Name, spec.Display)
		if spec.Defaults.Alpha != 0 {
			line += fmt.Sprintf(" alpha=%g", cfg.Alpha)
		}
		if spec.Defaults.Beta != 0 {
			line += fmt.Sprintf(" beta=%g", cfg.Beta)
		}
		fmt.Println(line)
	}
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	configPath := fs.String("config", "", "optional train config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	datasetName := fs.String("dataset", "moons", "dataset: "+strings.Join(dataset.Names(), "|"))
	samples := fs.Int("samples", 100, "dataset sample count")
	noise := fs.Float64("noise", 0.1, "dataset gaussian noise")
	seed := fs.Int64("seed", 1, "rng seed for data and weights")
	hidden := fs.String("hidden", "16,16", "comma-separated hidden layer widths")
	activation := fs.String("activation", "relu", "hidden activation: "+strings.Join(nn.ListActivations(), "|"))
	alpha := fs.Float64("alpha", 0, "activation alpha (leaky_relu, elu); 0 uses the default")
	beta := fs.Float64("beta", 0, "activation beta (swish, softplus); 0 uses the default")
	lossName := fs.String("loss", "hinge", "loss: hinge|mse")
	epochs := fs.Int("epochs", 100, "training epochs")
	batchSize := fs.Int("batch-size", 0, "mini-batch size (0 uses the full dataset)")
	lr := fs.Float64("lr", 1.0, "initial learning rate")
	finalLR := fs.Float64("final-lr", 0, "final learning rate (0 uses lr/10)")
	momentum := fs.Float64("momentum", 0, "sgd momentum")
	l2 := fs.Float64("l2", 1e-4, "l2 regularization strength")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	widths, err := parseIntList(*hidden)
	if err != nil {
		return fmt.Errorf("parse -hidden: %w", err)
	}
	flagValues := map[string]any{
		"run-id":     *runID,
		"dataset":    *datasetName,
		"samples":    *samples,
		"noise":      *noise,
		"seed":       *seed,
		"hidden":     widths,
		"activation": *activation,
		"alpha":      *alpha,
		"beta":       *beta,
		"loss":       *lossName,
		"epochs":     *epochs,
		"batch-size": *batchSize,
		"lr":         *lr,
		"final-lr":   *finalLR,
		"momentum":   *momentum,
		"l2":         *l2,
	}

	var req mg.TrainRequest
	if *configPath == "" {
		for name := range flagValues {
			setFlags[name] = true
		}
	} else {
		req, err = loadTrainRequestFromConfig(*configPath)
		if err != nil {
			return err
		}
	}
	if err := overrideFromFlags(&req, setFlags, flagValues); err != nil {
		return err
	}

	if *sf.verbose || isatty.IsTerminal(os.Stdout.Fd()) {
		req.OnEpoch = progressPrinter(os.Stdout, req.Epochs)
	}

	client, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s snapshot_id=%s dataset=%s activation=%s params=%s\n",
		summary.RunID, summary.SnapshotID, req.Dataset, req.Activation, humanize.Comma(int64(summary.Parameters)))
	fmt.Printf("final_loss=%.6f final_accuracy=%.2f%%\n", summary.FinalLoss, summary.FinalAccuracy*100)
	return nil
}

func progressPrinter(w io.Writer, epochs int) func(model.EpochMetrics) {
	every := epochs / 10
	if every < 1 {
		every = 1
	}
	return func(m model.EpochMetrics) {
		if m.Epoch%every != 0 && m.Epoch != epochs {
			return
		}
		fmt.Fprintf(w, "epoch=%d loss=%.6f accuracy=%.2f%% lr=%.4f\n", m.Epoch, m.Loss, m.Accuracy*100, m.LearningRate)
	}
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, mg.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created=%q dataset=%s activation=%s epochs=%d params=%s final_loss=%.6f final_accuracy=%.2f%%\n",
			item.RunID,
			humanize.Time(item.CreatedAt),
			item.Dataset,
			item.Activation,
			item.Epochs,
			humanize.Comma(int64(item.Parameters)),
			item.FinalLoss,
			item.FinalAccuracy*100,
		)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 0, "show only the last N epochs (0 shows all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.History(ctx, mg.HistoryRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	for _, m := range history {
		fmt.Printf("epoch=%d loss=%.6f accuracy=%.4f lr=%.6f\n", m.Epoch, m.Loss, m.Accuracy, m.LearningRate)
	}
	return nil
}

func runPredict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("predict requires at least one input such as 0.5,-1.2")
	}
	inputs := make([][]float64, 0, fs.NArg())
	for _, arg := range fs.Args() {
		x, err := parseFloatList(arg)
		if err != nil {
			return fmt.Errorf("parse input %q: %w", arg, err)
		}
		inputs = append(inputs, x)
	}

	client, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	preds, err := client.Predict(ctx, mg.PredictRequest{RunID: *runID, Latest: *latest, Inputs: inputs})
	if err != nil {
		return err
	}
	for i, pred := range preds {
		label := -1
		if pred > 0 {
			label = 1
		}
		fmt.Printf("input=%s score=%.6f label=%d\n", fs.Arg(i), pred, label)
	}
	return nil
}

func runGradCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gradcheck", flag.ContinueOnError)
	activation := fs.String("activation", "", "check a single activation (empty checks all)")
	alpha := fs.Float64("alpha", 0, "activation alpha")
	beta := fs.Float64("beta", 0, "activation beta")
	points := fs.String("points", "", "comma-separated evaluation points (empty uses defaults)")
	tolerance := fs.Float64("tolerance", 0, "max allowed absolute error (0 uses default)")
	checkModel := fs.Bool("model", false, "also check a small MLP end to end")
	seed := fs.Int64("seed", 1, "rng seed for the model check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var xs []float64
	if *points != "" {
		var err error
		if xs, err = parseFloatList(*points); err != nil {
			return fmt.Errorf("parse -points: %w", err)
		}
	}

	client, err := mg.New(ctx, mg.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	results, err := client.GradCheck(ctx, mg.GradCheckRequest{
		Activation: *activation,
		Alpha:      *alpha,
		Beta:       *beta,
		Points:     xs,
		Tolerance:  *tolerance,
		Model:      *checkModel,
		Seed:       *seed,
	})
	if err != nil {
		return err
	}
	failed := 0
	for _, res := range results {
		status := "ok"
		if !res.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Printf("check=%s status=%s checks=%d max_fd_error=%.3e max_closed_form_error=%.3e\n",
			res.Name, status, res.Checks, res.MaxAbsError, res.MaxClosedFormError)
	}
	if failed > 0 {
		return fmt.Errorf("%d gradient checks failed", failed)
	}
	return nil
}

func runGraph(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	activation := fs.String("activation", "tanh", "neuron activation")
	alpha := fs.Float64("alpha", 0, "activation alpha")
	beta := fs.Float64("beta", 0, "activation beta")
	inputs := fs.String("inputs", "1,-2", "comma-separated neuron inputs")
	seed := fs.Int64("seed", 1, "rng seed for neuron weights")
	out := fs.String("out", "", "write DOT to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	xs, err := parseFloatList(*inputs)
	if err != nil {
		return fmt.Errorf("parse -inputs: %w", err)
	}

	client, err := mg.New(ctx, mg.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := mg.GraphRequest{Activation: *activation, Alpha: *alpha, Beta: *beta, Inputs: xs, Seed: *seed}
	if *out == "" {
		return client.Graph(os.Stdout, req)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := client.Graph(f, req); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("graph written path=%s\n", *out)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	dir, err := client.Export(ctx, mg.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run artifacts dir=%s\n", dir)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: microgradctl <init|activations|train|runs|history|predict|gradcheck|graph|export> [flags]", msg)
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloatList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
