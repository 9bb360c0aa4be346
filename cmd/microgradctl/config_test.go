package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, payload map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train_config.json")
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTrainRequestFromConfig(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"run_id":              "cfg-run",
		"dataset":             "circles",
		"samples":             80,
		"noise":               0.05,
		"seed":                42,
		"hidden":              []any{8, 4},
		"activation":          map[string]any{"name": "swish", "beta": 1.5},
		"loss":                "mse",
		"epochs":              30,
		"batch_size":          16,
		"learning_rate":       0.5,
		"final_learning_rate": 0.01,
		"momentum":            0.9,
		"l2":                  0.001,
	})

	req, err := loadTrainRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load train request: %v", err)
	}
	if req.RunID != "cfg-run" || req.Dataset != "circles" || req.Samples != 80 || req.Seed != 42 {
		t.Fatalf("unexpected base fields: %+v", req)
	}
	if len(req.Hidden) != 2 || req.Hidden[0] != 8 || req.Hidden[1] != 4 {
		t.Fatalf("unexpected hidden widths: %v", req.Hidden)
	}
	if req.Activation != "swish" || req.Beta != 1.5 || req.Alpha != 0 {
		t.Fatalf("unexpected activation: name=%s alpha=%f beta=%f", req.Activation, req.Alpha, req.Beta)
	}
	if req.Loss != "mse" || req.Epochs != 30 || req.BatchSize != 16 {
		t.Fatalf("unexpected training fields: %+v", req)
	}
	if req.LearningRate != 0.5 || req.FinalLearningRate != 0.01 || req.Momentum != 0.9 || req.L2 != 0.001 {
		t.Fatalf("unexpected optimizer fields: %+v", req)
	}
}

func TestLoadTrainRequestFromConfigBareActivation(t *testing.T) {
	path := writeConfig(t, map[string]any{"activation": "gelu"})
	req, err := loadTrainRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load train request: %v", err)
	}
	if req.Activation != "gelu" {
		t.Fatalf("unexpected activation: %s", req.Activation)
	}
}

func TestLoadTrainRequestFromConfigRejectsBadShapes(t *testing.T) {
	for _, payload := range []map[string]any{
		{"hidden": "16,16"},
		{"hidden": []any{16, "wide"}},
		{"activation": 3},
	} {
		if _, err := loadTrainRequestFromConfig(writeConfig(t, payload)); err == nil {
			t.Fatalf("expected error for payload %v", payload)
		}
	}

	if _, err := loadTrainRequestFromConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestOverrideFromFlags(t *testing.T) {
	path := writeConfig(t, map[string]any{"dataset": "moons", "epochs": 40, "activation": "elu"})
	req, err := loadTrainRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load train request: %v", err)
	}

	set := map[string]bool{"epochs": true, "alpha": true}
	values := map[string]any{
		"epochs":  5,
		"alpha":   0.3,
		"dataset": "xor",
	}
	if err := overrideFromFlags(&req, set, values); err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.Epochs != 5 || req.Alpha != 0.3 {
		t.Fatalf("expected overridden fields, got %+v", req)
	}
	if req.Dataset != "moons" || req.Activation != "elu" {
		t.Fatalf("expected unset flags to keep config values, got %+v", req)
	}

	if err := overrideFromFlags(&req, map[string]bool{"bogus": true}, map[string]any{"bogus": 1}); err == nil {
		t.Fatal("expected unsupported override error")
	}
}
