package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mg "micrograd/pkg/micrograd"
)

func TestRunRequiresCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "usage: microgradctl") {
		t.Fatalf("expected usage error, got: %v", err)
	}
	if err := run(context.Background(), []string{"evolve"}); err == nil || !strings.Contains(err.Error(), "unknown command: evolve") {
		t.Fatalf("expected unknown command error, got: %v", err)
	}
}

func TestActivationsCommandListsRegistry(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"activations"})
	})
	if err != nil {
		t.Fatalf("activations command: %v", err)
	}
	for _, want := range []string{
		"activation=relu display=ReLU",
		"activation=leaky_relu display=LeakyReLU alpha=0.01",
		"activation=elu display=ELU alpha=1",
		"activation=swish display=Swish beta=1",
		"activation=softplus display=Softplus beta=1",
		"activation=gelu display=GELU",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTrainCommandMemoryStore(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"train",
			"--store", "memory",
			"--run-id", "cli-run",
			"--dataset", "xor",
			"--hidden", "4",
			"--activation", "tanh",
			"--epochs", "3",
			"--lr", "0.05",
			"--seed", "5",
		})
	})
	if err != nil {
		t.Fatalf("train command: %v", err)
	}
	if !strings.Contains(out, "run completed run_id=cli-run") {
		t.Fatalf("unexpected train output:\n%s", out)
	}
	if !strings.Contains(out, "params=17") || !strings.Contains(out, "activation=tanh") {
		t.Fatalf("expected parameter count and activation in output:\n%s", out)
	}
	if !strings.Contains(out, "final_loss=") {
		t.Fatalf("expected final metrics in output:\n%s", out)
	}
}

func TestTrainCommandRejectsBadHidden(t *testing.T) {
	err := run(context.Background(), []string{"train", "--store", "memory", "--hidden", "4,x"})
	if err == nil || !strings.Contains(err.Error(), "parse -hidden") {
		t.Fatalf("expected hidden parse error, got: %v", err)
	}
}

func TestTrainCommandConfigWithFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.json")
	payload := `{
		"run_id": "from-config",
		"dataset": "xor",
		"hidden": [3],
		"activation": {"name": "leaky_relu", "alpha": 0.2},
		"epochs": 50,
		"learning_rate": 0.05
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"train",
			"--store", "memory",
			"--config", path,
			"--epochs", "2",
		})
	})
	if err != nil {
		t.Fatalf("train command: %v", err)
	}
	if !strings.Contains(out, "run_id=from-config") || !strings.Contains(out, "activation=leaky_relu") {
		t.Fatalf("expected config values in output:\n%s", out)
	}
	if !strings.Contains(out, "params=13") {
		t.Fatalf("expected 13 parameters for a 2-3-1 net:\n%s", out)
	}
}

func TestPredictCommandWithoutRunsFails(t *testing.T) {
	err := run(context.Background(), []string{"predict", "--store", "memory", "--latest", "0,1"})
	if !errors.Is(err, mg.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got: %v", err)
	}
	if err := run(context.Background(), []string{"predict", "--store", "memory", "--latest"}); err == nil {
		t.Fatal("expected missing input error")
	}
}

func TestRunsCommandRejectsNonPositiveLimit(t *testing.T) {
	if err := run(context.Background(), []string{"runs", "--store", "memory", "--limit", "0"}); err == nil {
		t.Fatal("expected limit validation error")
	}
}

func TestGradCheckCommand(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"gradcheck", "--model"})
	})
	if err != nil {
		t.Fatalf("gradcheck command: %v\n%s", err, out)
	}
	for _, want := range []string{"check=relu status=ok", "check=swish status=ok", "check=gelu status=ok", "check=mlp status=ok"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	if err := run(context.Background(), []string{"gradcheck", "--activation", "mish"}); err == nil {
		t.Fatal("expected unknown activation error")
	}
}

func TestGraphCommandWritesDOT(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"graph", "--activation", "elu", "--inputs", "0.5,-1,2"})
	})
	if err != nil {
		t.Fatalf("graph command: %v", err)
	}
	if !strings.HasPrefix(out, "digraph G {") || !strings.Contains(out, `label="ELU(1)"`) {
		t.Fatalf("unexpected DOT output:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "neuron.dot")
	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"graph", "--out", path})
	})
	if err != nil {
		t.Fatalf("graph command to file: %v", err)
	}
	if !strings.Contains(out, "graph written path="+path) {
		t.Fatalf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dot file: %v", err)
	}
	if !strings.Contains(string(data), `label="tanh"`) {
		t.Fatalf("expected tanh op in file:\n%s", data)
	}
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}
