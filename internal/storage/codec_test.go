package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"micrograd/internal/model"
)

func TestDecodeSnapshotFixture(t *testing.T) {
	snapshot, err := DecodeSnapshot(readFixture(t, "snapshot_xor_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if snapshot.ID != "snapshot-xor-1" || snapshot.RunID != "run-xor-1" {
		t.Fatalf("unexpected snapshot ids: %+v", snapshot)
	}
	if len(snapshot.Architecture.Layers) != 2 || snapshot.Architecture.Layers[0].Activation != "relu" {
		t.Fatalf("unexpected architecture: %+v", snapshot.Architecture)
	}
}

func TestDecodeRunFixture(t *testing.T) {
	run, err := DecodeRun(readFixture(t, "run_xor_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if run.Dataset != "xor" || run.SnapshotID != "snapshot-xor-1" || run.FinalAccuracy != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	in := model.Snapshot{
		VersionedRecord: Versioned(),
		ID:              "s1",
		RunID:           "r1",
		Architecture: model.Architecture{
			Inputs: 1,
			Layers: []model.LayerSpec{{Outputs: 1, Activation: "softplus", Beta: 2}},
		},
		Parameters: []float64{0.5, -0.25},
	}
	data, err := EncodeSnapshot(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestDecodeSnapshotParameterCountMismatch(t *testing.T) {
	in := model.Snapshot{
		VersionedRecord: Versioned(),
		ID:              "s1",
		Architecture: model.Architecture{
			Inputs: 2,
			Layers: []model.LayerSpec{{Outputs: 1, Activation: "linear"}},
		},
		Parameters: []float64{1},
	}
	data, err := EncodeSnapshot(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeSnapshot(data); err == nil {
		t.Fatal("expected parameter count error")
	}
}

func TestDecodeVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.Run{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 2, CodecVersion: 1},
		ID:              "r1",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := DecodeSnapshot([]byte("{")); err == nil {
		t.Fatal("expected malformed snapshot error")
	}
	if _, err := DecodeHistory([]byte("[1,")); err == nil {
		t.Fatal("expected malformed history error")
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
