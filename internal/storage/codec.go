package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"micrograd/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

// TimestampLayout is RFC3339 with a fixed nine-digit fraction, so stored
// created_at_utc values order lexically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned is the record header stamped on everything the store writes.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.Run) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.Run, error) {
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func EncodeSnapshot(s model.Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.Snapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.Snapshot{}, err
	}
	if want := snapshot.Architecture.ParameterCount(); want != len(snapshot.Parameters) {
		return model.Snapshot{}, fmt.Errorf("snapshot %s: architecture expects %d parameters, payload has %d", snapshot.ID, want, len(snapshot.Parameters))
	}
	return snapshot, nil
}

func EncodeHistory(history []model.EpochMetrics) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeHistory(data []byte) ([]model.EpochMetrics, error) {
	var history []model.EpochMetrics
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
