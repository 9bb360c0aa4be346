package storage

import (
	"context"

	"micrograd/internal/model"
)

// Store persists training runs, their per-epoch history and the trained
// parameter snapshots.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.Run, error)
	SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (model.Snapshot, bool, error)
	SaveHistory(ctx context.Context, runID string, history []model.EpochMetrics) error
	GetHistory(ctx context.Context, runID string) ([]model.EpochMetrics, bool, error)
}
