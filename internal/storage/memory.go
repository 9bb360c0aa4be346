package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"micrograd/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.Run
	snapshots   map[string]model.Snapshot
	history     map[string][]model.EpochMetrics
}

var errMemoryNotInitialized = errors.New("store is not initialized")

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.Run)
	s.snapshots = make(map[string]model.Snapshot)
	s.history = make(map[string][]model.EpochMetrics)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errMemoryNotInitialized
	}

	run.Architecture = cloneArchitecture(run.Architecture)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.Run{}, false, nil
	}
	run.Architecture = cloneArchitecture(run.Architecture)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		run.Architecture = cloneArchitecture(run.Architecture)
		runs = append(runs, run)
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errMemoryNotInitialized
	}

	s.snapshots[snapshot.ID] = cloneSnapshot(snapshot)
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) (model.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return model.Snapshot{}, false, nil
	}
	return cloneSnapshot(snapshot), true, nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, runID string, history []model.EpochMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errMemoryNotInitialized
	}

	s.history[runID] = append([]model.EpochMetrics(nil), history...)
	return nil
}

func (s *MemoryStore) GetHistory(_ context.Context, runID string) ([]model.EpochMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.EpochMetrics(nil), history...), true, nil
}

func cloneArchitecture(a model.Architecture) model.Architecture {
	a.Layers = append([]model.LayerSpec(nil), a.Layers...)
	return a
}

func cloneSnapshot(s model.Snapshot) model.Snapshot {
	s.Architecture = cloneArchitecture(s.Architecture)
	s.Parameters = append([]float64(nil), s.Parameters...)
	return s
}

// sortRunsNewestFirst orders by parsed creation time, breaking ties by id.
// Timestamps that do not parse fall back to string comparison.
func sortRunsNewestFirst(runs []model.Run) {
	created := make(map[string]time.Time, len(runs))
	for _, run := range runs {
		if t, err := time.Parse(time.RFC3339Nano, run.CreatedAtUTC); err == nil {
			created[run.ID] = t
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		ti, iok := created[runs[i].ID]
		tj, jok := created[runs[j].ID]
		if iok && jok {
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
		} else if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
}
