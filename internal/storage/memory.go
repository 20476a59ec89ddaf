package storage

import (
	"context"
	"errors"
	"sync"

	"gazepomdp/internal/genotype"
	"gazepomdp/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	policies    map[string]model.Genome
	history     map[string][]float64
	summaries   map[string]model.EvaluationSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.policies = make(map[string]model.Genome)
	s.history = make(map[string][]float64)
	s.summaries = make(map[string]model.EvaluationSummary)
	return nil
}

// SavePolicy stores a deep copy so later mutation by the caller does not
// leak into the store.
func (s *MemoryStore) SavePolicy(_ context.Context, genome model.Genome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	if err := checkVersion(genome.VersionedRecord); err != nil {
		return err
	}

	s.policies[genome.ID] = genotype.Clone(genome)
	return nil
}

func (s *MemoryStore) GetPolicy(_ context.Context, id string) (model.Genome, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.Genome{}, false, errNotInitialized
	}

	genome, ok := s.policies[id]
	if !ok {
		return model.Genome{}, false, nil
	}
	return genotype.Clone(genome), true, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}

	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, false, errNotInitialized
	}

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) SaveEvaluationSummary(_ context.Context, summary model.EvaluationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return err
	}

	s.summaries[summary.RunID] = summary
	return nil
}

func (s *MemoryStore) GetEvaluationSummary(_ context.Context, runID string) (model.EvaluationSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.EvaluationSummary{}, false, errNotInitialized
	}

	summary, ok := s.summaries[runID]
	return summary, ok, nil
}
