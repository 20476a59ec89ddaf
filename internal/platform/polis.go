// Package platform hosts training and evaluation runs against a shared store.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"gazepomdp/internal/storage"
)

var (
	ErrNotStarted   = errors.New("polis not started")
	ErrRunNotFound  = errors.New("run not found")
	ErrRunDuplicate = errors.New("run already active")
)

type Config struct {
	Store  storage.Store
	Logger *zap.Logger
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// Polis owns the store lifecycle and the cancel handles of active runs.
type Polis struct {
	store  storage.Store
	logger *zap.Logger

	mu             sync.RWMutex
	started        bool
	lastStopReason StopReason
	runs           map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Polis{
		store:          cfg.Store,
		logger:         logger.Named("polis"),
		runs:           make(map[string]context.CancelFunc),
		lastStopReason: StopReasonNormal,
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	p.logger.Debug("polis started")
	return nil
}

func (p *Polis) Store() storage.Store {
	return p.store
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) LastStopReason() StopReason {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastStopReason
}

// Stop cancels every active run and marks the polis stopped.
func (p *Polis) Stop() {
	_ = p.StopWithReason(StopReasonNormal)
}

func (p *Polis) StopWithReason(reason StopReason) error {
	if reason != StopReasonNormal && reason != StopReasonShutdown {
		return fmt.Errorf("unsupported stop reason: %s", reason)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for runID, cancel := range p.runs {
		cancel()
		delete(p.runs, runID)
	}
	p.started = false
	p.lastStopReason = reason
	p.logger.Debug("polis stopped", zap.String("reason", string(reason)))
	return nil
}

// StopRun cancels the active run runID.
func (p *Polis) StopRun(runID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	cancel()
	delete(p.runs, runID)
	return nil
}

// ActiveRuns lists the IDs of runs in progress, sorted.
func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// beginRun registers runID and returns a context cancelled by StopRun or Stop.
// The returned release func must be called when the run ends.
func (p *Polis) beginRun(ctx context.Context, runID string) (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil, nil, ErrNotStarted
	}
	if _, exists := p.runs[runID]; exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunDuplicate, runID)
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.runs[runID] = cancel
	release := func() {
		cancel()
		p.mu.Lock()
		delete(p.runs, runID)
		p.mu.Unlock()
	}
	return runCtx, release, nil
}
