package runs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain/entities"
)

// ErrBusy is returned when a run is requested while another one is active
var ErrBusy = errors.New("an evaluation run is already in progress")

// Executor carries out one run
type Executor interface {
	Execute(ctx context.Context, run *entities.Run) error
}

// Observer is told about run lifecycle changes. It must not block.
type Observer interface {
	RunStarted(run entities.Run)
	RunFinished(run entities.Run)
}

// Status is a snapshot of a run. While Active, Run reflects the state at start.
type Status struct {
	Run    entities.Run `json:"run"`
	Active bool         `json:"active"`
}

// Manager serializes evaluation runs and keeps their final state in memory
type Manager struct {
	logger    *zap.Logger
	executor  Executor
	timeout   time.Duration
	observers []Observer
	instances map[string]*Status
	active    string
	wg        sync.WaitGroup
	mu        sync.RWMutex
}

// NewManager creates a new run manager. Every run is bounded by timeout.
func NewManager(executor Executor, timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger,
		executor:  executor,
		timeout:   timeout,
		instances: make(map[string]*Status),
	}
}

// Observe registers an observer. Call before starting runs.
func (m *Manager) Observe(o Observer) {
	m.observers = append(m.observers, o)
}

// Run executes a run for date and waits for it to finish
func (m *Manager) Run(ctx context.Context, date time.Time) (*entities.Run, error) {
	run, err := m.reserve(date)
	if err != nil {
		return nil, err
	}
	m.wg.Add(1)
	err = m.execute(ctx, run)
	return run, err
}

// Start launches a run for date in the background and returns its initial snapshot
func (m *Manager) Start(ctx context.Context, date time.Time) (entities.Run, error) {
	run, err := m.reserve(date)
	if err != nil {
		return entities.Run{}, err
	}
	snapshot := *run

	m.wg.Add(1)
	go m.execute(context.WithoutCancel(ctx), run)
	return snapshot, nil
}

// Get returns a run snapshot by ID
func (m *Manager) Get(id string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, exists := m.instances[id]
	if !exists {
		return Status{}, false
	}
	return *status, true
}

// List returns every known run, most recent first
func (m *Manager) List() []Status {
	m.mu.RLock()
	out := make([]Status, 0, len(m.instances))
	for _, s := range m.instances {
		out = append(out, *s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Run.StartedAt.After(out[j].Run.StartedAt) })
	return out
}

// Wait blocks until every started run has finished
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) reserve(date time.Time) (*entities.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return nil, ErrBusy
	}
	run := entities.NewRun(uuid.NewString(), date)
	m.active = run.ID
	m.instances[run.ID] = &Status{Run: *run, Active: true}

	m.logger.Info("Run reserved", zap.String("run_id", run.ID), zap.String("date", run.Date.Format(entities.DateLayout)))
	for _, o := range m.observers {
		o.RunStarted(*run)
	}
	return run, nil
}

func (m *Manager) execute(ctx context.Context, run *entities.Run) error {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.executor.Execute(ctx, run)
	if err != nil {
		m.logger.Error("Run failed", zap.String("run_id", run.ID), zap.Error(err))
	} else {
		m.logger.Info("Run completed", zap.String("run_id", run.ID), zap.String("state", string(run.State)))
	}

	final := *run
	m.mu.Lock()
	m.instances[run.ID] = &Status{Run: final}
	m.active = ""
	m.mu.Unlock()

	for _, o := range m.observers {
		o.RunFinished(final)
	}
	return err
}
