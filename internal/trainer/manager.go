package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/cost"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/dataset"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/progress"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/student"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/teacher"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/pkg/tokenizer"
)

// ProviderFactory builds the teacher provider for a validated run
// configuration.
type ProviderFactory func(tc TeacherConfig, table cost.Table) (teacher.Provider, error)

// StudentFactory builds the student collaborator from the opaque
// student config blob.
type StudentFactory func(raw json.RawMessage) (student.Model, error)

// responseTokenAllowance is the flat per-query output budget assumed by
// dataset-derived cost projections.
const responseTokenAllowance = 256

// Manager is the control surface over training runs, consumed by an
// external transport layer. Runs are fully independent; the manager only
// registers them and forwards control operations.
type Manager struct {
	table     cost.Table
	providers ProviderFactory
	students  StudentFactory
	sink      progress.Sink

	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
}

func NewManager(table cost.Table, providers ProviderFactory, students StudentFactory, sink progress.Sink) *Manager {
	if sink == nil {
		sink = progress.Discard{}
	}
	return &Manager{
		table:     table,
		providers: providers,
		students:  students,
		sink:      sink,
		runs:      make(map[uuid.UUID]*Run),
	}
}

// Start validates the configuration, loads and splits the dataset,
// builds the collaborators, and launches the run's worker goroutine.
// Invalid configuration fails synchronously with ConfigError before any
// state transition.
func (m *Manager) Start(ctx context.Context, cfg Config) (uuid.UUID, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(m.table); err != nil {
		return uuid.Nil, err
	}

	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return uuid.Nil, err
	}

	split, err := dataset.SplitDataset(ds, cfg.SplitRatio, cfg.Seed)
	if err != nil {
		return uuid.Nil, &ConfigError{Field: "split_ratio", Reason: err.Error()}
	}
	if split.Train.Len() == 0 {
		return uuid.Nil, &ConfigError{Field: "split_ratio", Reason: "train split is empty"}
	}

	provider, err := m.providers(cfg.Teacher, m.table)
	if err != nil {
		return uuid.Nil, &ConfigError{Field: "teacher", Reason: "provider construction failed", Err: err}
	}

	model, err := m.students(cfg.Student)
	if err != nil {
		return uuid.Nil, &ConfigError{Field: "student", Reason: "student construction failed", Err: err}
	}

	// Local teachers accrue tokens at zero cost even when the table has
	// no entry for the local model.
	table := m.table
	if cfg.Teacher.Kind == TeacherLocal {
		table = table.WithFreeEntry(cfg.Teacher.ProviderID, cfg.Teacher.ModelID)
	}

	run := newRun(uuid.New(), cfg, split, provider, model, cost.NewLedger(table), m.sink)

	m.mu.Lock()
	m.runs[run.ID()] = run
	m.mu.Unlock()

	run.start(ctx)
	return run.ID(), nil
}

// Get returns the run registered under id.
func (m *Manager) Get(id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("unknown run %s", id)
	}
	return run, nil
}

// Stop requests a cooperative stop of the run.
func (m *Manager) Stop(id uuid.UUID) error {
	run, err := m.Get(id)
	if err != nil {
		return err
	}
	run.Stop()
	return nil
}

// Status returns an immutable snapshot of the run.
func (m *Manager) Status(id uuid.UUID) (Status, error) {
	run, err := m.Get(id)
	if err != nil {
		return Status{}, err
	}
	return run.Status(), nil
}

// Metrics returns the per-step metrics recorded so far.
func (m *Manager) Metrics(id uuid.UUID) ([]MetricsRecord, error) {
	run, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return run.Metrics(), nil
}

// EstimateCost projects the cost of a scenario against the manager's
// pricing table.
func (m *Manager) EstimateCost(s cost.Scenario) cost.Breakdown {
	return cost.Estimate(s, m.table)
}

// EstimateDataset derives a scenario from an actual dataset file. Each
// step issues one teacher query per batch record; the per-query token
// volume is the mean prompt size plus a flat response allowance.
func (m *Manager) EstimateDataset(path string, steps, batchSize int) (cost.Breakdown, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return cost.Breakdown{}, err
	}
	if batchSize <= 0 {
		batchSize = 4
	}

	promptTokens := 0
	for _, rec := range ds.Records() {
		for _, msg := range rec.Messages {
			promptTokens += tokenizer.CountTokens(msg.Content)
		}
	}
	avgPrompt := promptTokens / ds.Len()

	return cost.Estimate(cost.Scenario{
		Name:             path,
		Prompts:          batchSize,
		Steps:            steps,
		AvgTokensPerStep: avgPrompt + responseTokenAllowance,
	}, m.table), nil
}
