package trainer

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a run. It is owned exclusively by
// the run's worker goroutine; everyone else sees immutable snapshots.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// Terminal reports whether the run has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// Status is an immutable snapshot of a run.
type Status struct {
	RunID         uuid.UUID `json:"run_id"`
	State         State     `json:"state"`
	CurrentStep   int       `json:"current_step"`
	LastLoss      float64   `json:"last_loss"`
	TokensIn      int       `json:"tokens_in"`
	TokensOut     int       `json:"tokens_out"`
	CumulativeUSD float64   `json:"cumulative_usd"`
	Err           error     `json:"-"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at,omitzero"`
}

// MetricsRecord is one entry of the append-only per-run metrics
// sequence: exactly one per completed step, never a partial entry.
type MetricsRecord struct {
	Step          int     `json:"step"`
	Loss          float64 `json:"loss"`
	TokensUsed    int     `json:"tokens_used"`
	CumulativeUSD float64 `json:"cumulative_usd"`
	TimestampMs   int64   `json:"timestamp_ms"`
}
