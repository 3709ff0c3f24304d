package progress

import "log/slog"

// Event is pushed once per completed training step.
type Event struct {
	RunID         string  `json:"run_id"`
	Step          int     `json:"step"`
	Loss          float64 `json:"loss"`
	TokensUsed    int     `json:"tokens_used"`
	CumulativeUSD float64 `json:"cumulative_usd"`
	State         string  `json:"state"`
}

// Sink receives progress events. Implementations must not block the
// training loop.
type Sink interface {
	Emit(e Event)
}

// LogSink writes progress events to the structured log.
type LogSink struct{}

func (LogSink) Emit(e Event) {
	slog.Info("training progress",
		"run_id", e.RunID,
		"step", e.Step,
		"loss", e.Loss,
		"tokens_used", e.TokensUsed,
		"cumulative_usd", e.CumulativeUSD,
		"state", e.State,
	)
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Discard drops all events. Useful when no observer is attached.
type Discard struct{}

func (Discard) Emit(Event) {}
