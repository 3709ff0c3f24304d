package student

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/dataset"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/teacher"
)

// Model is the opaque collaborator that owns the gradient update. Given
// a batch, the teacher signal for each record (in batch order), and the
// blending coefficient lambda, TrainStep performs one update and returns
// the blended scalar loss:
//
//	lambda*distillationLoss + (1-lambda)*studentIntrinsicLoss
//
// The exact loss formula and weight mechanics are the model's
// responsibility; the orchestrator only supplies lambda and the signal.
type Model interface {
	TrainStep(ctx context.Context, batch []dataset.Record, responses []*teacher.Response, lambda float64) (float64, error)
}

// Simulated is a stand-in student with a deterministic geometric loss
// decay. It lets the full orchestration path run without any ML runtime
// attached.
type Simulated struct {
	loss  float64
	decay float64
}

type simulatedConfig struct {
	InitialLoss float64 `json:"initial_loss,omitempty"`
	Decay       float64 `json:"decay,omitempty"`
}

func NewSimulated() *Simulated {
	return &Simulated{loss: 5.0, decay: 0.94}
}

// NewSimulatedFromConfig builds a simulated student from the opaque
// student config blob of a run. Unknown or absent fields fall back to
// the defaults.
func NewSimulatedFromConfig(raw json.RawMessage) (*Simulated, error) {
	s := NewSimulated()
	if len(raw) == 0 {
		return s, nil
	}

	var cfg simulatedConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse student config: %w", err)
	}
	if cfg.InitialLoss > 0 {
		s.loss = cfg.InitialLoss
	}
	if cfg.Decay > 0 && cfg.Decay < 1 {
		s.decay = cfg.Decay
	}
	return s, nil
}

func (s *Simulated) TrainStep(_ context.Context, batch []dataset.Record, responses []*teacher.Response, lambda float64) (float64, error) {
	if len(batch) != len(responses) {
		return 0, fmt.Errorf("batch size %d does not match %d teacher responses", len(batch), len(responses))
	}
	_ = lambda // the simulated blend ignores the coefficient
	s.loss *= s.decay
	return s.loss, nil
}
