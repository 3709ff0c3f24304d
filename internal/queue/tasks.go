package queue

import "github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/trainer"

const (
	TypeTrainingRun  = "training:run"
	TypeCostEstimate = "training:estimate"
)

// TrainingRunPayload carries the full run configuration to the worker.
type TrainingRunPayload struct {
	Config trainer.Config `json:"config"`
}

// CostEstimatePayload asks the worker for a dataset-derived cost
// projection without starting a run.
type CostEstimatePayload struct {
	DatasetPath string `json:"dataset_path"`
	Steps       int    `json:"steps"`
	BatchSize   int    `json:"batch_size,omitempty"`
}
