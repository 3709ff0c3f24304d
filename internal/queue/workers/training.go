package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/queue"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/runstore"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/trainer"
)

// TrainingWorker executes one training run per task. The task context
// only requests a cooperative stop; the run itself finishes its current
// step before going down, so a worker shutdown never truncates metrics
// mid-step.
type TrainingWorker struct {
	manager      *trainer.Manager
	store        *runstore.Store // nil disables archiving
	defaultBatch int
}

func NewTrainingWorker(manager *trainer.Manager, store *runstore.Store, defaultBatch int) *TrainingWorker {
	return &TrainingWorker{manager: manager, store: store, defaultBatch: defaultBatch}
}

func (w *TrainingWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.TrainingRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.Config.BatchSize == 0 {
		payload.Config.BatchSize = w.defaultBatch
	}

	// The run is driven by its own stop flag, not by context
	// cancellation, so task shutdown cannot abort a step halfway.
	id, err := w.manager.Start(context.WithoutCancel(ctx), payload.Config)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	run, err := w.manager.Get(id)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	select {
	case <-run.Done():
	case <-ctx.Done():
		slog.Info("task context done, stopping run", "run_id", id)
		run.Stop()
		<-run.Done()
	}

	status := run.Status()
	w.archive(payload.Config, run)

	if status.State == trainer.StateFailed {
		return fmt.Errorf("run %s failed at step %d: %w", id, status.CurrentStep, status.Err)
	}

	slog.Info("training run archived",
		"run_id", id,
		"state", status.State,
		"steps", status.CurrentStep,
		"total_usd", status.CumulativeUSD,
	)
	return nil
}

func (w *TrainingWorker) archive(cfg trainer.Config, run *trainer.Run) {
	if w.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary := runstore.Summarize(cfg, run.Status())
	if err := w.store.SaveRun(ctx, summary, run.Metrics()); err != nil {
		slog.Error("archive run failed", "run_id", summary.ID, "error", err)
	}
}

// EstimateWorker answers dataset cost projections.
type EstimateWorker struct {
	manager *trainer.Manager
}

func NewEstimateWorker(manager *trainer.Manager) *EstimateWorker {
	return &EstimateWorker{manager: manager}
}

func (w *EstimateWorker) ProcessTask(_ context.Context, t *asynq.Task) error {
	var payload queue.CostEstimatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	breakdown, err := w.manager.EstimateDataset(payload.DatasetPath, payload.Steps, payload.BatchSize)
	if err != nil {
		return fmt.Errorf("estimate %s: %w", payload.DatasetPath, err)
	}

	for _, pm := range breakdown.PerModel {
		slog.Info("cost projection",
			"dataset", payload.DatasetPath,
			"steps", payload.Steps,
			"model", pm.ProviderID+"/"+pm.ModelID,
			"total_tokens", breakdown.TotalTokens,
			"usd", pm.USD,
		)
	}
	return nil
}
