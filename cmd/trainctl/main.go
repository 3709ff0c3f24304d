// trainctl submits training runs and cost estimates to the worker
// queue.
//
//	trainctl -run run.json
//	trainctl -estimate data/train.jsonl -steps 100 -batch 8
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/config"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/queue"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/trainer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		runPath  = flag.String("run", "", "path to a run config JSON file to submit")
		estimate = flag.String("estimate", "", "dataset path to project costs for")
		steps    = flag.Int("steps", 100, "step count for the estimate")
		batch    = flag.Int("batch", 0, "batch size for the estimate (0 uses the worker default)")
	)
	flag.Parse()

	if (*runPath == "") == (*estimate == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -run or -estimate is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	client := queue.NewClient(cfg.Redis)
	defer client.Close()

	if *runPath != "" {
		if err := submitRun(client, *runPath); err != nil {
			slog.Error("submit run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	err = client.EnqueueCostEstimate(queue.CostEstimatePayload{
		DatasetPath: *estimate,
		Steps:       *steps,
		BatchSize:   *batch,
	})
	if err != nil {
		slog.Error("submit estimate failed", "error", err)
		os.Exit(1)
	}
	slog.Info("estimate submitted", "dataset", *estimate, "steps", *steps)
}

func submitRun(client *queue.Client, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read run config: %w", err)
	}

	var runCfg trainer.Config
	if err := json.Unmarshal(data, &runCfg); err != nil {
		return fmt.Errorf("parse run config: %w", err)
	}

	if err := client.EnqueueTrainingRun(queue.TrainingRunPayload{Config: runCfg}); err != nil {
		return err
	}
	slog.Info("training run submitted",
		"dataset", runCfg.DatasetPath,
		"teacher", string(runCfg.Teacher.Kind)+":"+runCfg.Teacher.ProviderID+"/"+runCfg.Teacher.ModelID,
		"lambda", runCfg.Lambda,
		"max_steps", runCfg.MaxSteps,
	)
	return nil
}
