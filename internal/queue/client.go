package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueTrainingRun submits a run. Runs are never retried by the
// queue: a failed run keeps its terminal state and error, and a fresh
// submission is an operator decision.
func (c *Client) EnqueueTrainingRun(payload TrainingRunPayload) error {
	return c.enqueue(TypeTrainingRun, payload, asynq.MaxRetry(0), asynq.Timeout(24*time.Hour))
}

func (c *Client) EnqueueCostEstimate(payload CostEstimatePayload) error {
	return c.enqueue(TypeCostEstimate, payload, asynq.MaxRetry(2), asynq.Timeout(time.Minute))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
