package teacher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/cost"
)

// CloudOptions bounds the retry and latency behavior of a cloud teacher.
type CloudOptions struct {
	MaxRetries int           // retries after the first attempt; 0 disables retry
	Timeout    time.Duration // per-attempt timeout; 0 disables
	Backoff    Backoff
}

// Cloud queries an API-hosted teacher through an externally supplied
// wire client. Transient failures are retried with bounded backoff;
// permanent failures are returned immediately.
type Cloud struct {
	providerID string
	modelID    string
	client     Client
	opts       CloudOptions
}

// NewCloud builds a cloud teacher. The pricing table must carry an entry
// for (providerID, modelID); a missing entry fails here, at construction
// time, not mid-run.
func NewCloud(providerID, modelID string, table cost.Table, client Client, opts CloudOptions) (*Cloud, error) {
	if client == nil {
		return nil, fmt.Errorf("cloud teacher %s/%s: nil client", providerID, modelID)
	}
	if _, err := table.Lookup(providerID, modelID); err != nil {
		return nil, fmt.Errorf("cloud teacher: %w", err)
	}
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff
	}
	return &Cloud{
		providerID: providerID,
		modelID:    modelID,
		client:     client,
		opts:       opts,
	}, nil
}

func (c *Cloud) Name() string { return c.providerID + "/" + c.modelID }

func (c *Cloud) Query(ctx context.Context, prompt string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.opts.Backoff.Delay(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			slog.Debug("retrying teacher query",
				"provider", c.providerID,
				"model", c.modelID,
				"attempt", attempt,
			)
		}

		start := time.Now()
		comp, err := c.complete(ctx, prompt)
		if err == nil {
			return &Response{
				TokensIn:  comp.TokensIn,
				TokensOut: comp.TokensOut,
				Payload:   comp.Text,
				LatencyMs: time.Since(start).Milliseconds(),
			}, nil
		}
		if IsPermanent(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, &TransientError{Attempts: c.opts.MaxRetries + 1, Err: lastErr}
}

func (c *Cloud) complete(ctx context.Context, prompt string) (*Completion, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	comp, err := c.client.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("teacher query timed out after %s: %w", c.opts.Timeout, err)
		}
		return nil, err
	}
	return comp, nil
}
