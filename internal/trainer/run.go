package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/cost"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/dataset"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/progress"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/student"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/teacher"
)

// Run executes one training run. All mutable run state is owned by the
// single loop goroutine; the control surface only sets the stop flag or
// reads snapshots, so runs never need external locking beyond the
// snapshot mutex.
type Run struct {
	id       uuid.UUID
	cfg      Config
	split    dataset.Split
	provider teacher.Provider
	student  student.Model
	ledger   *cost.Ledger
	sink     progress.Sink

	mu         sync.Mutex
	state      State
	step       int
	lastLoss   float64
	costs      cost.Snapshot
	metrics    []MetricsRecord
	runErr     error
	startedAt  time.Time
	finishedAt time.Time

	stop atomic.Bool
	done chan struct{}
}

func newRun(id uuid.UUID, cfg Config, split dataset.Split, provider teacher.Provider, model student.Model, ledger *cost.Ledger, sink progress.Sink) *Run {
	return &Run{
		id:       id,
		cfg:      cfg,
		split:    split,
		provider: provider,
		student:  model,
		ledger:   ledger,
		sink:     sink,
		state:    StateIdle,
		done:     make(chan struct{}),
	}
}

func (r *Run) ID() uuid.UUID { return r.id }

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// Stop requests a cooperative stop. The flag is examined only at step
// boundaries; the current step always completes, so the metrics and
// cost ledger never observe a partial step.
func (r *Run) Stop() {
	r.mu.Lock()
	if r.state == StateRunning {
		r.state = StateStopping
	}
	r.mu.Unlock()
	r.stop.Store(true)
}

// Status returns an immutable snapshot of the run.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		RunID:         r.id,
		State:         r.state,
		CurrentStep:   r.step,
		LastLoss:      r.lastLoss,
		TokensIn:      r.costs.TokensIn,
		TokensOut:     r.costs.TokensOut,
		CumulativeUSD: cost.RoundUSD(r.costs.TotalUSD),
		Err:           r.runErr,
		StartedAt:     r.startedAt,
		FinishedAt:    r.finishedAt,
	}
}

// Metrics returns a copy of the metrics recorded so far, one entry per
// completed step.
func (r *Run) Metrics() []MetricsRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MetricsRecord, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Costs returns the last published ledger snapshot.
func (r *Run) Costs() cost.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.costs
}

func (r *Run) start(ctx context.Context) {
	r.mu.Lock()
	r.state = StateRunning
	r.startedAt = time.Now()
	r.mu.Unlock()

	go r.loop(ctx)
}

func (r *Run) loop(ctx context.Context) {
	defer close(r.done)

	slog.Info("training run started",
		"run_id", r.id,
		"teacher", r.provider.Name(),
		"lambda", r.cfg.Lambda,
		"max_steps", r.cfg.MaxSteps,
		"train_records", r.split.Train.Len(),
		"test_records", r.split.Test.Len(),
	)

	s := newSampler(r.split.Train.Len(), r.cfg.BatchSize, r.cfg.Seed)

	for step := 1; step <= r.cfg.MaxSteps; step++ {
		batch := make([]dataset.Record, 0, r.cfg.BatchSize)
		for _, i := range s.next() {
			batch = append(batch, r.split.Train.Record(i))
		}

		responses, err := r.queryTeacher(ctx, batch)
		if err != nil {
			r.fail(step, err)
			return
		}

		loss, err := r.student.TrainStep(ctx, batch, responses, r.cfg.Lambda)
		if err != nil {
			r.fail(step, fmt.Errorf("student train step: %w", err))
			return
		}

		tokens := 0
		for _, resp := range responses {
			tokens += resp.TokensIn + resp.TokensOut
			if err := r.ledger.Record(r.cfg.Teacher.ProviderID, r.cfg.Teacher.ModelID, resp.TokensIn, resp.TokensOut); err != nil {
				r.fail(step, fmt.Errorf("record cost: %w", err))
				return
			}
		}

		snap := r.ledger.Snapshot()
		rec := MetricsRecord{
			Step:          step,
			Loss:          loss,
			TokensUsed:    tokens,
			CumulativeUSD: cost.RoundUSD(snap.TotalUSD),
			TimestampMs:   time.Now().UnixMilli(),
		}
		state := r.completeStep(rec, snap)

		r.sink.Emit(progress.Event{
			RunID:         r.id.String(),
			Step:          step,
			Loss:          loss,
			TokensUsed:    tokens,
			CumulativeUSD: rec.CumulativeUSD,
			State:         string(state),
		})

		if r.stop.Load() {
			r.finish(StateStopped)
			slog.Info("training run stopped", "run_id", r.id, "steps", step)
			return
		}
	}

	r.finish(StateStopped)
	slog.Info("training run completed", "run_id", r.id, "steps", r.cfg.MaxSteps)
}

// queryTeacher fans the batch out to the teacher with bounded
// parallelism, then rejoins responses into original batch order so the
// blended loss stays reproducible.
func (r *Run) queryTeacher(ctx context.Context, batch []dataset.Record) ([]*teacher.Response, error) {
	responses := make([]*teacher.Response, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Teacher.ConcurrencyLimit)
	for i, rec := range batch {
		g.Go(func() error {
			resp, err := r.provider.Query(gctx, renderPrompt(rec))
			if err != nil {
				return fmt.Errorf("record %s: %w", rec.ID, err)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *Run) completeStep(rec MetricsRecord, snap cost.Snapshot) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = rec.Step
	r.lastLoss = rec.Loss
	r.costs = snap
	r.metrics = append(r.metrics, rec)
	return r.state
}

func (r *Run) finish(s State) {
	r.mu.Lock()
	r.state = s
	r.finishedAt = time.Now()
	r.mu.Unlock()
}

func (r *Run) fail(step int, err error) {
	r.mu.Lock()
	r.state = StateFailed
	r.runErr = err
	r.finishedAt = time.Now()
	r.mu.Unlock()
	slog.Error("training run failed", "run_id", r.id, "step", step, "error", err)
}

// renderPrompt flattens a chat record into the prompt handed to the
// teacher.
func renderPrompt(rec dataset.Record) string {
	var b strings.Builder
	for i, m := range rec.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
