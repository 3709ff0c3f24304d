// Package runstore archives finished training runs to Postgres so that
// run history and per-step metrics survive worker restarts.
package runstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/database"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/trainer"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrNotFound is returned when the requested run was never archived.
var ErrNotFound = errors.New("run not found")

// Migrate applies the runstore schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	return database.RunMigrations(ctx, pool, sub)
}

// RunSummary is the archived view of one run.
type RunSummary struct {
	ID              uuid.UUID
	State           trainer.State
	TeacherKind     trainer.TeacherKind
	TeacherProvider string
	TeacherModel    string
	DatasetPath     string
	Lambda          float64
	MaxSteps        int
	CompletedSteps  int
	LastLoss        float64
	TokensIn        int64
	TokensOut       int64
	TotalUSD        float64
	Error           string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Summarize flattens a run's configuration and terminal status into an
// archivable summary.
func Summarize(cfg trainer.Config, st trainer.Status) RunSummary {
	errText := ""
	if st.Err != nil {
		errText = st.Err.Error()
	}
	return RunSummary{
		ID:              st.RunID,
		State:           st.State,
		TeacherKind:     cfg.Teacher.Kind,
		TeacherProvider: cfg.Teacher.ProviderID,
		TeacherModel:    cfg.Teacher.ModelID,
		DatasetPath:     cfg.DatasetPath,
		Lambda:          cfg.Lambda,
		MaxSteps:        cfg.MaxSteps,
		CompletedSteps:  st.CurrentStep,
		LastLoss:        st.LastLoss,
		TokensIn:        int64(st.TokensIn),
		TokensOut:       int64(st.TokensOut),
		TotalUSD:        st.CumulativeUSD,
		Error:           errText,
		StartedAt:       st.StartedAt,
		FinishedAt:      st.FinishedAt,
	}
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// SaveRun writes the summary and its metrics in one transaction.
// Re-archiving the same run replaces the previous rows.
func (s *Store) SaveRun(ctx context.Context, summary RunSummary, metrics []trainer.MetricsRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var errText *string
	if summary.Error != "" {
		errText = &summary.Error
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO training_runs (id, state, teacher_kind, teacher_provider, teacher_model, dataset_path,
		                            lambda, max_steps, completed_steps, last_loss, tokens_in, tokens_out,
		                            total_usd, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		     state = EXCLUDED.state,
		     completed_steps = EXCLUDED.completed_steps,
		     last_loss = EXCLUDED.last_loss,
		     tokens_in = EXCLUDED.tokens_in,
		     tokens_out = EXCLUDED.tokens_out,
		     total_usd = EXCLUDED.total_usd,
		     error = EXCLUDED.error,
		     finished_at = EXCLUDED.finished_at,
		     archived_at = now()`,
		summary.ID, summary.State, summary.TeacherKind, summary.TeacherProvider, summary.TeacherModel,
		summary.DatasetPath, summary.Lambda, summary.MaxSteps, summary.CompletedSteps, summary.LastLoss,
		summary.TokensIn, summary.TokensOut, summary.TotalUSD, errText, summary.StartedAt, summary.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.ID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM training_run_metrics WHERE run_id = $1", summary.ID); err != nil {
		return fmt.Errorf("clear metrics for %s: %w", summary.ID, err)
	}

	for _, m := range metrics {
		_, err := tx.Exec(ctx,
			`INSERT INTO training_run_metrics (run_id, step, loss, tokens_used, cumulative_usd, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			summary.ID, m.Step, m.Loss, m.TokensUsed, m.CumulativeUSD, time.UnixMilli(m.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("insert metric step %d for %s: %w", m.Step, summary.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", summary.ID, err)
	}
	return nil
}

// GetRun loads one archived run.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (RunSummary, error) {
	var (
		summary RunSummary
		errText *string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, state, teacher_kind, teacher_provider, teacher_model, dataset_path,
		        lambda, max_steps, completed_steps, last_loss, tokens_in, tokens_out,
		        total_usd, error, started_at, finished_at
		 FROM training_runs WHERE id = $1`, id,
	).Scan(
		&summary.ID, &summary.State, &summary.TeacherKind, &summary.TeacherProvider, &summary.TeacherModel,
		&summary.DatasetPath, &summary.Lambda, &summary.MaxSteps, &summary.CompletedSteps, &summary.LastLoss,
		&summary.TokensIn, &summary.TokensOut, &summary.TotalUSD, &errText, &summary.StartedAt, &summary.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("get run %s: %w", id, err)
	}
	if errText != nil {
		summary.Error = *errText
	}
	return summary, nil
}

// ListRuns returns archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, state, teacher_kind, teacher_provider, teacher_model, dataset_path,
		        lambda, max_steps, completed_steps, last_loss, tokens_in, tokens_out,
		        total_usd, error, started_at, finished_at
		 FROM training_runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			summary RunSummary
			errText *string
		)
		err := rows.Scan(
			&summary.ID, &summary.State, &summary.TeacherKind, &summary.TeacherProvider, &summary.TeacherModel,
			&summary.DatasetPath, &summary.Lambda, &summary.MaxSteps, &summary.CompletedSteps, &summary.LastLoss,
			&summary.TokensIn, &summary.TokensOut, &summary.TotalUSD, &errText, &summary.StartedAt, &summary.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if errText != nil {
			summary.Error = *errText
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Metrics loads the per-step metrics of an archived run in step order.
func (s *Store) Metrics(ctx context.Context, id uuid.UUID) ([]trainer.MetricsRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT step, loss, tokens_used, cumulative_usd, recorded_at
		 FROM training_run_metrics WHERE run_id = $1 ORDER BY step`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query metrics for %s: %w", id, err)
	}
	defer rows.Close()

	var out []trainer.MetricsRecord
	for rows.Next() {
		var (
			m  trainer.MetricsRecord
			at time.Time
		)
		if err := rows.Scan(&m.Step, &m.Loss, &m.TokensUsed, &m.CumulativeUSD, &at); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m.TimestampMs = at.UnixMilli()
		out = append(out, m)
	}
	return out, rows.Err()
}
