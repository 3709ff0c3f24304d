package runstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/runstore"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/trainer"
)

func TestSummarize(t *testing.T) {
	id := uuid.New()
	started := time.Now().Add(-time.Minute)
	finished := time.Now()

	cfg := trainer.Config{
		Teacher: trainer.TeacherConfig{
			Kind:       trainer.TeacherCloud,
			ProviderID: "openai",
			ModelID:    "gpt-4o-mini",
		},
		Lambda:      0.3,
		MaxSteps:    100,
		DatasetPath: "data/train.jsonl",
	}
	st := trainer.Status{
		RunID:         id,
		State:         trainer.StateFailed,
		CurrentStep:   42,
		LastLoss:      1.7,
		TokensIn:      1000,
		TokensOut:     2000,
		CumulativeUSD: 0.0013,
		Err:           errors.New("rate limited"),
		StartedAt:     started,
		FinishedAt:    finished,
	}

	s := runstore.Summarize(cfg, st)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, trainer.StateFailed, s.State)
	assert.Equal(t, "openai", s.TeacherProvider)
	assert.Equal(t, "gpt-4o-mini", s.TeacherModel)
	assert.Equal(t, 42, s.CompletedSteps)
	assert.Equal(t, int64(3000), s.TokensIn+s.TokensOut)
	assert.Equal(t, "rate limited", s.Error)
	assert.Equal(t, started, s.StartedAt)
}

func TestSummarizeCleanRunHasNoError(t *testing.T) {
	s := runstore.Summarize(trainer.Config{}, trainer.Status{State: trainer.StateStopped})
	assert.Empty(t, s.Error)
}
