package trainer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/cost"
)

type TeacherKind string

const (
	TeacherCloud TeacherKind = "cloud"
	TeacherLocal TeacherKind = "local"
)

// TeacherConfig selects and bounds the teacher for one run.
type TeacherConfig struct {
	Kind             TeacherKind `json:"kind"`
	ProviderID       string      `json:"provider_id"`
	ModelID          string      `json:"model_id"`
	ConcurrencyLimit int         `json:"concurrency_limit,omitempty"`
	MaxRetries       int         `json:"max_retries,omitempty"`
	TimeoutMs        int         `json:"timeout_ms,omitempty"`
}

func (tc TeacherConfig) Timeout() time.Duration {
	return time.Duration(tc.TimeoutMs) * time.Millisecond
}

// Config is the full run configuration supplied by the caller.
type Config struct {
	Teacher     TeacherConfig   `json:"teacher"`
	Student     json.RawMessage `json:"student,omitempty"` // opaque, passed through to the student collaborator
	Lambda      float64         `json:"lambda"`
	MaxSteps    int             `json:"max_steps"`
	BatchSize   int             `json:"batch_size,omitempty"`
	DatasetPath string          `json:"dataset_path"`
	SplitRatio  float64         `json:"split_ratio"`
	Seed        int64           `json:"seed"`
}

// ConfigError reports an invalid run configuration. It is raised by
// Start before any state transition.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid run config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// withDefaults fills the optional knobs.
func (c Config) withDefaults() Config {
	if c.BatchSize == 0 {
		c.BatchSize = 4
	}
	if c.Teacher.ConcurrencyLimit == 0 {
		c.Teacher.ConcurrencyLimit = 4
	}
	if c.Teacher.Kind == TeacherCloud && c.Teacher.TimeoutMs == 0 {
		c.Teacher.TimeoutMs = 30_000
	}
	if c.Teacher.Kind == TeacherCloud && c.Teacher.MaxRetries == 0 {
		c.Teacher.MaxRetries = 3
	}
	return c
}

// Validate checks the configuration against the pricing table. Lambda 0
// and 1 are valid boundary blends.
func (c Config) Validate(table cost.Table) error {
	if c.Lambda < 0 || c.Lambda > 1 {
		return &ConfigError{Field: "lambda", Reason: fmt.Sprintf("%v outside [0, 1]", c.Lambda)}
	}
	if c.MaxSteps <= 0 {
		return &ConfigError{Field: "max_steps", Reason: fmt.Sprintf("%d, must be positive", c.MaxSteps)}
	}
	if c.BatchSize < 0 {
		return &ConfigError{Field: "batch_size", Reason: fmt.Sprintf("%d, must not be negative", c.BatchSize)}
	}
	if c.SplitRatio <= 0 || c.SplitRatio >= 1 {
		return &ConfigError{Field: "split_ratio", Reason: fmt.Sprintf("%v outside (0, 1)", c.SplitRatio)}
	}
	if c.DatasetPath == "" {
		return &ConfigError{Field: "dataset_path", Reason: "required"}
	}

	tc := c.Teacher
	if tc.Kind != TeacherCloud && tc.Kind != TeacherLocal {
		return &ConfigError{Field: "teacher.kind", Reason: fmt.Sprintf("%q, want cloud or local", tc.Kind)}
	}
	if tc.ProviderID == "" {
		return &ConfigError{Field: "teacher.provider_id", Reason: "required"}
	}
	if tc.ModelID == "" {
		return &ConfigError{Field: "teacher.model_id", Reason: "required"}
	}
	if tc.ConcurrencyLimit < 0 {
		return &ConfigError{Field: "teacher.concurrency_limit", Reason: fmt.Sprintf("%d, must not be negative", tc.ConcurrencyLimit)}
	}
	if tc.MaxRetries < 0 {
		return &ConfigError{Field: "teacher.max_retries", Reason: fmt.Sprintf("%d, must not be negative", tc.MaxRetries)}
	}
	if tc.TimeoutMs < 0 {
		return &ConfigError{Field: "teacher.timeout_ms", Reason: fmt.Sprintf("%d, must not be negative", tc.TimeoutMs)}
	}

	if tc.Kind == TeacherCloud {
		if _, err := table.Lookup(tc.ProviderID, tc.ModelID); err != nil {
			return &ConfigError{
				Field:  "teacher",
				Reason: fmt.Sprintf("no pricing for %s", cost.Key(tc.ProviderID, tc.ModelID)),
				Err:    err,
			}
		}
	}

	return nil
}
