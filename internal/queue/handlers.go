package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// HandlersRegistry accumulates task handlers before the asynq server
// starts. Handlers here are always ProcessTask methods of a worker, so
// registration takes the function directly.
type HandlersRegistry struct {
	mux   *asynq.ServeMux
	types map[string]bool
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux:   asynq.NewServeMux(),
		types: make(map[string]bool),
	}
}

// RegisterFunc binds a task type to a worker's ProcessTask. Duplicate
// and empty task types are wiring bugs and fail loudly.
func (r *HandlersRegistry) RegisterFunc(taskType string, fn func(context.Context, *asynq.Task) error) error {
	if taskType == "" {
		return fmt.Errorf("empty task type")
	}
	if r.types[taskType] {
		return fmt.Errorf("task type %q registered twice", taskType)
	}
	r.types[taskType] = true
	r.mux.HandleFunc(taskType, fn)
	return nil
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}
