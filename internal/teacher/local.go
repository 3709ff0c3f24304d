package teacher

import (
	"context"
	"fmt"
	"time"
)

// Local wraps an in-process model handle. Queries accrue no cost, and
// failures are never retried: a local model failing indicates a
// programming or model error, not transient infrastructure.
type Local struct {
	name   string
	handle ModelHandle
}

func NewLocal(name string, handle ModelHandle) *Local {
	return &Local{name: name, handle: handle}
}

func (l *Local) Name() string { return l.name }

func (l *Local) Query(ctx context.Context, prompt string) (*Response, error) {
	start := time.Now()
	comp, err := l.handle.Generate(ctx, prompt)
	if err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("local teacher %s: %w", l.name, err)}
	}
	return &Response{
		TokensIn:  comp.TokensIn,
		TokensOut: comp.TokensOut,
		Payload:   comp.Text,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
