package teacher

import "context"

// Provider abstracts the reference model that supplies distillation
// signal: a cloud-hosted API model or a local in-process one.
type Provider interface {
	Query(ctx context.Context, prompt string) (*Response, error)
	Name() string
}

// Response is the teacher signal for one prompt.
type Response struct {
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
	Payload   string `json:"payload"`
	LatencyMs int64  `json:"latency_ms"`
}

// Completion is the raw result of one model invocation.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Client is the wire-level collaborator behind a cloud teacher. An
// implementation performs one network call and classifies its failures
// as TransientError or PermanentError.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// ModelHandle is the in-process collaborator behind a local teacher.
type ModelHandle interface {
	Generate(ctx context.Context, prompt string) (*Completion, error)
}
