package teacher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/cost"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/teacher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the queued errors in order, then succeeds.
type scriptedClient struct {
	errs  []error
	calls int
}

func (c *scriptedClient) Complete(_ context.Context, prompt string) (*teacher.Completion, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &teacher.Completion{Text: "signal for " + prompt, TokensIn: 7, TokensOut: 11}, nil
}

func testTable() cost.Table {
	return cost.Table{
		cost.Key("openai", "gpt-4o-mini"): {
			ProviderID:   "openai",
			ModelID:      "gpt-4o-mini",
			InputPerTok:  0.00015 / 1000,
			OutputPerTok: 0.0006 / 1000,
		},
	}
}

func fastOpts(maxRetries int) teacher.CloudOptions {
	return teacher.CloudOptions{
		MaxRetries: maxRetries,
		Timeout:    time.Second,
		Backoff:    teacher.Backoff{Base: time.Millisecond, Max: 5 * time.Millisecond},
	}
}

func TestCloudRetriesTransientThenSucceeds(t *testing.T) {
	client := &scriptedClient{errs: []error{
		errors.New("connection reset"),
		errors.New("rate limited"),
	}}

	cloud, err := teacher.NewCloud("openai", "gpt-4o-mini", testTable(), client, fastOpts(2))
	require.NoError(t, err)

	resp, err := cloud.Query(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls, "two retries, then the third response is used")
	assert.Equal(t, 7, resp.TokensIn)
	assert.Equal(t, 11, resp.TokensOut)
	assert.Equal(t, "signal for prompt", resp.Payload)
}

func TestCloudRetryExhaustion(t *testing.T) {
	client := &scriptedClient{errs: []error{
		errors.New("timeout"),
		errors.New("timeout"),
	}}

	cloud, err := teacher.NewCloud("openai", "gpt-4o-mini", testTable(), client, fastOpts(1))
	require.NoError(t, err)

	_, err = cloud.Query(context.Background(), "prompt")
	require.Error(t, err)

	var transient *teacher.TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 2, transient.Attempts)
	assert.Equal(t, 2, client.calls)
}

func TestCloudPermanentNotRetried(t *testing.T) {
	client := &scriptedClient{errs: []error{
		&teacher.PermanentError{Err: errors.New("invalid api key")},
	}}

	cloud, err := teacher.NewCloud("openai", "gpt-4o-mini", testTable(), client, fastOpts(5))
	require.NoError(t, err)

	_, err = cloud.Query(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, teacher.IsPermanent(err))
	assert.Equal(t, 1, client.calls, "permanent failures must not be retried")
}

func TestNewCloudMissingPricing(t *testing.T) {
	_, err := teacher.NewCloud("openai", "gpt-5", testTable(), &scriptedClient{}, fastOpts(0))
	require.ErrorIs(t, err, cost.ErrNoPricing)
}

func TestCloudRespectsContextCancellation(t *testing.T) {
	client := &scriptedClient{errs: []error{
		errors.New("transient"),
		errors.New("transient"),
		errors.New("transient"),
	}}

	opts := teacher.CloudOptions{
		MaxRetries: 3,
		Backoff:    teacher.Backoff{Base: time.Hour},
	}
	cloud, err := teacher.NewCloud("openai", "gpt-4o-mini", testTable(), client, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = cloud.Query(ctx, "prompt")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, client.calls, "cancelled while backing off")
}

// stalledClient never answers; it returns only when the per-attempt
// deadline fires.
type stalledClient struct {
	calls int
}

func (c *stalledClient) Complete(ctx context.Context, _ string) (*teacher.Completion, error) {
	c.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCloudPerAttemptTimeoutIsTransient(t *testing.T) {
	client := &stalledClient{}
	opts := teacher.CloudOptions{
		MaxRetries: 1,
		Timeout:    10 * time.Millisecond,
		Backoff:    teacher.Backoff{Base: time.Millisecond, Max: 5 * time.Millisecond},
	}
	cloud, err := teacher.NewCloud("openai", "gpt-4o-mini", testTable(), client, opts)
	require.NoError(t, err)

	_, err = cloud.Query(context.Background(), "prompt")
	require.Error(t, err)

	var transient *teacher.TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 2, transient.Attempts)
	assert.Equal(t, 2, client.calls, "a timed-out attempt must be retried")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, teacher.IsPermanent(err))
}

type failingHandle struct{}

func (failingHandle) Generate(context.Context, string) (*teacher.Completion, error) {
	return nil, errors.New("tensor shape mismatch")
}

func TestLocalFailureIsPermanent(t *testing.T) {
	local := teacher.NewLocal("local-qwen", failingHandle{})

	_, err := local.Query(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, teacher.IsPermanent(err))
}

type echoHandle struct{}

func (echoHandle) Generate(_ context.Context, prompt string) (*teacher.Completion, error) {
	return &teacher.Completion{Text: prompt, TokensIn: 3, TokensOut: 5}, nil
}

func TestLocalQuery(t *testing.T) {
	local := teacher.NewLocal("local-qwen", echoHandle{})

	resp, err := local.Query(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Payload)
	assert.Equal(t, 3, resp.TokensIn)
	assert.Equal(t, 5, resp.TokensOut)
	assert.Equal(t, "local-qwen", local.Name())
}

func TestBackoffDelays(t *testing.T) {
	b := teacher.Backoff{Base: 500 * time.Millisecond, Max: 8 * time.Second}

	assert.Equal(t, time.Duration(0), b.Delay(0))
	assert.Equal(t, 500*time.Millisecond, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 4500*time.Millisecond, b.Delay(3))
	assert.Equal(t, 8*time.Second, b.Delay(5), "capped at Max")
}
