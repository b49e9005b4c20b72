package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/runctx"
)

type recordingHook struct {
	mu     sync.Mutex
	before int
	calls  []Call
}

func (h *recordingHook) Before(context.Context, string, string) {
	h.mu.Lock()
	h.before++
	h.mu.Unlock()
}

func (h *recordingHook) After(_ context.Context, c Call) {
	h.mu.Lock()
	h.calls = append(h.calls, c)
	h.mu.Unlock()
}

func fastOpts(retries int) Options {
	return Options{Timeout: time.Second, MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func transient() llmclient.FakeResponse {
	return llmclient.FakeResponse{Err: llmclient.Unavailable("fake", errors.New("503"))}
}

func TestComplete_RetriesTransientThenSucceeds(t *testing.T) {
	fake := llmclient.NewFakeClient(transient(), llmclient.FakeResponse{Text: `{"ok":true}`})
	hook := &recordingHook{}
	c := NewCompleter(fake, nil, hook)

	ctx := runctx.WithRun(context.Background(), runctx.Run{RunID: "r1", Stage: "evaluateAndBrief"})
	out, err := c.Complete(ctx, "prompt", fastOpts(2))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out.Text)
	assert.Equal(t, 2, fake.Calls())

	require.Len(t, hook.calls, 2, "one record per attempt")
	assert.Equal(t, 2, hook.before)
	assert.Equal(t, 1, hook.calls[0].Attempt)
	assert.Error(t, hook.calls[0].Err)
	assert.Equal(t, 2, hook.calls[1].Attempt)
	assert.NoError(t, hook.calls[1].Err)
	assert.Equal(t, "r1", hook.calls[1].RunID)
	assert.Equal(t, "evaluateAndBrief", hook.calls[1].Stage)
	assert.Equal(t, len(`{"ok":true}`), len(hook.calls[1].Response))
}

func TestComplete_ExhaustsRetryBudget(t *testing.T) {
	fake := llmclient.NewFakeClient(transient(), transient(), transient(), llmclient.FakeResponse{Text: "{}"})
	_, err := NewCompleter(fake, nil).Complete(context.Background(), "p", fastOpts(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, llmclient.ErrBackendUnavailable)
	assert.Equal(t, 3, fake.Calls(), "initial attempt plus two retries")
}

func TestComplete_DoesNotRetryRejected(t *testing.T) {
	fake := llmclient.NewFakeClient(
		llmclient.FakeResponse{Err: llmclient.Rejected("fake", 400, errors.New("bad prompt"))},
		llmclient.FakeResponse{Text: "{}"},
	)
	_, err := NewCompleter(fake, nil).Complete(context.Background(), "p", fastOpts(2))
	assert.ErrorIs(t, err, llmclient.ErrBackendRejected)
	assert.Equal(t, 1, fake.Calls())
}

func TestComplete_EmptyResponseNotRetried(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeResponse{Text: ""}, llmclient.FakeResponse{Text: "{}"})
	_, err := NewCompleter(fake, nil).Complete(context.Background(), "p", fastOpts(2))
	assert.ErrorIs(t, err, llmclient.ErrBackendEmptyResponse)
	assert.ErrorIs(t, err, llmclient.ErrBackendRejected)
	assert.Equal(t, 1, fake.Calls())
}

func TestComplete_PerAttemptTimeout(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeResponse{Text: "{}", Delay: 500 * time.Millisecond})
	opts := fastOpts(0)
	opts.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := NewCompleter(fake, nil).Complete(context.Background(), "p", opts)
	assert.ErrorIs(t, err, llmclient.ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestComplete_CancelStopsBackoff(t *testing.T) {
	fake := llmclient.NewFakeClient(transient(), transient())
	opts := Options{Timeout: time.Second, MaxRetries: 1, BaseDelay: time.Second, MaxDelay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewCompleter(fake, nil).Complete(ctx, "p", opts)
	assert.ErrorIs(t, err, llmclient.ErrBackendUnavailable)
	assert.Equal(t, 1, fake.Calls())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestComplete_ContextHook(t *testing.T) {
	hook := &recordingHook{}
	ctx := WithPromptHook(context.Background(), hook)
	_, err := NewCompleter(llmclient.NewFakeClient(llmclient.FakeResponse{Text: "{}"}), nil).Complete(ctx, "p", fastOpts(0))
	require.NoError(t, err)
	require.Len(t, hook.calls, 1)
	assert.Equal(t, "unknown", hook.calls[0].Stage)
	assert.Equal(t, "Fake", hook.calls[0].Provider)
}

func TestBackoff(t *testing.T) {
	base, maxDelay := 100*time.Millisecond, time.Second
	assert.Equal(t, 100*time.Millisecond, Backoff(0, base, maxDelay))
	assert.Equal(t, 200*time.Millisecond, Backoff(1, base, maxDelay))
	assert.Equal(t, 800*time.Millisecond, Backoff(3, base, maxDelay))
	assert.Equal(t, time.Second, Backoff(4, base, maxDelay))
	assert.Equal(t, time.Second, Backoff(63, base, maxDelay))
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{MaxRetries: -1}.withDefaults()
	assert.Equal(t, 0, o.MaxRetries)
	assert.Equal(t, 60*time.Second, o.Timeout)
	assert.Equal(t, DefaultOptions().BaseDelay, o.BaseDelay)
}

func TestRedactText(t *testing.T) {
	in := "key sk-ant-REDACTED and img data:image/png;base64,iVBORw0KGgo="
	out := RedactText(in, 0)
	assert.NotContains(t, out, "sk-ant-abcdef")
	assert.NotContains(t, out, "iVBORw0KGgo")
	assert.Contains(t, out, redactedMedia)

	long := strings.Repeat("é", 100)
	cut := RedactText(long, 51)
	assert.True(t, strings.HasPrefix(cut, strings.Repeat("é", 25)))
	assert.Contains(t, cut, "[truncated")
}

func TestRedactMedia(t *testing.T) {
	v := RedactMedia(map[string]any{"a": []any{"data:image/png;base64,AAAA", 3}})
	m := v.(map[string]any)
	assert.Equal(t, redactedMedia, m["a"].([]any)[0])
	assert.Equal(t, 3, m["a"].([]any)[1])
}
