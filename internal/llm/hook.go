package llm

import (
	"context"
	"time"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/runctx"
)

// Call describes one finished backend attempt.
type Call struct {
	RunID     string
	Op        string
	Stage     string
	Attempt   int
	Provider  string
	Prompt    string
	Response  string
	Usage     llmclient.Completion
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// PromptHook observes backend attempts.
type PromptHook interface {
	Before(ctx context.Context, stage, prompt string)
	After(ctx context.Context, call Call)
}

type ctxKeyHook struct{}

// WithPromptHook attaches a PromptHook to the context. WithHooks calls it
// in addition to the hooks it was built with.
func WithPromptHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(PromptHook); ok {
			return h
		}
	}
	return nil
}

// WithHooks calls Before/After around every attempt on the given hooks and
// on the hook stored in the context, if any.
func WithHooks(hooks ...PromptHook) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &hooked{passthrough: passthrough{next}, hooks: hooks}
	}
}

type hooked struct {
	passthrough
	hooks []PromptHook
}

func (h *hooked) all(ctx context.Context) []PromptHook {
	out := h.hooks
	if hook := HookFrom(ctx); hook != nil {
		out = append(out[:len(out):len(out)], hook)
	}
	return out
}

func (h *hooked) Complete(ctx context.Context, prompt string) (llmclient.Completion, error) {
	hooks := h.all(ctx)
	run := runctx.From(ctx)
	stage := runctx.StageFrom(ctx)
	for _, hook := range hooks {
		if hook != nil {
			hook.Before(ctx, stage, prompt)
		}
	}
	start := time.Now()
	out, err := h.next.Complete(ctx, prompt)
	call := Call{
		RunID:     run.RunID,
		Op:        run.Op,
		Stage:     stage,
		Attempt:   run.Attempt,
		Provider:  h.Name(),
		Prompt:    prompt,
		Response:  out.Text,
		Usage:     out,
		StartedAt: start,
		Duration:  time.Since(start),
		Err:       err,
	}
	if call.Usage.InputTokens == 0 {
		call.Usage.InputTokens = h.CountTokens(prompt)
	}
	for _, hook := range hooks {
		if hook != nil {
			hook.After(ctx, call)
		}
	}
	return out, err
}
