package llm

import (
	"context"
	"log/slog"
	"time"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/runctx"
)

// WithLogging logs request size, latency and errors per attempt. A nil
// logger uses slog.Default().
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{passthrough: passthrough{next}, log: logger}
	}
}

type logging struct {
	passthrough
	log *slog.Logger
}

func (l *logging) Complete(ctx context.Context, prompt string) (llmclient.Completion, error) {
	run := runctx.From(ctx)
	attrs := []any{
		"run_id", run.RunID,
		"stage", runctx.StageFrom(ctx),
		"attempt", run.Attempt,
		"backend", l.Name(),
	}
	l.log.DebugContext(ctx, "llm request", append(attrs, "prompt_bytes", len(prompt))...)
	start := time.Now()
	out, err := l.next.Complete(ctx, prompt)
	attrs = append(attrs, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		l.log.WarnContext(ctx, "llm error", append(attrs, "retryable", llmclient.Retryable(err), "error", err)...)
		return out, err
	}
	l.log.InfoContext(ctx, "llm response", append(attrs,
		"response_bytes", len(out.Text),
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
	)...)
	return out, nil
}
