package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	llmclient "contentpilot/internal/llmClient"
)

// Timeout bounds every backend attempt. An attempt that runs out of time
// fails as unavailable so Retry can try again.
func Timeout(d time.Duration) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if d <= 0 {
			return next
		}
		return &timed{passthrough: passthrough{next}, d: d}
	}
}

type timed struct {
	passthrough
	d time.Duration
}

func (t *timed) Complete(ctx context.Context, prompt string) (llmclient.Completion, error) {
	cctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	out, err := t.next.Complete(cctx, prompt)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return llmclient.Completion{}, llmclient.Unavailable(t.Name(), fmt.Errorf("attempt timed out after %s: %w", t.d, context.DeadlineExceeded))
	}
	return out, err
}
