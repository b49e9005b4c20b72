package llm

import (
	"context"
	"time"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/runctx"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 8 * time.Second
)

// Backoff returns the wait before retry n (0-based): base*2^n capped at max.
func Backoff(n int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		base = defaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if n > 30 {
		return maxDelay
	}
	d := base * time.Duration(1<<n)
	if d > maxDelay || d <= 0 {
		return maxDelay
	}
	return d
}

// Retry retries unavailable-class failures up to maxRetries additional
// times with exponential backoff. Rejections and empty responses return
// immediately. A backend Retry-After hint raises the wait, still capped at
// maxDelay. Cancellation stops the loop at once.
func Retry(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &retrying{passthrough: passthrough{next}, retries: maxRetries, base: baseDelay, max: maxDelay}
	}
}

type retrying struct {
	passthrough
	retries int
	base    time.Duration
	max     time.Duration
}

func (r *retrying) Complete(ctx context.Context, prompt string) (llmclient.Completion, error) {
	var last error
	for i := 0; i <= r.retries; i++ {
		out, err := r.next.Complete(runctx.WithAttempt(ctx, i+1), prompt)
		if err == nil {
			return out, nil
		}
		last = err
		if !llmclient.Retryable(err) || i == r.retries {
			break
		}
		wait := Backoff(i, r.base, r.max)
		if hint := llmclient.RetryAfterOf(err); hint > wait {
			wait = min(hint, Backoff(30, r.base, r.max))
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return llmclient.Completion{}, llmclient.Classify(r.Name(), ctx.Err())
		case <-t.C:
		}
	}
	return llmclient.Completion{}, last
}
