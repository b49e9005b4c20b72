package llm

import (
	"context"
	"log/slog"
	"time"

	llmclient "contentpilot/internal/llmClient"
)

// Options is the per-call retry/timeout policy.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultOptions: 60s per attempt, 2 retries, 500ms base backoff capped at 8s.
func DefaultOptions() Options {
	return Options{
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = o.BaseDelay
	}
	return o
}

// Completer is the only component doing backend I/O. It is immutable after
// construction and safe for concurrent use.
type Completer struct {
	backend llmclient.LLMClient
	logger  *slog.Logger
	hooks   []PromptHook
}

func NewCompleter(backend llmclient.LLMClient, logger *slog.Logger, hooks ...PromptHook) *Completer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Completer{backend: backend, logger: logger, hooks: hooks}
}

func (c *Completer) Name() string { return c.backend.Name() }
func (c *Completer) Close() error { return c.backend.Close() }

// Complete sends prompt and returns the raw completion. Retry wraps the
// per-attempt chain, so every attempt is traced, hooked and logged once.
//
// Errors are classified: errors.Is(err, llmclient.ErrBackendUnavailable)
// after retries are exhausted, ErrBackendRejected for non-success statuses,
// ErrBackendEmptyResponse for an empty body.
func (c *Completer) Complete(ctx context.Context, prompt string, opts Options) (llmclient.Completion, error) {
	opts = opts.withDefaults()
	cli := Wrap(c.backend,
		Retry(opts.MaxRetries, opts.BaseDelay, opts.MaxDelay),
		WithTracing(),
		WithHooks(c.hooks...),
		WithLogging(c.logger),
		Timeout(opts.Timeout),
	)
	out, err := cli.Complete(ctx, prompt)
	if err != nil {
		return llmclient.Completion{}, llmclient.Classify(c.backend.Name(), err)
	}
	return out, nil
}
