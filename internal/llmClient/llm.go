package llmclient

import "context"

// Completion is one text response from a backend.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// LLMClient is the opaque generative capability: given a prompt string,
// return a text completion. Implementations only perform the API call;
// retries, timeouts, logging, tracing and telemetry are applied by the
// middleware in package llm.
type LLMClient interface {
	Name() string
	Close() error
	CountTokens(text string) int
	Complete(ctx context.Context, prompt string) (Completion, error)
}
