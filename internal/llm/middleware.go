package llm

import (
	llmclient "contentpilot/internal/llmClient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (retries, timeouts, logging, tracing, hooks).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// passthrough forwards the non-call methods to next.
type passthrough struct{ next llmclient.LLMClient }

func (p passthrough) Name() string                { return p.next.Name() }
func (p passthrough) Close() error                { return p.next.Close() }
func (p passthrough) CountTokens(text string) int { return p.next.CountTokens(text) }
