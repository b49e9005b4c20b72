package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/runctx"
)

var tracer = otel.Tracer("contentpilot/llm")

// WithTracing opens one span per backend attempt.
func WithTracing() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &traced{passthrough: passthrough{next}}
	}
}

type traced struct{ passthrough }

func (t *traced) Complete(ctx context.Context, prompt string) (llmclient.Completion, error) {
	run := runctx.From(ctx)
	ctx, span := tracer.Start(ctx, "llm.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.backend", t.Name()),
			attribute.String("pipeline.run_id", run.RunID),
			attribute.String("pipeline.stage", runctx.StageFrom(ctx)),
			attribute.Int("llm.attempt", run.Attempt),
			attribute.Int("llm.prompt_bytes", len(prompt)),
		))
	defer span.End()

	out, err := t.next.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("llm.retryable", llmclient.Retryable(err)))
		return out, err
	}
	span.SetAttributes(
		attribute.Int("llm.response_bytes", len(out.Text)),
		attribute.Int("llm.input_tokens", out.InputTokens),
		attribute.Int("llm.output_tokens", out.OutputTokens),
	)
	return out, nil
}
