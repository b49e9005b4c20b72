package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contentpilot/internal/runctx"
	"contentpilot/internal/telemetry"
)

// State is a step of one invocation. Every invocation starts at
// Aggregating and ends at Succeeded or Failed.
type State string

const (
	StateAggregating        State = "Aggregating"
	StatePrompting          State = "Prompting"
	StateAwaitingCompletion State = "AwaitingCompletion"
	StateValidating         State = "Validating"
	StateSucceeded          State = "Succeeded"
	StateFailed             State = "Failed"
)

var transitions = map[State][]State{
	StateAggregating:        {StatePrompting, StateFailed},
	StatePrompting:          {StateAwaitingCompletion, StateFailed},
	StateAwaitingCompletion: {StateValidating, StateFailed},
	StateValidating:         {StateSucceeded, StateFailed, StateAwaitingCompletion},
}

// CanTransition reports whether to may follow from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// tracker walks the state machine of one invocation, logging and
// recording each transition on the invocation span.
type tracker struct {
	logger *slog.Logger
	rec    *telemetry.Recorder
	span   trace.Span
	state  State
	start  time.Time
}

func (p *Pipeline) track(ctx context.Context, op, stage string) (context.Context, *tracker) {
	run := runctx.From(ctx)
	ctx, span := tracer.Start(ctx, "pipeline."+stage, trace.WithAttributes(
		attribute.String("pipeline.op", op),
		attribute.String("pipeline.run_id", run.RunID),
	))
	t := &tracker{
		logger: p.logger.With("run_id", run.RunID, "op", op, "stage", stage),
		rec:    p.rec,
		span:   span,
		state:  StateAggregating,
		start:  time.Now(),
	}
	t.span.AddEvent(string(StateAggregating))
	t.logger.Debug("pipeline state", "state", StateAggregating)
	t.rec.Transition(ctx, string(StateAggregating), nil)
	return ctx, t
}

func (t *tracker) enter(ctx context.Context, to State, fields map[string]any) {
	if !CanTransition(t.state, to) {
		t.logger.Warn("unexpected pipeline transition", "from", t.state, "to", to)
	}
	t.state = to
	t.span.AddEvent(string(to))
	t.logger.Debug("pipeline state", "state", to)
	t.rec.Transition(ctx, string(to), fields)
}

// succeed ends the invocation in Succeeded.
func (t *tracker) succeed(ctx context.Context, fields map[string]any) {
	t.enter(ctx, StateSucceeded, nil)
	d := time.Since(t.start)
	t.logger.Info("pipeline succeeded", "duration_ms", d.Milliseconds())
	t.rec.Outcome(ctx, string(StateSucceeded), d, nil, fields)
	t.span.SetStatus(codes.Ok, "")
	t.span.End()
}

// fail ends the invocation in Failed and returns e.
func (t *tracker) fail(ctx context.Context, e *Error) *Error {
	t.enter(ctx, StateFailed, nil)
	d := time.Since(t.start)
	t.logger.Warn("pipeline failed", "kind", e.Kind, "retryable", e.Retryable, "duration_ms", d.Milliseconds(), "error", e.Err)
	t.rec.Outcome(ctx, string(StateFailed), d, e, map[string]any{"kind": string(e.Kind), "retryable": e.Retryable})
	t.span.RecordError(e)
	t.span.SetStatus(codes.Error, string(e.Kind))
	t.span.End()
	return e
}
