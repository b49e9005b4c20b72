package telemetry

import (
	"context"
	"log/slog"
	"time"

	"contentpilot/internal/llm"
	"contentpilot/internal/runctx"
)

const defaultMaxBodyBytes = 16 * 1024

// RecorderOptions tunes what a Recorder stores.
type RecorderOptions struct {
	// CostPer1KTokens prices the token estimate; zero disables cost.
	CostPer1KTokens float64
	// MaxBodyBytes truncates request and response text.
	MaxBodyBytes int
	Logger       *slog.Logger
}

// Recorder turns backend attempts and pipeline state changes into records.
// It implements llm.PromptHook.
type Recorder struct {
	sink Sink
	opts RecorderOptions
}

var _ llm.PromptHook = (*Recorder)(nil)

func NewRecorder(sink Sink, opts RecorderOptions) *Recorder {
	if sink == nil {
		sink = Discard
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Recorder{sink: sink, opts: opts}
}

func (r *Recorder) Before(context.Context, string, string) {}

// After records one backend attempt, successful or not.
func (r *Recorder) After(ctx context.Context, call llm.Call) {
	tokens := call.Usage.InputTokens + call.Usage.OutputTokens
	rec := Record{
		RunID:         call.RunID,
		Kind:          KindCall,
		Op:            call.Op,
		Stage:         call.Stage,
		Timestamp:     call.StartedAt.UTC(),
		DurationMs:    call.Duration.Milliseconds(),
		Attempt:       call.Attempt,
		Backend:       call.Provider,
		PromptBytes:   len(call.Prompt),
		ResponseBytes: len(call.Response),
		Request:       llm.RedactText(call.Prompt, r.opts.MaxBodyBytes),
		Response:      llm.RedactText(call.Response, r.opts.MaxBodyBytes),
		Tokens:        tokens,
		Cost:          r.cost(tokens),
	}
	if call.Err != nil {
		rec.Error = call.Err.Error()
	}
	r.write(ctx, rec)
}

func (r *Recorder) cost(tokens int) float64 {
	if r.opts.CostPer1KTokens <= 0 {
		return 0
	}
	return float64(tokens) / 1000 * r.opts.CostPer1KTokens
}

// Transition records entry into a pipeline state.
func (r *Recorder) Transition(ctx context.Context, state string, fields map[string]any) {
	run := runctx.From(ctx)
	r.write(ctx, Record{
		RunID:  run.RunID,
		Kind:   KindTransition,
		Op:     run.Op,
		Stage:  runctx.StageFrom(ctx),
		State:  state,
		Fields: fields,
	})
}

// Outcome records how a stage ended.
func (r *Recorder) Outcome(ctx context.Context, state string, d time.Duration, err error, fields map[string]any) {
	run := runctx.From(ctx)
	rec := Record{
		RunID:      run.RunID,
		Kind:       KindOutcome,
		Op:         run.Op,
		Stage:      runctx.StageFrom(ctx),
		State:      state,
		DurationMs: d.Milliseconds(),
		Fields:     fields,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	r.write(ctx, rec)
}

// External stores a record submitted by a collaborator.
func (r *Recorder) External(ctx context.Context, rec Record) {
	rec.Kind = KindExternal
	rec.Request = llm.RedactText(rec.Request, r.opts.MaxBodyBytes)
	rec.Response = llm.RedactText(rec.Response, r.opts.MaxBodyBytes)
	if rec.Fields != nil {
		rec.Fields, _ = llm.RedactMedia(rec.Fields).(map[string]any)
	}
	if rec.Cost == 0 {
		rec.Cost = r.cost(rec.Tokens)
	}
	r.write(ctx, rec)
}

func (r *Recorder) write(ctx context.Context, rec Record) {
	if err := r.sink.Write(context.WithoutCancel(ctx), stamp(rec)); err != nil {
		r.opts.Logger.Warn("telemetry write failed", "run_id", rec.RunID, "kind", rec.Kind, "error", err)
	}
}
