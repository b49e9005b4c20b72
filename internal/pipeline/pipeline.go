// Package pipeline orchestrates context aggregation, prompt building, one
// backend completion and validation for each user action. A Pipeline is
// immutable after construction; every invocation owns its own context,
// prompt and result, so concurrent invocations share no mutable state.
//
// Two regenerations of the same brief are not coordinated. Callers that
// need last-write-wins must serialize them.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"contentpilot/internal/bizctx"
	"contentpilot/internal/llm"
	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/parse"
	"contentpilot/internal/prompt"
	"contentpilot/internal/runctx"
	"contentpilot/internal/telemetry"
	"contentpilot/internal/types"
)

var tracer = otel.Tracer("contentpilot/pipeline")

// Completer performs one logical backend completion, retries included.
// *llm.Completer satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (llmclient.Completion, error)
}

// Config is the pipeline policy.
type Config struct {
	Completion llm.Options
	Parse      parse.Policy
	// ValidationRetries re-sends an unchanged prompt whose response could
	// not be validated.
	ValidationRetries int
}

func DefaultConfig() Config {
	return Config{
		Completion:        llm.DefaultOptions(),
		Parse:             parse.DefaultPolicy(),
		ValidationRetries: 1,
	}
}

type Pipeline struct {
	completer Completer
	rec       *telemetry.Recorder
	logger    *slog.Logger
	cfg       Config
}

func New(c Completer, rec *telemetry.Recorder, logger *slog.Logger, cfg Config) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = telemetry.NewRecorder(nil, telemetry.RecorderOptions{Logger: logger})
	}
	if cfg.ValidationRetries < 0 {
		cfg.ValidationRetries = 0
	}
	return &Pipeline{completer: c, rec: rec, logger: logger.With("component", "pipeline"), cfg: cfg}
}

func (p *Pipeline) Config() Config { return p.cfg }

// begin tags ctx with a fresh run id, op and stage.
func begin(ctx context.Context, op string, stage types.Stage) context.Context {
	ctx = runctx.WithRun(ctx, runctx.Run{RunID: uuid.NewString(), Op: op})
	return runctx.WithStage(ctx, string(stage))
}

// GenerateBriefs evaluates every candidate item and produces briefs for the
// viable ones. There is no partial result: any whole-stage failure returns
// a zero BatchResult and an *Error.
func (p *Pipeline) GenerateBriefs(ctx context.Context, items []types.CandidateItem, user *types.UserInput, web *types.WebsiteIntelligence) (types.BatchResult, error) {
	return p.generate(ctx, items, func() types.BusinessContext { return bizctx.Aggregate(user, web) })
}

// GenerateBriefsWithContext is GenerateBriefs for an already aggregated
// business context.
func (p *Pipeline) GenerateBriefsWithContext(ctx context.Context, items []types.CandidateItem, bc types.BusinessContext) (types.BatchResult, error) {
	return p.generate(ctx, items, func() types.BusinessContext { return bc })
}

func (p *Pipeline) generate(ctx context.Context, items []types.CandidateItem, aggregate func() types.BusinessContext) (types.BatchResult, error) {
	const op, stage = OpGenerateBriefs, types.StageEvaluateAndBrief
	ctx = begin(ctx, op, stage)
	ctx, t := p.track(ctx, op, string(stage))

	bc := aggregate()
	t.enter(ctx, StatePrompting, map[string]any{"items": len(items), "has_user_input": bc.HasUserInput, "has_website_intelligence": bc.HasWebsiteIntelligence})
	text, err := prompt.Build(stage, items, bc)
	if err != nil {
		return types.BatchResult{}, t.fail(ctx, invalidRequest(op, string(stage), err))
	}

	res, err := p.exchange(ctx, t, stage, text, parse.Expect{Items: items})
	if err != nil {
		return types.BatchResult{}, t.fail(ctx, failure(op, string(stage), err))
	}

	batch := *res.Batch
	batch.RunID = runctx.RunIDFrom(ctx)
	batch.EvaluatedCount = len(items)
	batch.Recount()
	t.succeed(ctx, map[string]any{
		"evaluatedCount": batch.EvaluatedCount,
		"viableCount":    batch.ViableCount,
		"totalBriefs":    batch.TotalBriefs,
		"warnings":       len(batch.Warnings),
	})
	return batch, nil
}

// Regenerate produces a new version of one brief. The result keeps the
// target's briefId and targetChannels so the caller can splice it into its
// BatchResult; sibling briefs are never touched.
func (p *Pipeline) Regenerate(ctx context.Context, req types.RegenerationRequest) (types.ContentBrief, error) {
	const op, stage = OpRegenerate, types.StageRegenerateOne
	ctx = begin(ctx, op, stage)
	ctx, t := p.track(ctx, op, string(stage))

	target := req.TargetBrief
	t.enter(ctx, StatePrompting, map[string]any{"briefId": target.BriefID})
	text, err := prompt.Build(stage, prompt.RegeneratePayload{Brief: target, VariationRequest: req.VariationRequest}, req.BusinessContext)
	if err != nil {
		return types.ContentBrief{}, t.fail(ctx, invalidRequest(op, string(stage), err))
	}

	res, err := p.exchange(ctx, t, stage, text, parse.Expect{Brief: &target})
	if err != nil {
		return types.ContentBrief{}, t.fail(ctx, failure(op, string(stage), err))
	}
	t.succeed(ctx, map[string]any{"briefId": res.Brief.BriefID, "warnings": len(res.Warnings)})
	return *res.Brief, nil
}

// GenerateChannelContent writes finished copy for one target channel of a
// brief.
func (p *Pipeline) GenerateChannelContent(ctx context.Context, req types.ChannelContentRequest) (types.ChannelContent, error) {
	const op, stage = OpChannelContent, types.StageGenerateChannelContent
	ctx = begin(ctx, op, stage)
	ctx, t := p.track(ctx, op, string(stage))

	t.enter(ctx, StatePrompting, map[string]any{"briefId": req.Brief.BriefID, "channel": req.Channel})
	text, err := prompt.Build(stage, prompt.ChannelPayload{Brief: req.Brief, Channel: req.Channel}, req.BusinessContext)
	if err != nil {
		return types.ChannelContent{}, t.fail(ctx, invalidRequest(op, string(stage), err))
	}

	res, err := p.exchange(ctx, t, stage, text, parse.Expect{Brief: &req.Brief, Channel: req.Channel})
	if err != nil {
		return types.ChannelContent{}, t.fail(ctx, failure(op, string(stage), err))
	}
	t.succeed(ctx, map[string]any{"briefId": res.Content.BriefID, "channel": res.Content.Channel, "warnings": len(res.Warnings)})
	return *res.Content, nil
}

// exchange sends text and validates the reply. A reply that fails
// validation is retried with the same prompt up to ValidationRetries
// times; backend errors are returned as-is, since the completer already
// retried them.
func (p *Pipeline) exchange(ctx context.Context, t *tracker, stage types.Stage, text string, exp parse.Expect) (parse.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.ValidationRetries+1; attempt++ {
		t.enter(ctx, StateAwaitingCompletion, map[string]any{"promptBytes": len(text), "validationAttempt": attempt})
		out, err := p.completer.Complete(ctx, text, p.cfg.Completion)
		if err != nil {
			return parse.Result{}, err
		}

		t.enter(ctx, StateValidating, map[string]any{"responseBytes": len(out.Text)})
		res, err := parse.ParseAndValidate(stage, out.Text, exp, p.cfg.Parse)
		if err == nil {
			for _, w := range res.Warnings {
				t.logger.Warn("data quality", "code", w.Code, "article_id", w.ArticleID, "brief_id", w.BriefID, "detail", w.Message)
			}
			return res, nil
		}
		if !parse.IsValidation(err) {
			return parse.Result{}, err
		}
		lastErr = err
		t.logger.Warn("response failed validation", "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return parse.Result{}, lastErr
}
