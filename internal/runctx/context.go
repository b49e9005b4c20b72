// Package runctx carries per-invocation identity (run id, operation, stage,
// backend attempt) through context so that logs, spans and telemetry
// records of one pipeline run can be correlated.
package runctx

import (
	"context"
	"strings"
)

type ctxKeyRun struct{}

// Run identifies one pipeline invocation.
type Run struct {
	RunID   string
	Op      string
	Stage   string
	Attempt int
}

func normalize(r Run) Run {
	r.RunID = strings.TrimSpace(r.RunID)
	r.Op = strings.TrimSpace(r.Op)
	r.Stage = strings.TrimSpace(r.Stage)
	if r.Attempt < 0 {
		r.Attempt = 0
	}
	return r
}

func WithRun(ctx context.Context, r Run) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyRun{}, normalize(r))
}

func From(ctx context.Context) Run {
	if ctx != nil {
		if v := ctx.Value(ctxKeyRun{}); v != nil {
			if r, ok := v.(Run); ok {
				return r
			}
		}
	}
	return Run{}
}

func WithStage(ctx context.Context, stage string) context.Context {
	r := From(ctx)
	r.Stage = stage
	r.Attempt = 0
	return WithRun(ctx, r)
}

func WithAttempt(ctx context.Context, attempt int) context.Context {
	r := From(ctx)
	r.Attempt = attempt
	return WithRun(ctx, r)
}

func RunIDFrom(ctx context.Context) string { return From(ctx).RunID }

// StageFrom returns the current stage or "unknown".
func StageFrom(ctx context.Context) string {
	if s := From(ctx).Stage; s != "" {
		return s
	}
	return "unknown"
}

func AttemptFrom(ctx context.Context) int { return From(ctx).Attempt }
