package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentpilot/internal/llm"
	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/telemetry"
	"contentpilot/internal/types"
)

type harness struct {
	fake *llmclient.FakeClient
	mem  *telemetry.MemorySink
	p    *Pipeline
}

func newHarness(t *testing.T, script ...llmclient.FakeResponse) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem, err := telemetry.NewMemorySink(16, 256)
	require.NoError(t, err)
	rec := telemetry.NewRecorder(mem, telemetry.RecorderOptions{Logger: logger})
	fake := llmclient.NewFakeClient(script...)

	cfg := DefaultConfig()
	cfg.Completion = llm.Options{Timeout: time.Second, MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return &harness{
		fake: fake,
		mem:  mem,
		p:    New(llm.NewCompleter(fake, logger, rec), rec, logger, cfg),
	}
}

func (h *harness) records(t *testing.T, runID string) []telemetry.Record {
	t.Helper()
	recs, err := h.mem.Read(context.Background(), runID)
	require.NoError(t, err)
	return recs
}

func candidates(n int) []types.CandidateItem {
	out := make([]types.CandidateItem, n)
	for i := range out {
		out[i] = types.CandidateItem{
			ID:         fmt.Sprintf("item-%d", i+1),
			Title:      fmt.Sprintf("Pricing lessons from team %d", i+1),
			URL:        fmt.Sprintf("https://example.com/%d", i+1),
			SourceType: types.SourceWeb,
		}
	}
	return out
}

func brief(id string) map[string]any {
	return map[string]any{
		"briefId":           id,
		"contentAngle":      "angle",
		"targetChannels":    []string{"twitter"},
		"contentType":       "single_modal",
		"keyMessage":        "message",
		"channelStrategies": map[string]any{"twitter": map[string]string{"format": "thread"}},
		"creationPrompts":   map[string]string{"twitter": "write a thread"},
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestGenerateBriefs_ThreeItems(t *testing.T) {
	raw := map[string]any{
		"evaluatedCount": 3, "viableCount": 2, "totalBriefs": 5,
		"results": []any{
			map[string]any{"articleId": "item-1", "viable": true, "briefs": []any{brief("item-1-brief-1")}},
			map[string]any{"articleId": "item-2", "viable": false, "rejectionReason": "No concrete substance"},
			map[string]any{"articleId": "item-3", "viable": true, "briefs": []any{brief("item-3-brief-1")}},
		},
	}
	h := newHarness(t, llmclient.FakeResponse{Text: "Sure:\n```json\n" + mustJSON(t, raw) + "\n```"})

	batch, err := h.p.GenerateBriefs(context.Background(), candidates(3), &types.UserInput{CompanyName: "Acme"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.EvaluatedCount)
	assert.Equal(t, 2, batch.ViableCount)
	assert.Equal(t, 2, batch.TotalBriefs)
	assert.Empty(t, batch.Results[1].Briefs)
	assert.NotEmpty(t, batch.Results[1].RejectionReason)
	assert.NotEmpty(t, batch.RunID)
	require.Len(t, batch.Warnings, 1)
	assert.Equal(t, types.WarnCountMismatch, batch.Warnings[0].Code)
	assert.Equal(t, 1, h.fake.Calls())
}

func TestGenerateBriefs_StateMachineRecorded(t *testing.T) {
	h := newHarness(t)
	batch, err := h.p.GenerateBriefs(context.Background(), candidates(2), nil, nil)
	require.NoError(t, err)

	var states []string
	calls := 0
	for _, r := range h.records(t, batch.RunID) {
		switch r.Kind {
		case telemetry.KindTransition:
			states = append(states, r.State)
		case telemetry.KindCall:
			calls++
			assert.Equal(t, string(types.StageEvaluateAndBrief), r.Stage)
			assert.Positive(t, r.PromptBytes)
			assert.Positive(t, r.ResponseBytes)
			assert.Empty(t, r.Error)
		}
	}
	assert.Equal(t, []string{"Aggregating", "Prompting", "AwaitingCompletion", "Validating", "Succeeded"}, states)
	assert.Equal(t, 1, calls)
}

func TestGenerateBriefs_TransientExhaustion(t *testing.T) {
	boom := llmclient.FakeResponse{Err: llmclient.Unavailable("Fake", errors.New("connection reset by upstream secret-detail"))}
	h := newHarness(t, boom, boom, boom)

	batch, err := h.p.GenerateBriefs(context.Background(), candidates(1), nil, nil)
	require.Error(t, err)
	assert.Zero(t, batch.EvaluatedCount)
	assert.Nil(t, batch.Results)
	assert.ErrorIs(t, err, ErrPipelineFailed)
	assert.ErrorIs(t, err, llmclient.ErrBackendUnavailable)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "evaluateAndBrief", pe.Stage)
	assert.Equal(t, KindBackendUnavailable, pe.Kind)
	assert.True(t, pe.Retryable)
	assert.NotContains(t, pe.Error(), "secret-detail")
	assert.Equal(t, 3, h.fake.Calls())
}

func TestGenerateBriefs_RejectedNotRetried(t *testing.T) {
	h := newHarness(t, llmclient.FakeResponse{Err: llmclient.Rejected("Fake", 400, errors.New("bad"))})
	_, err := h.p.GenerateBriefs(context.Background(), candidates(1), nil, nil)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindBackendRejected, pe.Kind)
	assert.False(t, pe.Retryable)
	assert.Contains(t, pe.Reason, "400")
	assert.Equal(t, 1, h.fake.Calls())
}

func TestGenerateBriefs_EmptyResponse(t *testing.T) {
	h := newHarness(t, llmclient.FakeResponse{Text: " "})
	_, err := h.p.GenerateBriefs(context.Background(), candidates(1), nil, nil)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindBackendEmpty, pe.Kind)
	assert.Equal(t, 1, h.fake.Calls())
}

func TestGenerateBriefs_ValidationRetry(t *testing.T) {
	h := newHarness(t, llmclient.FakeResponse{Text: "I am not able to answer in JSON."})
	batch, err := h.p.GenerateBriefs(context.Background(), candidates(2), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.EvaluatedCount)
	assert.Equal(t, 2, h.fake.Calls())

	h = newHarness(t,
		llmclient.FakeResponse{Text: "no json"},
		llmclient.FakeResponse{Text: `{"unrelated":true}`},
	)
	_, err = h.p.GenerateBriefs(context.Background(), candidates(2), nil, nil)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindValidation, pe.Kind)
	assert.Equal(t, "no results array in payload", pe.Reason)
	assert.Equal(t, 2, h.fake.Calls())
}

func TestGenerateBriefs_InvalidRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.p.GenerateBriefs(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, ErrPipelineFailed)
	assert.Zero(t, h.fake.Calls())
}

func TestGenerateBriefs_Canceled(t *testing.T) {
	h := newHarness(t, llmclient.FakeResponse{Text: "{}", Delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := h.p.GenerateBriefs(ctx, candidates(1), nil, nil)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindCanceled, pe.Kind)
}

func TestRegenerate_PreservesIdentity(t *testing.T) {
	h := newHarness(t)
	orig := llmclient.FakeBrief("item-1-brief-1", "pricing")

	got, err := h.p.Regenerate(context.Background(), types.RegenerationRequest{
		TargetBrief:      orig,
		VariationRequest: "more casual tone",
	})
	require.NoError(t, err)
	assert.Equal(t, orig.BriefID, got.BriefID)
	assert.Equal(t, orig.TargetChannels, got.TargetChannels)
	assert.NotEqual(t, orig.CreationPrompts, got.CreationPrompts)
	assert.Empty(t, got.MissingChannels())
}

func TestRegenerate_Failure(t *testing.T) {
	h := newHarness(t, llmclient.FakeResponse{Err: llmclient.Rejected("Fake", 403, errors.New("policy"))})
	_, err := h.p.Regenerate(context.Background(), types.RegenerationRequest{TargetBrief: llmclient.FakeBrief("b1", "x")})
	assert.ErrorIs(t, err, ErrRegenerationFailed)
	assert.NotErrorIs(t, err, ErrPipelineFailed)

	_, err = h.p.Regenerate(context.Background(), types.RegenerationRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGenerateChannelContent(t *testing.T) {
	h := newHarness(t)
	b := llmclient.FakeBrief("b1", "pricing")

	got, err := h.p.GenerateChannelContent(context.Background(), types.ChannelContentRequest{Brief: b, Channel: "LinkedIn"})
	require.NoError(t, err)
	assert.Equal(t, "b1", got.BriefID)
	assert.Equal(t, "linkedin", got.Channel)
	assert.NotEmpty(t, got.Content)

	_, err = h.p.GenerateChannelContent(context.Background(), types.ChannelContentRequest{Brief: b, Channel: "tiktok"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, ErrChannelContentFailed)
	assert.Equal(t, 1, h.fake.Calls())
}

func TestConcurrentInvocationsAreIndependent(t *testing.T) {
	h := newHarness(t)
	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			batch, err := h.p.GenerateBriefs(context.Background(), candidates(i%3+1), nil, nil)
			if assert.NoError(t, err) {
				assert.Equal(t, i%3+1, batch.EvaluatedCount)
				ids[i] = batch.RunID
			}
		}(i)
	}
	wg.Wait()
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateValidating, StateAwaitingCompletion))
	assert.False(t, CanTransition(StateSucceeded, StateFailed))
	assert.False(t, CanTransition(StateAggregating, StateValidating))
}
