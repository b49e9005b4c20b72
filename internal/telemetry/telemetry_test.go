package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentpilot/internal/llm"
	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/runctx"
)

type collect struct {
	mu   sync.Mutex
	recs []Record
}

func (c *collect) Write(_ context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	return nil
}

func (c *collect) all() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.recs...)
}

func TestMulti(t *testing.T) {
	a, b := &collect{}, &collect{}
	boom := SinkFunc(func(context.Context, Record) error { return errors.New("boom") })

	err := Multi(a, nil, boom, b).Write(context.Background(), Record{RunID: "r"})
	assert.ErrorContains(t, err, "boom")
	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)

	assert.NoError(t, Multi(nil).Write(context.Background(), Record{}))
	assert.Same(t, a, Multi(a).(*collect))
}

func TestAsync_DropsWhenFullAndDrains(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	got := &collect{}
	slow := SinkFunc(func(ctx context.Context, rec Record) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return got.Write(ctx, rec)
	})

	a := NewAsync(slow, 1, nil)
	require.NoError(t, a.Write(context.Background(), Record{RunID: "1"}))
	<-entered
	require.NoError(t, a.Write(context.Background(), Record{RunID: "2"}))
	require.NoError(t, a.Write(context.Background(), Record{RunID: "3"}))
	assert.EqualValues(t, 1, a.Dropped())

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
	recs := got.all()
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].RunID)
	assert.Equal(t, "2", recs[1].RunID)

	require.NoError(t, a.Write(context.Background(), Record{RunID: "late"}))
	assert.EqualValues(t, 2, a.Dropped())
}

func TestMemorySink(t *testing.T) {
	m, err := NewMemorySink(2, 3)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Write(ctx, Record{RunID: "a", Attempt: i}))
	}
	recs, err := m.Read(ctx, "a")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 2, recs[0].Attempt)
	assert.False(t, recs[0].Timestamp.IsZero())
	assert.Equal(t, "unknown", recs[0].Stage)

	require.NoError(t, m.Write(ctx, Record{RunID: "b"}))
	require.NoError(t, m.Write(ctx, Record{RunID: "c"}))
	recs, err = m.Read(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, []string{"b", "c"}, m.Runs())
}

func TestJSONLSink_RoundTrip(t *testing.T) {
	s, err := NewJSONLSink(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, Record{RunID: "run/../1", Stage: "evaluateAndBrief", Kind: KindCall, PromptBytes: 10}))
	require.NoError(t, s.Write(ctx, Record{RunID: "run/../1", Stage: "evaluateAndBrief", Kind: KindOutcome, Error: "x"}))

	recs, err := s.Read(ctx, "run/../1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, KindCall, recs[0].Kind)
	assert.Equal(t, "x", recs[1].Error)
	assert.Equal(t, "run_.._1.jsonl", fileName("run/../1"))

	recs, err = s.Read(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestObjectKey(t *testing.T) {
	ts := time.Date(2026, 10, 18, 9, 30, 0, 5, time.UTC)
	key := ObjectKey(Record{RunID: "r1", Kind: KindCall, Stage: "regenerateOne", Timestamp: ts})
	assert.Equal(t, "r1/20261018T093000.000000005Z-call-regenerateOne.json", key)
}

func TestConstructorsValidate(t *testing.T) {
	_, err := NewS3Sink(S3Config{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewS3Sink(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")
	_, err = NewS3Sink(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
	s3, err := NewS3Sink(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s3.region)

	_, err = OpenPostgresSink(" ")
	assert.Error(t, err)
	_, err = DialNATSSink("", "")
	assert.Error(t, err)
	_, err = DialRedisSink("", 0)
	assert.Error(t, err)

	r, err := DialRedisSink("localhost:6379", 0)
	require.NoError(t, err)
	assert.EqualValues(t, defaultRedisMaxRecords, r.maxRecords)
	assert.Equal(t, "contentpilot:debug:a_b", redisKey("a b"))
	require.NoError(t, r.Close())

	n := NewNATSSink(nil, "")
	assert.Equal(t, DefaultNATSSubject+".run-1", n.Subject("run-1"))
}

func TestHub(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	only := h.Subscribe(ctx, "r1")
	all := h.Subscribe(ctx, "")
	assert.Equal(t, 2, h.Subscribers())

	require.NoError(t, h.Write(context.Background(), Record{RunID: "r2"}))
	require.NoError(t, h.Write(context.Background(), Record{RunID: "r1"}))

	assert.Equal(t, "r1", (<-only).RunID)
	assert.Equal(t, "r2", (<-all).RunID)
	assert.Equal(t, "r1", (<-all).RunID)

	cancel()
	assert.Eventually(t, func() bool { return h.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-only
	assert.False(t, open)
}

func TestRecorder_After(t *testing.T) {
	sink := &collect{}
	r := NewRecorder(sink, RecorderOptions{CostPer1KTokens: 2, MaxBodyBytes: 64})

	r.After(context.Background(), llm.Call{
		RunID:     "run",
		Op:        "generateBriefs",
		Stage:     "evaluateAndBrief",
		Attempt:   2,
		Provider:  "Fake",
		Prompt:    "key sk-abcdefghijklmnopqrstuvwx " + strings.Repeat("p", 200),
		Response:  "{}",
		Usage:     llmclient.Completion{InputTokens: 400, OutputTokens: 100},
		StartedAt: time.Now(),
		Duration:  1500 * time.Millisecond,
		Err:       errors.New("backend unavailable"),
	})

	recs := sink.all()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, KindCall, rec.Kind)
	assert.Equal(t, int64(1500), rec.DurationMs)
	assert.Equal(t, 500, rec.Tokens)
	assert.InDelta(t, 1.0, rec.Cost, 1e-9)
	assert.Greater(t, rec.PromptBytes, 200)
	assert.Equal(t, 2, rec.ResponseBytes)
	assert.NotContains(t, rec.Request, "sk-abcdefghijklmnopqrstuvwx")
	assert.Contains(t, rec.Request, "truncated")
	assert.Equal(t, "backend unavailable", rec.Error)
}

func TestRecorder_TransitionUsesRunContext(t *testing.T) {
	sink := &collect{}
	r := NewRecorder(sink, RecorderOptions{})
	ctx := runctx.WithRun(context.Background(), runctx.Run{RunID: "run-9", Op: "regenerate"})
	ctx = runctx.WithStage(ctx, "regenerateOne")

	r.Transition(ctx, "Prompting", nil)
	r.Outcome(ctx, "Failed", time.Second, errors.New("nope"), map[string]any{"retryable": false})
	r.External(ctx, Record{RunID: "ext", Stage: "frontend", Tokens: 1000})

	recs := sink.all()
	require.Len(t, recs, 3)
	assert.Equal(t, "run-9", recs[0].RunID)
	assert.Equal(t, "regenerateOne", recs[0].Stage)
	assert.Equal(t, "Prompting", recs[0].State)
	assert.Equal(t, KindOutcome, recs[1].Kind)
	assert.Equal(t, "nope", recs[1].Error)
	assert.Equal(t, KindExternal, recs[2].Kind)
	assert.Zero(t, recs[2].Cost)
}

func TestRecorder_ExternalRedactsFields(t *testing.T) {
	sink := &collect{}
	r := NewRecorder(sink, RecorderOptions{CostPer1KTokens: 0.5})
	r.External(context.Background(), Record{
		RunID:  "ext",
		Tokens: 2000,
		Fields: map[string]any{"screenshot": "data:image/png;base64,iVBORw0KGgo=", "page": "pricing"},
	})
	recs := sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, "[REDACTED media]", recs[0].Fields["screenshot"])
	assert.Equal(t, "pricing", recs[0].Fields["page"])
	assert.InDelta(t, 1.0, recs[0].Cost, 1e-9)
}
