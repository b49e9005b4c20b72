package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	aopt "github.com/anthropics/anthropic-sdk-go/option"
	oopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"contentpilot/internal/prompt"
	"contentpilot/internal/types"
)

func TestStatusKind(t *testing.T) {
	assert.Nil(t, StatusKind(200))
	assert.Equal(t, ErrBackendUnavailable, StatusKind(408))
	assert.Equal(t, ErrBackendUnavailable, StatusKind(429))
	assert.Equal(t, ErrBackendUnavailable, StatusKind(503))
	assert.Equal(t, ErrBackendRejected, StatusKind(400))
	assert.Equal(t, ErrBackendRejected, StatusKind(403))
}

func TestClassify(t *testing.T) {
	err := Classify("p", genai.APIError{Code: 503, Message: "overloaded"})
	assert.True(t, Retryable(err))

	err = Classify("p", genai.APIError{Code: 400, Message: "bad"})
	assert.ErrorIs(t, err, ErrBackendRejected)
	assert.False(t, Retryable(err))

	err = Classify("p", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	already := Rejected("p", 401, errors.New("no"))
	assert.Same(t, already, Classify("other", already))
	assert.Nil(t, Classify("p", nil))
}

func TestEmptyIsRejected(t *testing.T) {
	err := Empty("p")
	assert.ErrorIs(t, err, ErrBackendEmptyResponse)
	assert.ErrorIs(t, err, ErrBackendRejected)
	assert.False(t, Retryable(err))
	assert.Equal(t, ErrBackendEmptyResponse, KindOf(err))
}

func TestCountTokens(t *testing.T) {
	assert.Zero(t, CountTokens("   "))
	assert.Equal(t, 4, CountTokens("one two three"))
	assert.Equal(t, 25, CountTokens(strings.Repeat("a", 100)))
}

func openAIServer(t *testing.T, status int, body string, hdr map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		for k, v := range hdr {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := openAIServer(t, 200, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"ok\":true}"}}],
		"usage":{"prompt_tokens":11,"completion_tokens":3,"total_tokens":14}}`, nil)

	c := NewOpenAIClient("k", "m", oopt.WithBaseURL(srv.URL+"/"))
	got, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got.Text)
	assert.Equal(t, 11, got.InputTokens)
	assert.Equal(t, 3, got.OutputTokens)
	assert.Equal(t, "OpenAI:m", c.Name())
}

func TestOpenAIClient_StatusClassification(t *testing.T) {
	srv := openAIServer(t, 429, `{"error":{"message":"slow down","type":"rate_limit"}}`, map[string]string{"retry-after": "3"})
	_, err := NewOpenAIClient("k", "m", oopt.WithBaseURL(srv.URL+"/")).Complete(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, Retryable(err))
	assert.Equal(t, 3*time.Second, RetryAfterOf(err))

	srv = openAIServer(t, 400, `{"error":{"message":"bad prompt","type":"invalid_request_error"}}`, nil)
	_, err = NewGroqClient("k", "m", oopt.WithBaseURL(srv.URL+"/")).Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBackendRejected)

	srv = openAIServer(t, 200, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)
	_, err = NewOpenAIClient("k", "m", oopt.WithBaseURL(srv.URL+"/")).Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBackendEmptyResponse)
}

func TestAnthropicClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m1","type":"message","role":"assistant","model":"claude",
			"content":[{"type":"text","text":"{\"a\":1}"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":7,"output_tokens":2}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "claude", aopt.WithBaseURL(srv.URL+"/"))
	got, err := c.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got.Text)
	assert.Equal(t, 7, got.InputTokens)
}

func TestAnthropicClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicClient("k", "claude", aopt.WithBaseURL(srv.URL+"/")).Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestFakeClient_ScriptThenSynthesize(t *testing.T) {
	f := NewFakeClient(
		FakeResponse{Err: Unavailable("fake", errors.New("boom"))},
		FakeResponse{Text: "  "},
	)
	_, err := f.Complete(context.Background(), "p1")
	assert.True(t, Retryable(err))
	_, err = f.Complete(context.Background(), "p2")
	assert.ErrorIs(t, err, ErrBackendEmptyResponse)

	items := []types.CandidateItem{
		{ID: "a", Title: "Churn rates for small SaaS teams"},
		{ID: "b", Title: "Hot take"},
	}
	p, err := prompt.EvaluateAndBrief(items, types.BusinessContext{})
	require.NoError(t, err)
	got, err := f.Complete(context.Background(), p)
	require.NoError(t, err)

	var batch types.BatchResult
	require.NoError(t, json.Unmarshal([]byte(got.Text), &batch))
	require.Len(t, batch.Results, 2)
	assert.True(t, batch.Results[0].Viable)
	assert.False(t, batch.Results[1].Viable)
	assert.NotEmpty(t, batch.Results[1].RejectionReason)
	assert.Equal(t, 3, f.Calls())
}

func TestFakeClient_Regenerate(t *testing.T) {
	brief := FakeBrief("a-brief-1", "pricing")
	p, err := prompt.RegenerateOne(brief, "more casual tone", types.BusinessContext{})
	require.NoError(t, err)

	got, err := NewFakeClient().Complete(context.Background(), p)
	require.NoError(t, err)
	var out types.ContentBrief
	require.NoError(t, json.Unmarshal([]byte(got.Text), &out))
	assert.Equal(t, brief.BriefID, out.BriefID)
	assert.Equal(t, brief.TargetChannels, out.TargetChannels)
	assert.NotEqual(t, brief.CreationPrompts, out.CreationPrompts)
}

func TestFakeClient_HonoursCancel(t *testing.T) {
	f := NewFakeClient(FakeResponse{Text: "{}", Delay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Complete(ctx, "x")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"anthropic", "fake", "gemini", "groq", "openai"}, c.Providers())

	cli, err := c.New(context.Background(), ProviderConfig{Provider: "FAKE"})
	require.NoError(t, err)
	assert.Equal(t, "Fake", cli.Name())

	_, err = c.New(context.Background(), ProviderConfig{Provider: "openai"})
	assert.ErrorContains(t, err, "API key")

	_, err = c.New(context.Background(), ProviderConfig{Provider: "nope"})
	assert.ErrorContains(t, err, "unknown provider")

	cli, err = c.New(context.Background(), ProviderConfig{Provider: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "Anthropic:"+DefaultAnthropicModel, cli.Name())
}
