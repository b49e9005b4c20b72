package llmclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryHeaders_OpenAIFormat(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2")
	h.Set("x-ratelimit-reset-requests", "2m59.56s")
	h.Set("x-ratelimit-reset-tokens", "7.66s")

	got, ok := ParseRetryHeaders(h, time.Now())
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, got.RetryAfter)
	assert.Equal(t, 2*time.Minute+59*time.Second+560*time.Millisecond, got.ResetRequests)
	assert.Equal(t, 7*time.Second+660*time.Millisecond, got.ResetTokens)
	assert.Equal(t, got.ResetRequests, got.Wait())
}

func TestParseRetryHeaders_HTTPDate(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := http.Header{}
	h.Set("Retry-After", now.Add(30*time.Second).Format(http.TimeFormat))

	got, ok := ParseRetryHeaders(h, now)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, got.RetryAfter)
}

func TestParseRetryHeaders_Milliseconds(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after-ms", "1500")
	got, ok := ParseRetryHeaders(h, time.Now())
	require.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, got.Wait())
}

func TestParseRetryHeaders_None(t *testing.T) {
	_, ok := ParseRetryHeaders(http.Header{"X-Other": {"1"}}, time.Now())
	assert.False(t, ok)
	assert.Zero(t, retryAfterFromResponse(nil))
}
