package llmclient

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryHint is the wait a backend advertised on a throttled or failed
// response. Retry middleware uses it as a floor for the next backoff.
type RetryHint struct {
	RetryAfter    time.Duration
	ResetRequests time.Duration
	ResetTokens   time.Duration
}

// Wait returns the longest advertised wait.
func (h RetryHint) Wait() time.Duration {
	return max(h.RetryAfter, h.ResetRequests, h.ResetTokens)
}

// ParseRetryHeaders reads retry-after (seconds or HTTP date) and the
// x-ratelimit-reset-* durations used by OpenAI-compatible backends.
func ParseRetryHeaders(h http.Header, now time.Time) (RetryHint, bool) {
	var out RetryHint
	found := false

	if v := strings.TrimSpace(h.Get("retry-after")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			out.RetryAfter = time.Duration(secs) * time.Second
			found = true
		} else if at, err := http.ParseTime(v); err == nil && at.After(now) {
			out.RetryAfter = at.Sub(now)
			found = true
		}
	}
	if v := strings.TrimSpace(h.Get("retry-after-ms")); v != "" && out.RetryAfter == 0 {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			out.RetryAfter = time.Duration(ms) * time.Millisecond
			found = true
		}
	}
	readDur := func(key string) (time.Duration, bool) {
		v := strings.TrimSpace(h.Get(key))
		if v == "" {
			return 0, false
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return 0, false
		}
		return d, true
	}
	if d, ok := readDur("x-ratelimit-reset-requests"); ok {
		out.ResetRequests = d
		found = true
	}
	if d, ok := readDur("x-ratelimit-reset-tokens"); ok {
		out.ResetTokens = d
		found = true
	}
	return out, found
}

func retryAfterFromResponse(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	hint, ok := ParseRetryHeaders(resp.Header, time.Now())
	if !ok {
		return 0
	}
	return hint.Wait()
}
