package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentpilot/internal/gateway/handler"
	"contentpilot/internal/llm"
	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/pipeline"
	"contentpilot/internal/telemetry"
)

func newTestMux(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem, err := telemetry.NewMemorySink(8, 64)
	require.NoError(t, err)
	rec := telemetry.NewRecorder(mem, telemetry.RecorderOptions{Logger: logger})
	p := pipeline.New(llm.NewCompleter(llmclient.NewFakeClient(), logger, rec), rec, logger, pipeline.DefaultConfig())
	return NewMux(handler.NewBriefsHandler(p, logger), handler.NewDebugHandler(rec, mem, nil, logger), "*", logger)
}

func TestRoutes(t *testing.T) {
	srv := httptest.NewServer(newTestMux(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Post(srv.URL+"/v1/briefs", "application/json",
		strings.NewReader(`{"items":[{"id":"a","title":"Three word title here"}]}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Run-Id"))

	resp, err = http.Get(srv.URL + "/debug/stream")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
