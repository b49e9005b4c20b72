package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentpilot/internal/gateway/config"
	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/pipeline"
	"contentpilot/internal/types"
)

func testConfig(t *testing.T, sinks ...string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:       ":0",
		CORSOrigin: "*",
		LLM:        llmclient.ProviderConfig{Provider: "fake"},
		Pipeline:   pipeline.DefaultConfig(),
		Debug: config.DebugConfig{
			Sinks:    sinks,
			JSONLDir: t.TempDir(),
		},
	}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBuild_EndToEnd(t *testing.T) {
	cfg := testConfig(t, "memory", "jsonl")
	a, err := Build(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/briefs", "application/json", strings.NewReader(`{
		"items": [{"id": "a", "title": "Onboarding emails that actually convert"}],
		"userInput": {"companyName": "Acme"}
	}`))
	require.NoError(t, err)
	var batch types.BatchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batch))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, batch.ViableCount)

	resp, err = http.Get(srv.URL + "/debug/records?run_id=" + batch.RunID)
	require.NoError(t, err)
	var out struct {
		Records []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.NotEmpty(t, out.Records)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))

	_, err = os.Stat(filepath.Join(cfg.Debug.JSONLDir, batch.RunID+".jsonl"))
	assert.NoError(t, err, "async jsonl sink is drained on shutdown")
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.LLM = llmclient.ProviderConfig{Provider: "openai"}
	_, err := Build(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "API key")

	cfg = testConfig(t, "s3")
	_, err = Build(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "s3 endpoint is required")
}

func TestInitSinks_ReaderFallback(t *testing.T) {
	ds, err := initSinks(config.DebugConfig{Sinks: []string{"jsonl"}, JSONLDir: t.TempDir()}, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, ds.reader)
	assert.NotNil(t, ds.hub)
	require.NoError(t, ds.close(context.Background()))

	ds, err = initSinks(config.DebugConfig{}, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, ds.reader)
	assert.NoError(t, ds.close(context.Background()))
}
