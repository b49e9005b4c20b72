package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/types"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "fake")
	t.Setenv("PIPELINE_POLICY_FILE", "")
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerate_Stdin(t *testing.T) {
	out, err := execute(t, `{"items":[{"id":"a","title":"Why founders rewrite pricing pages"},{"id":"b","title":"lol"}]}`, "generate", "--compact")
	require.NoError(t, err)

	var batch types.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, 2, batch.EvaluatedCount)
	assert.Equal(t, 1, batch.ViableCount)
	assert.False(t, strings.Contains(strings.TrimSpace(out), "\n"))
}

func TestRegenerate_FileInAndOut(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "req.json")
	outPath := filepath.Join(dir, "out.json")
	req, err := json.Marshal(types.RegenerationRequest{TargetBrief: llmclient.FakeBrief("x-brief-1", "retention"), VariationRequest: "punchier"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, req, 0o644))

	stdout, err := execute(t, "", "regenerate", "--input", in, "--output", outPath, "--debug-dir", filepath.Join(dir, "debug"))
	require.NoError(t, err)
	assert.Empty(t, stdout)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var brief types.ContentBrief
	require.NoError(t, json.Unmarshal(raw, &brief))
	assert.Equal(t, "x-brief-1", brief.BriefID)

	entries, err := os.ReadDir(filepath.Join(dir, "debug"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestChannel(t *testing.T) {
	req, err := json.Marshal(types.ChannelContentRequest{Brief: llmclient.FakeBrief("x-brief-1", "retention"), Channel: "linkedin"})
	require.NoError(t, err)
	out, err := execute(t, string(req), "channel")
	require.NoError(t, err)
	var cc types.ChannelContent
	require.NoError(t, json.Unmarshal([]byte(out), &cc))
	assert.Equal(t, "linkedin", cc.Channel)
}

func TestErrors(t *testing.T) {
	_, err := execute(t, `{`, "generate")
	assert.ErrorContains(t, err, "decode input")

	_, err = execute(t, `{"items":[]}`, "generate")
	assert.Error(t, err)

	_, err = execute(t, `{}`, "generate", "--provider", "nope")
	assert.ErrorContains(t, err, "unknown provider")
}
