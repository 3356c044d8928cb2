package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-authoring/internal/app"
	"github.com/yungbote/neurobridge-authoring/internal/services"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestUnwrapCommand(t *testing.T) {
	out, errOut, err := execute(t, "```json\n{\"full_text\": \"Line1\\nLine2\"}\n```", "unwrap")
	require.NoError(t, err)
	assert.Equal(t, "Line1\nLine2\n", out)
	assert.Equal(t, "strategy: json\n", errOut)
}

func TestResolveCommand(t *testing.T) {
	out, _, err := execute(t, `{"high_yield": "- A", "confidence": "high"}`, "resolve", "--mode", "high-yield")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "- A", res["text"])
	assert.Equal(t, "high_yield", res["body_variant_key"])

	_, _, err = execute(t, `{"other": 1}`, "resolve", "--mode", "fulltext")
	assert.ErrorContains(t, err, "missing payload")

	_, _, err = execute(t, `{}`, "resolve", "--mode", "poem")
	assert.ErrorContains(t, err, "unknown generation mode")
}

func TestVersionsCommands(t *testing.T) {
	t.Setenv("CONTENT_CONFIG_FILE", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_FALLBACK_PROVIDER", "")
	dbPath := filepath.Join(t.TempDir(), "authoring.db")
	ctx := context.Background()

	a, err := app.New(ctx, app.Options{LogMode: "test", SQLitePath: dbPath, Offline: true})
	require.NoError(t, err)
	e, err := a.Services.Authoring.CreateEntity(ctx, services.CreateEntityInput{Title: "Asthma", FullText: "v1"})
	require.NoError(t, err)
	first, err := a.Services.Authoring.Save(ctx, e, "first")
	require.NoError(t, err)
	e.FullText = "v2"
	_, err = a.Services.Authoring.Save(ctx, e, "second")
	require.NoError(t, err)
	a.Close()

	out, _, err := execute(t, "", "--sqlite", dbPath, "versions", "list", e.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "first")

	out, _, err = execute(t, "", "--sqlite", dbPath, "versions", "restore", e.ID.String(), first.Version.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Restored version 1")

	_, _, err = execute(t, "", "--sqlite", dbPath, "versions", "list", "not-a-uuid")
	assert.Error(t, err)
}
