package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos"
	"github.com/yungbote/neurobridge-authoring/internal/data/repos/testutil"
	httpH "github.com/yungbote/neurobridge-authoring/internal/http/handlers"
	"github.com/yungbote/neurobridge-authoring/internal/observability"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/services"
)

type apiFixture struct {
	engine *gin.Engine
}

func newAPIFixture(t *testing.T, gen llm.Generator) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	lg := testutil.Logger(t)
	svc := services.NewAuthoringService(db, lg, services.AuthoringDeps{
		Entities:        repos.NewContentEntityRepo(db, lg),
		Versions:        repos.NewContentVersionRepo(db, lg),
		Generator:       gen,
		PrimaryProvider: "openai",
	})
	return &apiFixture{engine: NewRouter(RouterConfig{
		Log:            lg,
		Metrics:        observability.New(),
		ContentHandler: httpH.NewContentHandler(lg, svc),
		HealthHandler:  httpH.NewHealthHandler(db),
	})}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["code"].(string)
	return s
}

func TestContentLifecycle(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (any, error) {
		return map[string]any{"content": "```json\n{\"high_yield\": \"- A\"}\n```", "model": "gpt-4o-mini"}, nil
	})
	f := newAPIFixture(t, gen)

	code, body := f.do(t, nethttp.MethodPost, "/api/content", map[string]any{"title": "Heart failure", "full_text": "Body"})
	require.Equal(t, nethttp.StatusCreated, code)
	id := body["entity"].(map[string]any)["id"].(string)

	code, body = f.do(t, nethttp.MethodPatch, "/api/content/"+id, map[string]any{"full_text": "Edited", "change_reason": "typo"})
	require.Equal(t, nethttp.StatusOK, code)
	firstVersion := body["version"].(map[string]any)["id"].(string)
	assert.Equal(t, "typo", body["version"].(map[string]any)["change_reason"])

	code, body = f.do(t, nethttp.MethodPost, "/api/content/"+id+"/generate", map[string]any{"mode": "high-yield"})
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "- A", body["entity"].(map[string]any)["high_yield"])
	assert.Equal(t, "Edited", body["entity"].(map[string]any)["full_text"])

	code, body = f.do(t, nethttp.MethodGet, "/api/content/"+id+"/versions", nil)
	require.Equal(t, nethttp.StatusOK, code)
	assert.Len(t, body["versions"], 2)

	code, body = f.do(t, nethttp.MethodPost, "/api/content/"+id+"/versions/"+firstVersion+"/restore", nil)
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "", body["entity"].(map[string]any)["high_yield"])
}

func TestPatchKeepsOmittedFields(t *testing.T) {
	f := newAPIFixture(t, nil)

	code, body := f.do(t, nethttp.MethodPost, "/api/content", map[string]any{"title": "Heart failure", "full_text": "Body"})
	require.Equal(t, nethttp.StatusCreated, code)
	id := body["entity"].(map[string]any)["id"].(string)

	code, _ = f.do(t, nethttp.MethodPost, "/api/content/"+id+"/apply", map[string]any{
		"mode": "high_yield",
		"raw":  map[string]any{"high_yield": "- A"},
	})
	require.Equal(t, nethttp.StatusOK, code)

	code, body = f.do(t, nethttp.MethodPatch, "/api/content/"+id, map[string]any{"full_text": "Edited"})
	require.Equal(t, nethttp.StatusOK, code)
	entity := body["entity"].(map[string]any)
	assert.Equal(t, "Edited", entity["full_text"])
	assert.Equal(t, "- A", entity["high_yield"])
	assert.Equal(t, "Heart failure", entity["title"])

	code, body = f.do(t, nethttp.MethodPatch, "/api/content/"+id, map[string]any{"title": ""})
	assert.Equal(t, nethttp.StatusPreconditionFailed, code)
	assert.Equal(t, "precondition_failed", errorCode(body))
}

func TestErrorMapping(t *testing.T) {
	f := newAPIFixture(t, nil)

	code, body := f.do(t, nethttp.MethodPost, "/api/content", map[string]any{"title": "Sepsis"})
	require.Equal(t, nethttp.StatusCreated, code)
	id := body["entity"].(map[string]any)["id"].(string)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"bad id", nethttp.MethodGet, "/api/content/nope", nil, nethttp.StatusBadRequest, "invalid_request"},
		{"not found", nethttp.MethodGet, "/api/content/7f9c4d1e-8a2b-4c3d-9e0f-1a2b3c4d5e6f", nil, nethttp.StatusNotFound, "not_found"},
		{"unknown mode", nethttp.MethodPost, "/api/content/" + id + "/generate", map[string]any{"mode": "poem"}, nethttp.StatusBadRequest, "unknown_mode"},
		{"precondition", nethttp.MethodPost, "/api/content/" + id + "/generate", map[string]any{"mode": "deep_dive"}, nethttp.StatusPreconditionFailed, "precondition_failed"},
		{"no generator", nethttp.MethodPost, "/api/content/" + id + "/generate", map[string]any{"mode": "fulltext"}, nethttp.StatusBadGateway, "generation_failed"},
		{"missing payload", nethttp.MethodPost, "/api/content/" + id + "/apply", map[string]any{"mode": "fulltext", "raw": map[string]any{"other": "x"}}, nethttp.StatusUnprocessableEntity, "missing_payload"},
		{"bad transition", nethttp.MethodPost, "/api/content/" + id + "/status", map[string]any{"status": "published"}, nethttp.StatusConflict, "invalid_transition"},
		{"bad status filter", nethttp.MethodGet, "/api/content?status=archived", nil, nethttp.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, errorCode(body))
		})
	}
}

func TestHealthAndModes(t *testing.T) {
	f := newAPIFixture(t, nil)

	code, _ := f.do(t, nethttp.MethodGet, "/healthcheck", nil)
	assert.Equal(t, nethttp.StatusOK, code)

	code, body := f.do(t, nethttp.MethodGet, "/api/modes", nil)
	require.Equal(t, nethttp.StatusOK, code)
	assert.Len(t, body["modes"], 8)
}
