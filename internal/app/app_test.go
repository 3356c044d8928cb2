package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-authoring/internal/services"
)

func TestNewOfflineSQLite(t *testing.T) {
	t.Setenv("CONTENT_CONFIG_FILE", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_FALLBACK_PROVIDER", "")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("OTEL_ENABLED", "false")

	a, err := New(context.Background(), Options{
		LogMode:    "test",
		SQLitePath: filepath.Join(t.TempDir(), "authoring.db"),
		Offline:    true,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Clients.Generator)
	e, err := a.Services.Authoring.CreateEntity(context.Background(), services.CreateEntityInput{Title: "Asthma"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content/"+e.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
