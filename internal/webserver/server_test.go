package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucible-sim/crucible/internal/models"
	"github.com/crucible-sim/crucible/internal/store"
	"github.com/crucible-sim/crucible/internal/webapi"
)

type stubCore struct{}

func (stubCore) Generate(context.Context, int, string) ([]models.Scenario, error) {
	return nil, nil
}

func (stubCore) Start(context.Context, int, string, models.Scenario) (*models.Record, error) {
	return nil, store.ErrNotFound
}

func (stubCore) SubmitTeamResponse(context.Context, string, string) (*models.Record, error) {
	return nil, store.ErrNotFound
}

func (stubCore) Finish(context.Context, string) (*models.Record, error) {
	return nil, store.ErrNotFound
}

func (stubCore) Analyze(context.Context, string) (*models.Analysis, error) {
	return nil, store.ErrNotFound
}

func newTestServer(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	core := stubCore{}
	return New(cfg, webapi.NewHandlers(core, core, core, st)).Handler()
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownSimulationReturns404(t *testing.T) {
	handler := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/simulations/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSAppliedWhenConfigured(t *testing.T) {
	handler := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightRequest(t *testing.T) {
	handler := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/simulations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
