// Package webapi exposes the simulation core over a small JSON REST API.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crucible-sim/crucible/internal/analysis"
	"github.com/crucible-sim/crucible/internal/models"
	"github.com/crucible-sim/crucible/internal/store"
)

// Version is set at build time or defaults to dev.
var Version = "0.2.0"

// ScenarioGenerator produces scenario batches.
type ScenarioGenerator interface {
	Generate(ctx context.Context, teamSize int, domain string) ([]models.Scenario, error)
}

// Engine drives the conversation state machine.
type Engine interface {
	Start(ctx context.Context, teamSize int, domain string, sc models.Scenario) (*models.Record, error)
	SubmitTeamResponse(ctx context.Context, id, content string) (*models.Record, error)
	Finish(ctx context.Context, id string) (*models.Record, error)
}

// Analyzer scores finished simulations.
type Analyzer interface {
	Analyze(ctx context.Context, id string) (*models.Analysis, error)
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	scenarios ScenarioGenerator
	engine    Engine
	analyzer  Analyzer
	records   store.Store
}

// NewHandlers creates a new Handlers over the given components.
func NewHandlers(scenarios ScenarioGenerator, engine Engine, analyzer Analyzer, records store.Store) *Handlers {
	return &Handlers{scenarios: scenarios, engine: engine, analyzer: analyzer, records: records}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

// HandleGenerateScenarios returns a batch of candidate scenarios.
func (h *Handlers) HandleGenerateScenarios(w http.ResponseWriter, r *http.Request) {
	var req GenerateScenariosRequest
	if !decodeBody(w, r, &req) {
		return
	}

	scenarios, err := h.scenarios.Generate(r.Context(), req.TeamSize, req.Domain)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

// HandleStartSimulation creates a simulation from a chosen scenario.
func (h *Handlers) HandleStartSimulation(w http.ResponseWriter, r *http.Request) {
	var req StartSimulationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.engine.Start(r.Context(), req.TeamSize, req.Domain, req.Scenario)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StartSimulationResponse{
		SimulationID:  rec.ID,
		OpeningPrompt: rec.Transcript[0].Content,
	})
}

// HandleSubmitTurn appends a team response and returns the next host line.
func (h *Handlers) HandleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req SubmitTurnRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.engine.SubmitTeamResponse(r.Context(), id, req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitTurnResponse{
		NextHostLine: rec.Transcript[len(rec.Transcript)-1].Content,
	})
}

// HandleFinishSimulation marks a simulation completed.
func (h *Handlers) HandleFinishSimulation(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Finish(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FinishResponse{OK: true})
}

// HandleAnalyze returns the simulation's analysis, generating it on first
// call. Safe to call repeatedly.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	analysisResult, err := h.analyzer.Analyze(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResult)
}

// HandleGetSimulation returns the full record view.
func (h *Handlers) HandleGetSimulation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(rec))
}

// HandleListSimulations returns summaries of all simulations, newest first.
func (h *Handlers) HandleListSimulations(w http.ResponseWriter, _ *http.Request) {
	records, err := h.records.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summaries := make([]SimulationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, toSummary(rec))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("POST /api/scenarios/generate", h.HandleGenerateScenarios)
	mux.HandleFunc("GET /api/simulations", h.HandleListSimulations)
	mux.HandleFunc("POST /api/simulations", h.HandleStartSimulation)
	mux.HandleFunc("GET /api/simulations/{id}", h.HandleGetSimulation)
	mux.HandleFunc("POST /api/simulations/{id}/turns", h.HandleSubmitTurn)
	mux.HandleFunc("POST /api/simulations/{id}/finish", h.HandleFinishSimulation)
	mux.HandleFunc("POST /api/simulations/{id}/analysis", h.HandleAnalyze)
}

// CORSMiddleware wraps a handler with CORS headers. If allowedOrigins is
// empty, no CORS header is set (same-origin only).
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// decodeBody parses a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps core errors onto HTTP statuses: validation and
// insufficient-data failures are 400, unknown records 404, everything else
// (upstream transport, safety blocks, malformed model output) 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, analysis.ErrInsufficientData):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
