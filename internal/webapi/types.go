package webapi

import (
	"time"

	"github.com/crucible-sim/crucible/internal/models"
)

// GenerateScenariosRequest is the body of POST /api/scenarios/generate.
type GenerateScenariosRequest struct {
	TeamSize int    `json:"teamSize"`
	Domain   string `json:"domain"`
}

// StartSimulationRequest is the body of POST /api/simulations.
type StartSimulationRequest struct {
	TeamSize int             `json:"teamSize"`
	Domain   string          `json:"domain"`
	Scenario models.Scenario `json:"scenario"`
}

// StartSimulationResponse returns the new simulation and its opening line.
type StartSimulationResponse struct {
	SimulationID  string `json:"simulationId"`
	OpeningPrompt string `json:"openingPrompt"`
}

// SubmitTurnRequest is the body of POST /api/simulations/{id}/turns.
type SubmitTurnRequest struct {
	Content string `json:"content"`
}

// SubmitTurnResponse returns the host's reply to a submitted turn.
type SubmitTurnResponse struct {
	NextHostLine string `json:"nextHostLine"`
}

// FinishResponse acknowledges POST /api/simulations/{id}/finish.
type FinishResponse struct {
	OK bool `json:"ok"`
}

// TranscriptEntryView is a transcript entry as shown to clients. The stored
// role "team" is renamed "user" for display.
type TranscriptEntryView struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// SimulationSummary is one element of the GET /api/simulations list.
type SimulationSummary struct {
	ID            string        `json:"id"`
	TeamSize      int           `json:"teamSize"`
	Domain        string        `json:"domain"`
	ScenarioTitle string        `json:"scenarioTitle"`
	Status        models.Status `json:"status"`
	Turns         int           `json:"turns"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// SimulationDetail is the full record view for GET /api/simulations/{id}.
type SimulationDetail struct {
	ID         string                `json:"id"`
	TeamSize   int                   `json:"teamSize"`
	Domain     string                `json:"domain"`
	Scenario   models.Scenario       `json:"scenario"`
	Status     models.Status         `json:"status"`
	Transcript []TranscriptEntryView `json:"transcript"`
	Analysis   *models.Analysis      `json:"analysis,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func toSummary(rec *models.Record) SimulationSummary {
	return SimulationSummary{
		ID:            rec.ID,
		TeamSize:      rec.TeamSize,
		Domain:        rec.Domain,
		ScenarioTitle: rec.Scenario.Title,
		Status:        rec.Status,
		Turns:         len(rec.Transcript),
		CreatedAt:     rec.CreatedAt,
	}
}

func toDetail(rec *models.Record) *SimulationDetail {
	detail := &SimulationDetail{
		ID:         rec.ID,
		TeamSize:   rec.TeamSize,
		Domain:     rec.Domain,
		Scenario:   rec.Scenario,
		Status:     rec.Status,
		Transcript: make([]TranscriptEntryView, 0, len(rec.Transcript)),
		Analysis:   rec.Analysis,
		CreatedAt:  rec.CreatedAt,
	}
	for _, entry := range rec.Transcript {
		role := string(entry.Role)
		if entry.Role == models.RoleTeam {
			role = "user"
		}
		detail.Transcript = append(detail.Transcript, TranscriptEntryView{
			Role:      role,
			Content:   entry.Content,
			CreatedAt: entry.CreatedAt,
		})
	}
	return detail
}
