// Package analysis scores a finished simulation transcript along fixed
// behavioral dimensions.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/crucible-sim/crucible/internal/genai"
	"github.com/crucible-sim/crucible/internal/models"
	"github.com/crucible-sim/crucible/internal/store"
)

// ErrInsufficientData is returned when analysis is requested before at least
// one full host/team exchange exists.
var ErrInsufficientData = errors.New("transcript too short to analyze")

const analystSystemInstruction = `You are an organizational psychologist assessing how a team
handled a decision simulation. You evaluate the team's responses only, not the
host's lines. You are specific, evidence-based, and constructive.`

// generationClient is the slice of the generation client this package needs.
type generationClient interface {
	GenerateJSON(ctx context.Context, system, prompt string, schema *genai.Schema, cfg genai.GenerateConfig, out any) error
}

// Analyzer produces and persists at most one analysis per simulation.
type Analyzer struct {
	store  store.Store
	client generationClient
	cfg    genai.GenerateConfig
	logger *slog.Logger

	// group collapses concurrent Analyze calls for the same record so a
	// single upstream generation call is issued.
	group singleflight.Group
}

// NewAnalyzer creates an Analyzer over the given store and client.
func NewAnalyzer(st store.Store, client generationClient, cfg genai.GenerateConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{store: st, client: client, cfg: cfg, logger: logger}
}

// resultSchema constrains the analysis response. Every field, including all
// six heatmap metrics, is required.
func resultSchema() *genai.Schema {
	heatmapProps := make(map[string]*genai.Schema, len(models.HeatmapMetrics()))
	for _, metric := range models.HeatmapMetrics() {
		heatmapProps[metric] = &genai.Schema{Type: genai.TypeNumber, Description: "Score from 1 to 10"}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overallScore": {Type: genai.TypeNumber, Description: "Overall team score from 1 to 100"},
			"keyStrengths": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: 1,
			},
			"growthAreas": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: 1,
			},
			"actionableFeedback": {Type: genai.TypeString},
			"heatmapData": {
				Type:       genai.TypeObject,
				Properties: heatmapProps,
				Required:   models.HeatmapMetrics(),
			},
		},
		Required: []string{"overallScore", "keyStrengths", "growthAreas", "actionableFeedback", "heatmapData"},
	}
}

// analysisWire is the decoded shape of the model's analysis response.
type analysisWire struct {
	OverallScore       float64            `mapstructure:"overallScore"`
	KeyStrengths       []string           `mapstructure:"keyStrengths"`
	GrowthAreas        []string           `mapstructure:"growthAreas"`
	ActionableFeedback string             `mapstructure:"actionableFeedback"`
	HeatmapData        map[string]float64 `mapstructure:"heatmapData"`
}

// Analyze returns the analysis for a simulation, generating and persisting
// it on first call. Subsequent calls return the stored analysis unchanged
// without spending another generation call.
func (a *Analyzer) Analyze(ctx context.Context, id string) (*models.Analysis, error) {
	v, err, _ := a.group.Do(id, func() (any, error) {
		return a.analyze(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Analysis), nil
}

func (a *Analyzer) analyze(ctx context.Context, id string) (*models.Analysis, error) {
	rec, err := a.store.Get(id)
	if err != nil {
		return nil, err
	}

	// Idempotent short-circuit: an existing analysis is returned as stored.
	if rec.Analysis != nil {
		return rec.Analysis.Clone(), nil
	}

	if len(rec.Transcript) < 2 {
		return nil, fmt.Errorf("%w: need at least one full exchange, have %d entries", ErrInsufficientData, len(rec.Transcript))
	}

	var result analysisWire
	err = a.client.GenerateJSON(ctx, analystSystemInstruction, buildAnalysisPrompt(rec), resultSchema(), a.cfg, &result)
	if err != nil {
		return nil, fmt.Errorf("generating analysis: %w", err)
	}

	analysis := &models.Analysis{
		OverallScore:       result.OverallScore,
		KeyStrengths:       result.KeyStrengths,
		GrowthAreas:        result.GrowthAreas,
		ActionableFeedback: result.ActionableFeedback,
		HeatmapData:        result.HeatmapData,
	}
	a.warnOutOfRange(id, analysis)

	rec.Analysis = analysis
	rec.Status = models.StatusAnalyzed
	if err := a.store.Update(rec); err != nil {
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}

	a.logger.Info("simulation analyzed", "simulation", id, "overallScore", analysis.OverallScore)
	return analysis.Clone(), nil
}

// warnOutOfRange logs scores outside their documented ranges. Values pass
// through unmodified; the bounds are not enforced here.
func (a *Analyzer) warnOutOfRange(id string, analysis *models.Analysis) {
	if analysis.OverallScore < 1 || analysis.OverallScore > 100 {
		a.logger.Warn("overall score outside [1,100]", "simulation", id, "score", analysis.OverallScore)
	}
	for metric, value := range analysis.HeatmapData {
		if value < 1 || value > 10 {
			a.logger.Warn("heatmap value outside [1,10]", "simulation", id, "metric", metric, "value", value)
		}
	}
}

// buildAnalysisPrompt embeds the full role-labeled transcript.
func buildAnalysisPrompt(rec *models.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A team of %d people in the %s domain completed a decision simulation.\n\n", rec.TeamSize, rec.Domain)
	fmt.Fprintf(&b, "Scenario: %s\nKey decision: %s\n\n", rec.Scenario.Title, rec.Scenario.KeyDecision)

	b.WriteString("Full transcript:\n")
	for _, entry := range rec.Transcript {
		label := "Host"
		if entry.Role == models.RoleTeam {
			label = "Team"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, entry.Content)
	}

	fmt.Fprintf(&b,
		"\nScore the team's performance. Provide an overall score from 1 to 100, "+
			"key strengths, growth areas, one paragraph of actionable feedback, and a score "+
			"from 1 to 10 for each of these dimensions: %s.",
		strings.Join(models.HeatmapMetrics(), ", "))
	return b.String()
}
