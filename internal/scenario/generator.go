// Package scenario produces candidate dilemma scenarios for a given team
// size and domain.
package scenario

import (
	"context"
	"fmt"

	"github.com/crucible-sim/crucible/internal/genai"
	"github.com/crucible-sim/crucible/internal/models"
)

// BatchSize is the number of scenarios produced per generation call. The
// batch is all-or-nothing: a response with any other count is rejected whole.
const BatchSize = 10

const systemInstruction = `You are a scenario designer for team decision simulations.
You write realistic, high-stakes dilemma scenarios with no easy right answer.
Every scenario forces a genuine trade-off between defensible options.`

// generationClient is the slice of the generation client this package needs.
type generationClient interface {
	GenerateJSON(ctx context.Context, system, prompt string, schema *genai.Schema, cfg genai.GenerateConfig, out any) error
}

// Generator builds scenario batches through the structured generation client.
type Generator struct {
	client generationClient
	cfg    genai.GenerateConfig
}

// NewGenerator creates a Generator using the given client and generation
// parameters.
func NewGenerator(client generationClient, cfg genai.GenerateConfig) *Generator {
	return &Generator{client: client, cfg: cfg}
}

// batchSchema constrains the response to exactly BatchSize scenario objects,
// each with all three fields present.
func batchSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":       {Type: genai.TypeString, Description: "Short scenario title"},
				"description": {Type: genai.TypeString, Description: "The situation the team faces"},
				"keyDecision": {Type: genai.TypeString, Description: "The central decision with no easy answer"},
			},
			Required: []string{"title", "description", "keyDecision"},
		},
		MinItems: BatchSize,
		MaxItems: BatchSize,
	}
}

// Generate returns exactly BatchSize scenarios for the given team size and
// domain. Input validation is rejected before any network call.
func (g *Generator) Generate(ctx context.Context, teamSize int, domain string) ([]models.Scenario, error) {
	if teamSize <= 0 {
		return nil, fmt.Errorf("%w: team size must be positive, got %d", models.ErrInvalidInput, teamSize)
	}
	if domain == "" {
		return nil, fmt.Errorf("%w: domain must not be empty", models.ErrInvalidInput)
	}

	prompt := fmt.Sprintf(
		"Generate exactly %d decision dilemma scenarios for a team of %d people working in the %s domain. "+
			"Each scenario needs a title, a description of the situation, and the key decision the team must make. "+
			"None of them may have an obviously correct answer.",
		BatchSize, teamSize, domain)

	var scenarios []models.Scenario
	if err := g.client.GenerateJSON(ctx, systemInstruction, prompt, batchSchema(), g.cfg, &scenarios); err != nil {
		return nil, fmt.Errorf("generating scenarios: %w", err)
	}

	// The schema enforces count and presence; emptiness still needs a check.
	if len(scenarios) != BatchSize {
		return nil, &genai.MalformedOutputError{
			Err: fmt.Errorf("expected %d scenarios, got %d", BatchSize, len(scenarios)),
		}
	}
	for i, s := range scenarios {
		if err := s.Validate(); err != nil {
			return nil, &genai.MalformedOutputError{
				Err: fmt.Errorf("scenario %d incomplete: %w", i, err),
			}
		}
	}
	return scenarios, nil
}
