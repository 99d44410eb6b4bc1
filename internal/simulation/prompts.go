package simulation

import (
	"fmt"
	"strings"

	"github.com/crucible-sim/crucible/internal/models"
)

const hostSystemInstruction = `You are the host of a team decision simulation.
You present an unfolding dilemma to a team and push them to commit to decisions.
You stay in character, keep the pressure realistic, and introduce consequences
for whatever the team decides. You speak directly to the team in second person.
Respond with the host's next line only, without any role label or quotes.`

// buildOpeningPrompt asks for the simulation's first host line.
func buildOpeningPrompt(teamSize int, domain string, sc models.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A team of %d people working in the %s domain is starting a decision simulation.\n\n", teamSize, domain)
	fmt.Fprintf(&b, "Scenario: %s\n%s\n\n", sc.Title, sc.Description)
	fmt.Fprintf(&b, "Key decision: %s\n\n", sc.KeyDecision)
	b.WriteString("Write the opening prompt the host uses to launch the simulation. " +
		"Set the scene, establish urgency, and end by asking the team for their first move.")
	return b.String()
}

// buildHostPrompt asks for the next host line. It embeds the entire
// transcript, never a summary: the host's reasoning must stay grounded in the
// full exchange so far.
func buildHostPrompt(rec *models.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A team of %d people working in the %s domain is in the middle of a decision simulation.\n\n", rec.TeamSize, rec.Domain)
	fmt.Fprintf(&b, "Scenario: %s\n%s\nKey decision: %s\n\n", rec.Scenario.Title, rec.Scenario.Description, rec.Scenario.KeyDecision)

	b.WriteString("Conversation so far:\n")
	for _, entry := range rec.Transcript {
		label := "Host"
		if entry.Role == models.RoleTeam {
			label = "Team"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, entry.Content)
	}

	b.WriteString("\nWrite the host's next line. React to the team's latest response, " +
		"escalate or evolve the situation plausibly, and press the team toward their next decision.")
	return b.String()
}
