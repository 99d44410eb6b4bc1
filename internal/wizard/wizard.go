// Package wizard collects interactive session setup for the play command.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/crucible-sim/crucible/internal/models"
)

// SessionSetup holds the fields collected before a simulation starts.
type SessionSetup struct {
	TeamSize int
	Domain   string
}

// RunSetupWizard runs an interactive huh form to collect team size and
// domain for a new session.
func RunSetupWizard(in io.Reader, out io.Writer) (*SessionSetup, error) {
	var (
		teamSizeRaw = "4"
		domain      string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Team size").
				Description("How many people are on the team?").
				Placeholder("4").
				Value(&teamSizeRaw).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n <= 0 {
						return fmt.Errorf("team size must be a positive number")
					}
					return nil
				}),
			huh.NewInput().
				Title("Domain").
				Description("The professional field the scenarios should cover").
				Placeholder("Healthcare").
				Value(&domain).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("domain is required")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	if err := configureTTY(form, in).Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	teamSize, err := strconv.Atoi(strings.TrimSpace(teamSizeRaw))
	if err != nil {
		return nil, fmt.Errorf("invalid team size: %w", err)
	}
	return &SessionSetup{
		TeamSize: teamSize,
		Domain:   strings.TrimSpace(domain),
	}, nil
}

// PickScenario presents the generated batch as a select list and returns
// the chosen scenario.
func PickScenario(in io.Reader, out io.Writer, scenarios []models.Scenario) (models.Scenario, error) {
	if len(scenarios) == 0 {
		return models.Scenario{}, fmt.Errorf("no scenarios to choose from")
	}

	options := make([]huh.Option[int], 0, len(scenarios))
	for i, sc := range scenarios {
		options = append(options, huh.NewOption(sc.Title, i))
	}

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Choose a scenario").
				Options(options...).
				Value(&choice),
		),
	).
		WithInput(in).
		WithOutput(out)

	if err := configureTTY(form, in).Run(); err != nil {
		return models.Scenario{}, fmt.Errorf("wizard failed: %w", err)
	}
	return scenarios[choice], nil
}

// configureTTY switches the form to accessible mode for non-TTY input
// (e.g. tests, piped input).
func configureTTY(form *huh.Form, in io.Reader) *huh.Form {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return form.WithAccessible(true)
	}
	return form
}
