package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crucible-sim/crucible/internal/models"
	"github.com/crucible-sim/crucible/internal/spinner"
	"github.com/crucible-sim/crucible/internal/transcript"
	"github.com/crucible-sim/crucible/internal/wizard"
)

func newPlayCommand() *cobra.Command {
	var saveDir string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a simulation interactively in the terminal",
		Long: `Play a simulation interactively in the terminal.

A short wizard collects the team size and domain, generates ten scenarios
to pick from, then runs the conversation turn by turn: the host asks, you
answer for the team. Type /done on its own line to end the session and see
the analysis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.Close() //nolint:errcheck

			return runPlaySession(cmd, d, saveDir)
		},
	}

	cmd.Flags().StringVar(&saveDir, "save-dir", "", "Directory to save the session transcript as markdown")

	return cmd
}

func runPlaySession(cmd *cobra.Command, d *deps, saveDir string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	setup, err := wizard.RunSetupWizard(os.Stdin, out)
	if err != nil {
		return err
	}

	spin := spinner.Start(out, "Generating scenarios...")
	scenarios, err := d.generator.Generate(ctx, setup.TeamSize, setup.Domain)
	spin.Stop()
	if err != nil {
		return err
	}

	chosen, err := wizard.PickScenario(os.Stdin, out, scenarios)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n%s\n\nKey decision: %s\n\n", chosen.Title, chosen.Description, chosen.KeyDecision)

	rec, err := d.engine.Start(ctx, setup.TeamSize, setup.Domain, chosen)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Host: %s\n\n", rec.Transcript[0].Content)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "Team> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/done" {
			break
		}

		spin := spinner.Start(out, "Thinking...")
		rec, err = d.engine.SubmitTeamResponse(ctx, rec.ID, line)
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nHost: %s\n\n", rec.Transcript[len(rec.Transcript)-1].Content)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if _, err := d.engine.Finish(ctx, rec.ID); err != nil {
		return err
	}

	spin = spinner.Start(out, "Analyzing session...")
	result, err := d.analyzer.Analyze(ctx, rec.ID)
	spin.Stop()
	if err != nil {
		return err
	}

	printAnalysis(cmd, result)

	if saveDir != "" {
		final, err := d.store.Get(rec.ID)
		if err != nil {
			return err
		}
		path, err := transcript.Write(saveDir, final)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nSession saved to %s\n", path)
	}
	return nil
}

func printAnalysis(cmd *cobra.Command, result *models.Analysis) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\nOverall score: %.0f/100\n", result.OverallScore)

	fmt.Fprintln(out, "\nKey strengths:")
	for _, s := range result.KeyStrengths {
		fmt.Fprintf(out, "  - %s\n", s)
	}

	fmt.Fprintln(out, "\nGrowth areas:")
	for _, s := range result.GrowthAreas {
		fmt.Fprintf(out, "  - %s\n", s)
	}

	fmt.Fprintln(out, "\nPerformance heatmap:")
	for _, metric := range models.HeatmapMetrics() {
		fmt.Fprintf(out, "  %-18s %.1f/10\n", metric, result.HeatmapData[metric])
	}

	fmt.Fprintf(out, "\n%s\n", result.ActionableFeedback)
}
