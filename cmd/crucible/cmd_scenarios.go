package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newScenariosCommand() *cobra.Command {
	var teamSize int
	var domain string

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Generate a batch of scenarios and print them as JSON",
		Long: `Generate a batch of ten workplace crisis scenarios for the given team
size and domain, and print them to stdout as JSON.

Useful for inspecting what the generator produces without starting a
simulation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if teamSize <= 0 {
				return fmt.Errorf("--team-size must be a positive number")
			}
			if domain == "" {
				return fmt.Errorf("--domain is required")
			}

			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.Close() //nolint:errcheck

			scenarios, err := d.generator.Generate(cmd.Context(), teamSize, domain)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(scenarios, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&teamSize, "team-size", 4, "Number of people on the team")
	cmd.Flags().StringVar(&domain, "domain", "", "Professional field the scenarios should cover (required)")

	return cmd
}
