// Package transcript exports finished simulation sessions to markdown files.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/crucible-sim/crucible/internal/models"
)

// sanitize replaces characters that are unsafe in filenames.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Filename returns the export filename for a session.
func Filename(scenarioTitle string, ts time.Time) string {
	return fmt.Sprintf("%s-%s.md", sanitizeName(scenarioTitle), ts.Format("20060102-150405"))
}

// Write renders a session as markdown and writes it to dir. Returns the
// path of the written file.
func Write(dir string, rec *models.Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := Filename(rec.Scenario.Title, rec.CreatedAt)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(Render(rec)), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	return path, nil
}

// Render produces the markdown document for a session: scenario header,
// the full conversation, and the analysis when present.
func Render(rec *models.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rec.Scenario.Title)
	fmt.Fprintf(&b, "- Domain: %s\n", rec.Domain)
	fmt.Fprintf(&b, "- Team size: %d\n", rec.TeamSize)
	fmt.Fprintf(&b, "- Status: %s\n", rec.Status)
	fmt.Fprintf(&b, "- Started: %s\n\n", rec.CreatedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "%s\n\n", rec.Scenario.Description)
	fmt.Fprintf(&b, "**Key decision:** %s\n\n", rec.Scenario.KeyDecision)

	b.WriteString("## Conversation\n\n")
	for _, entry := range rec.Transcript {
		label := "Host"
		if entry.Role == models.RoleTeam {
			label = "Team"
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", label, entry.Content)
	}

	if rec.Analysis != nil {
		b.WriteString("## Analysis\n\n")
		fmt.Fprintf(&b, "Overall score: %.0f/100\n\n", rec.Analysis.OverallScore)

		b.WriteString("Key strengths:\n\n")
		for _, s := range rec.Analysis.KeyStrengths {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\nGrowth areas:\n\n")
		for _, s := range rec.Analysis.GrowthAreas {
			fmt.Fprintf(&b, "- %s\n", s)
		}

		b.WriteString("\nHeatmap:\n\n")
		for _, metric := range models.HeatmapMetrics() {
			fmt.Fprintf(&b, "- %s: %.1f\n", metric, rec.Analysis.HeatmapData[metric])
		}

		fmt.Fprintf(&b, "\n%s\n", rec.Analysis.ActionableFeedback)
	}

	return b.String()
}
