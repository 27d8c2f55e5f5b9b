package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/storage"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

var (
	issuesSeverity string
	issuesRaw      bool
)

var (
	issueErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	issueInfoStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	issueWarningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	issueTaskStyle    = lipgloss.NewStyle().Bold(true)
	issueLineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func styleForIssueSeverity(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeverityError:
		return issueErrorStyle
	case models.SeverityInfo:
		return issueInfoStyle
	case models.SeverityWarning:
		return issueWarningStyle
	default:
		return lipgloss.NewStyle()
	}
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Show the description issues of the latest report run",
	Long: `Show the issues recorded by the latest report run, grouped by severity and
task. Tasks listed under ERROR were excluded from ageing.

Use --raw to print the issue log exactly as written to disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Issues == nil {
			return fmt.Errorf("issue report not initialized")
		}

		runID, groups, err := Issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}

		if issuesSeverity != "" {
			sev := models.Severity(strings.ToUpper(issuesSeverity))
			if !sev.IsValid() {
				return fmt.Errorf("invalid severity %q: must be one of error, info, warning", issuesSeverity)
			}
			groups = filterGroups(groups, sev)
		}

		if issuesRaw {
			fmt.Print(storage.FormatIssueLog(groups))
			return nil
		}

		if len(groups) == 0 {
			fmt.Println("No issues recorded.")
			return nil
		}
		if runID != "" {
			fmt.Printf("Issues of run %s\n\n", runID)
		}
		fmt.Print(renderIssueGroups(groups))
		return nil
	},
}

func filterGroups(groups []models.SeverityGroup, sev models.Severity) []models.SeverityGroup {
	var out []models.SeverityGroup
	for _, g := range groups {
		if g.Severity == sev {
			out = append(out, g)
		}
	}
	return out
}

func renderIssueGroups(groups []models.SeverityGroup) string {
	var b strings.Builder
	for _, g := range groups {
		count := 0
		for _, t := range g.Tasks {
			count += len(t.Issues)
		}
		heading := fmt.Sprintf("%s (%d task(s), %d issue(s))", g.Severity, len(g.Tasks), count)
		b.WriteString(styleForIssueSeverity(g.Severity).Render(heading))
		b.WriteString("\n")
		for _, t := range g.Tasks {
			b.WriteString("  ")
			b.WriteString(issueTaskStyle.Render(fmt.Sprintf("%s  %s", t.TaskID, t.TaskName)))
			b.WriteString(fmt.Sprintf("  [%s]\n", t.Site))
			for _, is := range t.Issues {
				b.WriteString(fmt.Sprintf("    - %s\n", is.Message))
				if is.Line != "" {
					b.WriteString("      ")
					b.WriteString(issueLineStyle.Render(is.Line))
					b.WriteString("\n")
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func init() {
	issuesCmd.Flags().StringVar(&issuesSeverity, "severity", "", "Only show one severity (error, info, warning)")
	issuesCmd.Flags().BoolVar(&issuesRaw, "raw", false, "Print the issue log text")
	severities := make([]string, 0, len(models.ReportOrder))
	for _, s := range models.ReportOrder {
		severities = append(severities, strings.ToLower(string(s)))
	}
	_ = issuesCmd.RegisterFlagCompletionFunc("severity", fixedCompletions(severities...))
	rootCmd.AddCommand(issuesCmd)
}
