package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
)

var (
	metricsJSON     bool
	metricsSince    string
	metricsTextfile string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display report run metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include report runs by outcome, tasks processed and excluded, issues
by severity and the average run duration. --textfile writes the run metrics
in the Prometheus text format for the node_exporter textfile collector.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		if metricsTextfile != "" {
			if EventLog == nil {
				return fmt.Errorf("event log not initialized")
			}
			runs, err := observability.RunSummaries(EventLog, &sinceTime)
			if err != nil {
				return fmt.Errorf("reading runs: %w", err)
			}
			collector := observability.NewRunCollector()
			collector.ObserveAll(runs)
			path := core.ResolvePath(BasePath, metricsTextfile)
			if err := collector.WriteTextfile(path); err != nil {
				return err
			}
			fmt.Printf("Wrote metrics of %d run(s) to %s\n", len(runs), path)
			return nil
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		// Table format.
		fmt.Printf("Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Printf("  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Printf("  %-24s %d\n", "Runs started:", metrics.RunsStarted)
		fmt.Printf("  %-24s %d\n", "Runs succeeded:", metrics.RunsSucceeded)
		fmt.Printf("  %-24s %d\n", "Runs failed:", metrics.RunsFailed)
		fmt.Printf("  %-24s %d\n", "Tasks processed:", metrics.TasksProcessed)
		fmt.Printf("  %-24s %d (%.1f%%)\n", "Tasks excluded:", metrics.TasksExcluded, metrics.ExclusionRate()*100)
		fmt.Printf("  %-24s %s\n", "Average duration:", metrics.AverageDuration.Round(time.Millisecond))

		if len(metrics.IssuesBySeverity) > 0 {
			fmt.Println("\n  Issues by severity:")
			severities := make([]string, 0, len(metrics.IssuesBySeverity))
			for s := range metrics.IssuesBySeverity {
				severities = append(severities, s)
			}
			sort.Strings(severities)
			for _, s := range severities {
				fmt.Printf("    %-20s %d\n", s+":", metrics.IssuesBySeverity[s])
			}
		}

		if metrics.LastSuccess != nil {
			fmt.Printf("\n  %-24s %s\n", "Last report:", metrics.LastSuccess.Format(time.RFC3339))
		}
		if metrics.OldestEvent != nil {
			fmt.Printf("  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Printf("  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -30), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "30d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	metricsCmd.Flags().StringVar(&metricsTextfile, "textfile", "", "Write Prometheus metrics to this file instead of printing")
	rootCmd.AddCommand(metricsCmd)
}
