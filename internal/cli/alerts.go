package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active report alerts",
	Long: `Evaluate alert conditions against the event log and display any triggered alerts.

Alerts check the excluded task and error counts of the latest report, a
streak of failed runs and how long ago the last report was generated.
With --notify the alerts are also posted to the configured Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (event log may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if len(alerts) == 0 {
			fmt.Println("No active alerts.")
			return nil
		}

		fmt.Printf("%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Printf("  [%s] %s\n", severity, alert.Message)
			fmt.Printf("         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("notifier not configured (set notifications.slack.webhook_url)")
			}
			if err := Notifier.Notify(latestRun(), alerts); err != nil {
				return fmt.Errorf("sending notifications: %w", err)
			}
			fmt.Println("Alerts sent.")
		}

		return nil
	},
}

// latestRun returns the most recent recorded report run, or nil when the
// event log is unavailable or holds no run.
func latestRun() *observability.RunSummary {
	if EventLog == nil {
		return nil
	}
	runs, err := observability.RunSummaries(EventLog, nil)
	if err != nil {
		warnOn(err, "reading runs")
		return nil
	}
	if len(runs) == 0 {
		return nil
	}
	return &runs[len(runs)-1]
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post the alerts to Slack")
	rootCmd.AddCommand(alertsCmd)
}
