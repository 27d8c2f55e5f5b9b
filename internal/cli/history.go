package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/storage"
)

var (
	historyStatus string
	historyLimit  int
	historyKeep   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous report runs",
	Long:  `List the report runs recorded in history.yaml, newest first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if History == nil {
			return fmt.Errorf("report history not initialized")
		}
		if err := History.Load(); err != nil {
			return err
		}

		status := storage.RunStatus(historyStatus)
		if status != "" && status != storage.RunSucceeded && status != storage.RunFailed {
			return fmt.Errorf("invalid status %q: must be succeeded or failed", historyStatus)
		}

		runs, err := History.ListRuns(storage.HistoryFilter{Status: status, Limit: historyLimit})
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No report runs recorded.")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %-9s  %s\n", r.GeneratedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.ID)
			fmt.Printf("    tasks %d, excluded %d, errors %d, infos %d, warnings %d\n",
				r.Tasks, r.Excluded, r.Errors, r.Infos, r.Warnings)
			if r.ReportPath != "" {
				fmt.Printf("    %s\n", r.ReportPath)
			}
			if r.Message != "" {
				fmt.Printf("    %s\n", r.Message)
			}
		}
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget all but the newest report runs",
	Long: `Remove older runs from history.yaml, keeping the newest --keep runs.
Report workbooks on disk are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if History == nil {
			return fmt.Errorf("report history not initialized")
		}
		if historyKeep < 0 {
			return fmt.Errorf("--keep must not be negative")
		}
		if err := History.Load(); err != nil {
			return err
		}
		removed, err := History.Prune(historyKeep)
		if err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
		if err := History.Save(); err != nil {
			return err
		}
		fmt.Printf("Removed %d run(s) from the history.\n", removed)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Only show runs with this status (succeeded, failed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
	_ = historyCmd.RegisterFlagCompletionFunc("status",
		fixedCompletions(string(storage.RunSucceeded), string(storage.RunFailed)))
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 50, "Number of newest runs to keep")
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
