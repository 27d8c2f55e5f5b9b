package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/integration"
)

var importCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>...",
	Short: "Replace the site files with CSV copies of Kanban workbook exports",
	Long: `Clear the files directory (keeping .gitkeep) and write one CSV per workbook,
converted from its first sheet. The next report run reads the CSV files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config == nil {
			return fmt.Errorf("configuration not loaded")
		}
		dir := core.ResolvePath(BasePath, Config.Paths.Files)
		written, err := integration.ImportWorkbooks(args, dir)
		for _, path := range written {
			fmt.Printf("Imported %s\n", path)
		}
		if err != nil {
			return fmt.Errorf("importing workbooks: %w", err)
		}
		logger.Info("workbooks imported", "count", len(written), "dir", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
