package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/calendar"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	karmcp "github.com/valter-silva-au/kanban-ageing/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the kar MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kar MCP server on stdio",
	Long: `Start the kar MCP server on stdio transport.

The server exposes the description parser and the ageing rules as MCP tools:
validate_date, parse_description, compute_ageing, list_rules, get_metrics,
get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Config
		if cfg == nil {
			cfg = core.DefaultConfig()
		}
		cal, err := calendar.Build(reportNow().Year(), cfg.Calendar.YearsBack, cfg.Calendar.ExtraDates)
		if err != nil {
			return fmt.Errorf("building holiday calendar: %w", err)
		}

		srv := karmcp.NewServer(cal, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
