package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/calendar"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
)

var (
	holidaysYear    int
	holidaysFormula bool
)

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the holidays excluded from business-day counts",
	Long: `List the US federal holidays (observed dates) and the configured extra
days off for the report year and the configured number of years before it.

With --formula the holidays are printed as the array literal used in
NETWORKDAYS.INTL formulas.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Config
		if cfg == nil {
			cfg = core.DefaultConfig()
		}
		year := holidaysYear
		if year == 0 {
			year = reportNow().Year()
		}

		cal, err := calendar.Build(year, cfg.Calendar.YearsBack, cfg.Calendar.ExtraDates)
		if err != nil {
			return fmt.Errorf("building holiday calendar: %w", err)
		}

		if holidaysFormula {
			fmt.Println(cal.FormulaArray())
			return nil
		}

		holidays := cal.Holidays()
		fmt.Printf("%d holiday(s):\n\n", len(holidays))
		for _, h := range holidays {
			fmt.Printf("  %s  %-10s %s\n", h.Date.Format(calendar.HolidayLayout), h.Date.Weekday(), h.Name)
		}
		return nil
	},
}

func init() {
	holidaysCmd.Flags().IntVar(&holidaysYear, "year", 0, "Report year (defaults to this year)")
	holidaysCmd.Flags().BoolVar(&holidaysFormula, "formula", false, "Print the NETWORKDAYS.INTL holiday array")
	rootCmd.AddCommand(holidaysCmd)
}
