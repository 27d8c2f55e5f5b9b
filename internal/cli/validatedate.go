package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
)

var validateDateYear int

var validateDateCmd = &cobra.Command{
	Use:   "validate-date <token>...",
	Short: "Check description date tokens",
	Long: `Check that each token is a real calendar date in M/D/YY or M/D/YYYY form.
Two-digit years are read in the century of the current year.

The command fails when any token is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year := validateDateYear
		if year == 0 {
			year = reportNow().Year()
		}

		invalid := 0
		for _, token := range args {
			d, err := core.ParseDateToken(token, year)
			if err != nil {
				invalid++
				fmt.Printf("  %-12s invalid\n", token)
				continue
			}
			fmt.Printf("  %-12s %s\n", token, d.Format("Monday, 2006-01-02"))
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d date token(s) are invalid", invalid, len(args))
		}
		return nil
	},
}

func init() {
	validateDateCmd.Flags().IntVar(&validateDateYear, "year", 0, "Current year used for two-digit years (defaults to this year)")
	rootCmd.AddCommand(validateDateCmd)
}
