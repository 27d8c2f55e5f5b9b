package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the ageing rules",
	Long: `List every ageing column, how it is computed and the description keys it
reads. Business-day counts pair the n-th start date with the n-th end date;
missing end dates are filled with today.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rules := core.DefaultRuleTable()
		fmt.Printf("%d ageing rules:\n\n", len(rules))
		for _, r := range rules {
			sources := make([]string, 0, 2)
			for _, k := range core.RuleSources(r) {
				sources = append(sources, k.Phrase())
			}
			detail := strings.Join(sources, " -> ")
			if bdc, ok := r.(core.BusinessDayCount); ok && bdc.Position != nil {
				detail += fmt.Sprintf(" (pair %d only)", *bdc.Position+1)
			}
			fmt.Printf("  %-42s %-18s %s\n", r.OutputField(), r.Kind(), detail)
		}
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
