package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/calendar"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/integration"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

var (
	parseText   string
	parseAgeing bool
	parseJSON   bool
)

// parseResult is the outcome of parsing a single description.
type parseResult struct {
	Empty    bool                 `json:"empty"`
	Excluded bool                 `json:"excluded"`
	Keys     map[string][]string  `json:"keys"`
	Issues   []models.IssueRecord `json:"issues"`
	Ageing   map[string]any       `json:"ageing,omitempty"`
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a task description and show its stage dates and issues",
	Long: `Parse one task description the way the report does and print the dates
recorded per key together with every issue found.

The description is read from --text, from the given file, or from stdin.
With --ageing the ageing columns are computed as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readDescription(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		result, err := parseDescription(text, parseAgeing)
		if err != nil {
			return err
		}

		if parseJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting result as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		printParseResult(result)
		return nil
	},
}

func readDescription(stdin io.Reader, args []string) (string, error) {
	if parseText != "" {
		return parseText, nil
	}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading description: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading description from stdin: %w", err)
	}
	return string(data), nil
}

func parseDescription(text string, withAgeing bool) (*parseResult, error) {
	now := reportNow()
	task := models.TaskRow{ID: "-", Description: integration.CleanDescription(text)}
	log := core.NewIssueLog()
	desc, ok := core.NewDescriptionParser(reportNow, 1).ParseTask(task, log)

	result := &parseResult{
		Empty:  !ok,
		Keys:   map[string][]string{},
		Issues: log.Records(),
	}
	_, result.Excluded = log.ExclusionSet()[task.ID]
	if ok {
		result.Keys = desc.Phrases()
	}
	if !withAgeing || !ok || result.Excluded {
		return result, nil
	}

	cfg := Config
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	cal, err := calendar.Build(now.Year(), cfg.Calendar.YearsBack, cfg.Calendar.ExtraDates)
	if err != nil {
		return nil, fmt.Errorf("building holiday calendar: %w", err)
	}
	values, err := core.NewAgeingReducer(cal, reportNow).ReduceTask(desc, core.DefaultRuleTable())
	if err != nil {
		return nil, fmt.Errorf("computing ageing: %w", err)
	}
	result.Ageing = make(map[string]any, len(values))
	for field, v := range values {
		result.Ageing[field] = v.Any()
	}
	return result, nil
}

func printParseResult(r *parseResult) {
	if r.Empty {
		fmt.Println("Description is empty.")
	}
	for _, k := range core.DescriptionKeys() {
		dates, ok := r.Keys[k.Phrase()]
		if !ok {
			continue
		}
		fmt.Printf("  %-44s %v\n", k.Phrase()+":", dates)
	}

	if len(r.Issues) > 0 {
		fmt.Printf("\n%d issue(s):\n", len(r.Issues))
		for _, is := range r.Issues {
			fmt.Printf("  [%s] %s\n", is.Severity, is.Message)
			if is.Line != "" {
				fmt.Printf("          line: %s\n", is.Line)
			}
		}
	}
	if r.Excluded {
		fmt.Println("\nThe task would be excluded from ageing.")
	}

	if len(r.Ageing) > 0 {
		fields := make([]string, 0, len(r.Ageing))
		for f := range r.Ageing {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		fmt.Println("\nAgeing:")
		for _, f := range fields {
			fmt.Printf("  %-44s %v\n", f+":", r.Ageing[f])
		}
	}
}

func init() {
	parseCmd.Flags().StringVar(&parseText, "text", "", "Description text to parse")
	parseCmd.Flags().BoolVar(&parseAgeing, "ageing", false, "Also compute the ageing columns")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Output the result as JSON")
	rootCmd.AddCommand(parseCmd)
}
