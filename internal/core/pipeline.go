package core

import (
	"fmt"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// Report is the outcome of one pipeline run over a merged table.
type Report struct {
	Table    *models.Table
	Parsed   ParsedDescriptions
	Issues   *IssueLog
	Excluded map[string]struct{}
	Ageing   AgeingResult
	Formulas FormulaResult
	Labels   LabelFlags
}

// IsExcluded reports whether the task was excluded from ageing.
func (r *Report) IsExcluded(taskID string) bool {
	_, ok := r.Excluded[taskID]
	return ok
}

// Rows renders the table as output rows. For each cell a formula wins over a
// computed value, which wins over a label flag, which wins over the input text.
// Rows of excluded tasks are highlighted.
func (r *Report) Rows() []models.OutputRow {
	rows := make([]models.OutputRow, len(r.Table.Rows))
	for i, row := range r.Table.Rows {
		taskID := row[models.ColumnTaskID]
		cells := make([]models.Cell, len(r.Table.Columns))
		for j, col := range r.Table.Columns {
			if f, ok := r.Formulas[taskID][col]; ok {
				cells[j] = models.Cell{Formula: f}
				continue
			}
			if v, ok := r.Ageing[taskID][col]; ok {
				cells[j] = models.Cell{Value: v.Any()}
				continue
			}
			if i < len(r.Labels) && r.Labels[i][col] {
				cells[j] = models.Cell{Value: true}
				continue
			}
			cells[j] = models.Cell{Value: row[col]}
		}
		rows[i] = models.OutputRow{Cells: cells, Highlight: r.IsExcluded(taskID)}
	}
	return rows
}

// Pipeline runs the parse, exclude and reduce steps over a merged table.
type Pipeline struct {
	parser   DescriptionParser
	reducer  AgeingReducer
	rules    []AgeingRule
	formulas *FormulaFormatter
}

// NewPipeline creates a Pipeline. formulas may be nil, in which case
// business-day counts are written as numbers.
func NewPipeline(parser DescriptionParser, reducer AgeingReducer, rules []AgeingRule, formulas *FormulaFormatter) *Pipeline {
	return &Pipeline{parser: parser, reducer: reducer, rules: rules, formulas: formulas}
}

// Rules returns the rule table the pipeline applies.
func (p *Pipeline) Rules() []AgeingRule {
	return p.rules
}

// Run parses every row of table, excludes tasks holding Error issues, reduces
// the rest and applies label flags. table is updated in place.
func (p *Pipeline) Run(table *models.Table) (*Report, error) {
	issues := NewIssueLog()
	parsed := p.parser.Parse(table.TaskRows(), issues)
	excluded := issues.ExclusionSet()

	ageing, err := p.reducer.Reduce(parsed, p.rules, excluded)
	if err != nil {
		return nil, fmt.Errorf("computing ageing values: %w", err)
	}

	blank := append(RuleFields(p.rules), DerivedFields...)
	ClearAgeingFields(table, blank, excluded)

	report := &Report{
		Table:    table,
		Parsed:   parsed,
		Issues:   issues,
		Excluded: excluded,
		Ageing:   ageing,
		Labels:   ApplyLabels(table),
	}
	if p.formulas != nil {
		report.Formulas = p.formulas.Formulas(parsed, p.rules, excluded)
	}
	return report, nil
}
