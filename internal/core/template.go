package core

import (
	"strings"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// LabelTrue is the cell text written into a label column that a task carries.
const LabelTrue = "TRUE"

// MergeIntoTemplate projects the rows of every source onto the template
// columns, in source order, and stamps each row with its source's site.
// Source columns the template does not declare are dropped.
func MergeIntoTemplate(columns []string, sources []models.Source) *models.Table {
	merged := &models.Table{Columns: append([]string{}, columns...)}
	for _, src := range sources {
		if src.Table == nil {
			continue
		}
		for _, in := range src.Table.Rows {
			out := make(models.Row, len(columns))
			for _, c := range columns {
				if v, ok := in[c]; ok {
					out[c] = v
				}
			}
			if merged.HasColumn(models.ColumnSite) {
				out[models.ColumnSite] = src.Site
			}
			merged.Rows = append(merged.Rows, out)
		}
	}
	return merged
}

// LabelFlags records, per row index, the label columns set by ApplyLabels.
type LabelFlags []map[string]bool

// ApplyLabels splits each row's Labels cell on ';' and, for every label that
// names a template column (after upper-casing), sets that column to TRUE.
func ApplyLabels(t *models.Table) LabelFlags {
	flags := make(LabelFlags, len(t.Rows))
	for i, row := range t.Rows {
		for _, raw := range strings.Split(row[models.ColumnLabels], ";") {
			label := strings.ToUpper(strings.TrimSpace(raw))
			if label == "" || !t.HasColumn(label) {
				continue
			}
			row[label] = LabelTrue
			if flags[i] == nil {
				flags[i] = make(map[string]bool)
			}
			flags[i][label] = true
		}
	}
	return flags
}

// ClearAgeingFields blanks the declared fields on every row whose task is excluded.
func ClearAgeingFields(t *models.Table, fields []string, excluded map[string]struct{}) {
	for _, row := range t.Rows {
		if _, ok := excluded[row[models.ColumnTaskID]]; !ok {
			continue
		}
		for _, f := range fields {
			if t.HasColumn(f) {
				row[f] = ""
			}
		}
	}
}
