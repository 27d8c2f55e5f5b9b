package models

// Column headers shared by the site spreadsheets and the Kanban template.
const (
	ColumnTaskID      = "Task ID"
	ColumnTaskName    = "Task Name"
	ColumnBucketName  = "Bucket Name"
	ColumnSite        = "Site"
	ColumnDescription = "Description"
	ColumnLabels      = "Labels"
)

// RequiredSourceColumns lists the headers every site file must carry.
var RequiredSourceColumns = []string{ColumnTaskID, ColumnTaskName, ColumnBucketName}

// RequiredTemplateColumns lists the headers the template's Tasks table must carry.
var RequiredTemplateColumns = []string{ColumnTaskID, ColumnTaskName, ColumnSite, ColumnDescription, ColumnLabels}

// Row is a single spreadsheet row keyed by column header.
type Row map[string]string

// Table is an ordered list of column headers with the rows beneath them.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the table declares the given header.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the entries of required that the table does not declare,
// in the order they were requested.
func (t *Table) MissingColumns(required []string) []string {
	var missing []string
	for _, name := range required {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// TaskRow is the projection of a spreadsheet row consumed by the description parser.
type TaskRow struct {
	ID          string `json:"task_id" yaml:"task_id"`
	Name        string `json:"task_name" yaml:"task_name"`
	Site        string `json:"site" yaml:"site"`
	Description string `json:"description" yaml:"description"`
}

// TaskRows projects every row of the table into a TaskRow, preserving row order.
func (t *Table) TaskRows() []TaskRow {
	tasks := make([]TaskRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		tasks = append(tasks, TaskRow{
			ID:          r[ColumnTaskID],
			Name:        r[ColumnTaskName],
			Site:        r[ColumnSite],
			Description: r[ColumnDescription],
		})
	}
	return tasks
}

// Source is one site spreadsheet read from the files directory.
type Source struct {
	Name  string
	Site  string
	Table *Table
}

// Cell is one output cell. A non-empty Formula takes precedence over Value.
type Cell struct {
	Value   any
	Formula string
}

// OutputRow is one row written to the report workbook.
type OutputRow struct {
	Cells     []Cell
	Highlight bool
}
