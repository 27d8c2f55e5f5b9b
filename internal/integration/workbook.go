package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// ReportTimestampLayout is appended to the report name of every run.
const ReportTimestampLayout = "January 02, 2006 15-04-05"

// WorkbookConfig locates the template and the report directories.
type WorkbookConfig struct {
	Template       string
	Sheet          string // Also the name of the table holding the tasks.
	ReportsDir     string
	LatestDir      string
	Name           string
	HighlightColor string
}

// WrittenReport describes a report saved by a WorkbookWriter.
type WrittenReport struct {
	Path        string `json:"path" yaml:"path"`
	LatestPath  string `json:"latest_path" yaml:"latest_path"`
	Rows        int    `json:"rows" yaml:"rows"`
	Highlighted int    `json:"highlighted" yaml:"highlighted"`
}

// WorkbookWriter reads the template header and writes report workbooks.
type WorkbookWriter interface {
	// TemplateColumns returns the header of the template's task sheet.
	TemplateColumns() ([]string, error)
	// Write copies the template, appends rows to its task table and saves the
	// result into the reports directory and the latest directory.
	Write(rows []models.OutputRow, now time.Time) (*WrittenReport, error)
}

type excelWorkbookWriter struct {
	cfg WorkbookConfig
}

// NewWorkbookWriter creates a WorkbookWriter backed by excelize.
func NewWorkbookWriter(cfg WorkbookConfig) WorkbookWriter {
	return &excelWorkbookWriter{cfg: cfg}
}

func (w *excelWorkbookWriter) TemplateColumns() ([]string, error) {
	table, err := readXLSX(w.cfg.Template, w.cfg.Sheet)
	if err != nil {
		return nil, err
	}
	if missing := table.MissingColumns(models.RequiredTemplateColumns); len(missing) > 0 {
		return nil, missingColumns(filepath.Base(w.cfg.Template), missing)
	}
	return table.Columns, nil
}

// ReportFileName returns the file name of a report generated at now.
func ReportFileName(name string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", name, now.Format(ReportTimestampLayout))
}

func (w *excelWorkbookWriter) Write(rows []models.OutputRow, now time.Time) (*WrittenReport, error) {
	fileName := ReportFileName(w.cfg.Name, now)
	dst := filepath.Join(w.cfg.ReportsDir, fileName)
	if err := CopyFile(w.cfg.Template, dst); err != nil {
		return nil, fmt.Errorf("copying template: %w", err)
	}

	highlighted, err := w.fill(dst, rows)
	if err != nil {
		os.Remove(dst)
		return nil, err
	}

	if err := ClearDir(w.cfg.LatestDir); err != nil {
		return nil, fmt.Errorf("clearing latest report directory: %w", err)
	}
	latest := filepath.Join(w.cfg.LatestDir, fileName)
	if err := CopyFile(dst, latest); err != nil {
		return nil, fmt.Errorf("copying latest report: %w", err)
	}

	return &WrittenReport{Path: dst, LatestPath: latest, Rows: len(rows), Highlighted: highlighted}, nil
}

// fill writes rows into the workbook at path and returns the number of
// highlighted rows.
func (w *excelWorkbookWriter) fill(path string, rows []models.OutputRow) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	sheet := w.cfg.Sheet
	tmplName := filepath.Base(w.cfg.Template)
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return 0, &StructureError{Kind: ErrMissingSheet, File: tmplName, Missing: []string{sheet}}
	}

	table, err := findTable(f, sheet, sheet)
	if err != nil {
		return 0, err
	}
	if table == nil {
		return 0, &StructureError{Kind: ErrMissingTable, File: tmplName, Missing: []string{sheet}}
	}

	existing, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(existing) == 0 {
		return 0, missingColumns(tmplName, models.RequiredTemplateColumns)
	}
	header := existing[0]
	width := len(header)
	for _, r := range rows {
		if len(r.Cells) > width {
			width = len(r.Cells)
		}
	}

	start := firstFreeRow(existing, indexOf(header, models.ColumnTaskID))
	calculated, err := rowFormulas(f, sheet, start, width)
	if err != nil {
		return 0, err
	}

	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{w.cfg.HighlightColor}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("creating highlight style: %w", err)
	}

	highlighted := 0
	for i, row := range rows {
		rowNum := start + i
		if err := writeRow(f, sheet, rowNum, row, calculated); err != nil {
			return 0, err
		}
		if !row.Highlight {
			continue
		}
		highlighted++
		first, _ := excelize.CoordinatesToCellName(1, rowNum)
		last, _ := excelize.CoordinatesToCellName(width, rowNum)
		if err := f.SetCellStyle(sheet, first, last, style); err != nil {
			return 0, fmt.Errorf("highlighting row %d: %w", rowNum, err)
		}
	}

	end := start + len(rows) - 1
	if end < start {
		end = start
	}
	if err := resizeTable(f, sheet, table, width, end); err != nil {
		return 0, err
	}

	if err := f.Save(); err != nil {
		return 0, fmt.Errorf("saving report: %w", err)
	}
	return highlighted, nil
}

func findTable(f *excelize.File, sheet, name string) (*excelize.Table, error) {
	tables, err := f.GetTables(sheet)
	if err != nil {
		return nil, fmt.Errorf("listing tables of %s: %w", sheet, err)
	}
	for i := range tables {
		if tables[i].Name == name {
			return &tables[i], nil
		}
	}
	return nil, nil
}

// firstFreeRow returns the 1-based row after the last row holding a task ID.
// The header row counts as used.
func firstFreeRow(rows [][]string, idCol int) int {
	last := 1
	for i := 1; i < len(rows); i++ {
		if idCol >= 0 && idCol < len(rows[i]) && strings.TrimSpace(rows[i][idCol]) != "" {
			last = i + 1
		}
	}
	return last + 1
}

// rowFormulas returns the formulas the template keeps in row, keyed by
// 1-based column. They are repeated on every written row.
func rowFormulas(f *excelize.File, sheet string, row, width int) (map[int]string, error) {
	formulas := make(map[int]string)
	for col := 1; col <= width; col++ {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		formula, err := f.GetCellFormula(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("reading formula %s: %w", cell, err)
		}
		if formula != "" {
			formulas[col] = formula
		}
	}
	return formulas, nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, row models.OutputRow, calculated map[int]string) error {
	for j, cell := range row.Cells {
		col := j + 1
		name, _ := excelize.CoordinatesToCellName(col, rowNum)

		var err error
		switch {
		case cell.Formula != "":
			err = f.SetCellFormula(sheet, name, cell.Formula)
		case calculated[col] != "" && isEmpty(cell.Value):
			// Excluded rows lose the template's calculated columns.
			formula := calculated[col]
			if row.Highlight {
				formula = ""
			}
			err = f.SetCellFormula(sheet, name, formula)
		default:
			err = f.SetCellValue(sheet, name, cell.Value)
		}
		if err != nil {
			return fmt.Errorf("writing cell %s: %w", name, err)
		}
	}
	return nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// resizeTable recreates table so it spans from its top-left cell to
// (width, endRow).
func resizeTable(f *excelize.File, sheet string, table *excelize.Table, width, endRow int) error {
	topLeft, _, _ := strings.Cut(table.Range, ":")
	bottomRight, _ := excelize.CoordinatesToCellName(width, endRow)

	resized := &excelize.Table{
		Range:             topLeft + ":" + bottomRight,
		Name:              table.Name,
		StyleName:         table.StyleName,
		ShowColumnStripes: table.ShowColumnStripes,
		ShowFirstColumn:   table.ShowFirstColumn,
		ShowHeaderRow:     table.ShowHeaderRow,
		ShowLastColumn:    table.ShowLastColumn,
		ShowRowStripes:    table.ShowRowStripes,
	}
	if err := f.DeleteTable(table.Name); err != nil {
		return fmt.Errorf("resizing table %s: %w", table.Name, err)
	}
	if err := f.AddTable(sheet, resized); err != nil {
		return fmt.Errorf("resizing table %s: %w", table.Name, err)
	}
	return nil
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if strings.TrimSpace(c) == name {
			return i
		}
	}
	return -1
}
