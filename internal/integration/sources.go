package integration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// Supported site file extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

var descriptionCleaner = strings.NewReplacer("\r", " ", "\t", " ", "_x000d_", " ")

// CleanDescription lower-cases a description and replaces carriage returns,
// tabs and the spreadsheet's escaped carriage return with spaces. Newlines
// are kept.
func CleanDescription(text string) string {
	return descriptionCleaner.Replace(strings.ToLower(text))
}

// SiteFromFileName returns the site a file belongs to: the first
// space-separated word of its name without the extension.
func SiteFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	site, _, _ := strings.Cut(strings.TrimSpace(base), " ")
	return site
}

// SourceReader loads the site spreadsheets of a run.
type SourceReader interface {
	// ReadSources reads every supported file in name order. A file missing
	// one of the required headers fails the whole read.
	ReadSources() ([]models.Source, error)
}

type dirSourceReader struct {
	dir string
}

// NewSourceReader creates a SourceReader over the files in dir.
func NewSourceReader(dir string) SourceReader {
	return &dirSourceReader{dir: dir}
}

func (r *dirSourceReader) ReadSources() ([]models.Source, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading files directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ExtCSV, ExtXLSX:
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	sources := make([]models.Source, 0, len(names))
	for _, name := range names {
		table, err := ReadTableFile(filepath.Join(r.dir, name))
		if err != nil {
			return nil, err
		}
		if missing := table.MissingColumns(models.RequiredSourceColumns); len(missing) > 0 {
			return nil, missingColumns(name, missing)
		}
		for _, row := range table.Rows {
			if d, ok := row[models.ColumnDescription]; ok {
				row[models.ColumnDescription] = CleanDescription(d)
			}
		}
		sources = append(sources, models.Source{Name: name, Site: SiteFromFileName(name), Table: table})
	}
	return sources, nil
}

// ReadTableFile reads a .csv file or the first sheet of a .xlsx file.
func ReadTableFile(path string) (*models.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCSV:
		return readCSV(path)
	case ExtXLSX:
		return readXLSX(path, "")
	default:
		return nil, fmt.Errorf("reading %s: unsupported file type", filepath.Base(path))
	}
}

func readCSV(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		records = append(records, rec)
	}
	return tableFromRecords(records), nil
}

// readXLSX reads sheet, or the first sheet when sheet is empty.
func readXLSX(path, sheet string) (*models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &models.Table{}, nil
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &StructureError{Kind: ErrMissingSheet, File: filepath.Base(path), Missing: []string{sheet}}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s of %s: %w", sheet, filepath.Base(path), err)
	}
	return tableFromRecords(rows), nil
}

// tableFromRecords treats the first record as the header row. Header names
// are trimmed; ragged rows are padded and blank rows are dropped.
func tableFromRecords(records [][]string) *models.Table {
	if len(records) == 0 {
		return &models.Table{}
	}
	cols := make([]string, len(records[0]))
	for i, h := range records[0] {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := &models.Table{Columns: cols}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(models.Row, len(cols))
		for i, c := range cols {
			if c == "" {
				continue
			}
			if i < len(rec) {
				row[c] = rec[i]
			} else {
				row[c] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportWorkbooks replaces the content of dir with a CSV copy of the first
// sheet of every .xlsx in paths. It returns the CSV files written.
func ImportWorkbooks(paths []string, dir string) ([]string, error) {
	if err := ClearDir(dir); err != nil {
		return nil, err
	}

	var written []string
	for _, p := range paths {
		if strings.ToLower(filepath.Ext(p)) != ExtXLSX {
			return written, fmt.Errorf("importing %s: not an .xlsx file", p)
		}
		table, err := readXLSX(p, "")
		if err != nil {
			return written, err
		}
		dst := filepath.Join(dir, strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))+ExtCSV)
		if err := writeCSV(dst, table); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	return written, nil
}

func writeCSV(path string, t *models.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	for _, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = row[c]
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
