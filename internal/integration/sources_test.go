package integration

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeXLSX(t *testing.T, path, sheet string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestCleanDescription(t *testing.T) {
	got := CleanDescription("Config Start Date:\t01/01/24\r\nNext_x000D_line")
	assert.Equal(t, "config start date: 01/01/24 \nnext line", got)
}

func TestSiteFromFileName(t *testing.T) {
	assert.Equal(t, "ACME", SiteFromFileName("ACME Kanban Board.csv"))
	assert.Equal(t, "Globex", SiteFromFileName("Globex.xlsx"))
	assert.Equal(t, "Initech", SiteFromFileName(filepath.Join("Files", "Initech tasks.csv")))
}

func TestReadSources_CSVAndXLSX(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACME board.csv", "\ufeff Task ID ,Task Name,Bucket Name,Description\n"+
		"A1,First,Done,\"Config Start Date: 01/01/24\r\nConfig End Date:\t01/05/24\"\n"+
		",,,\n"+
		"A2,Second,Doing\n")
	writeXLSX(t, filepath.Join(dir, "Globex tasks.xlsx"), "Export", [][]any{
		{"Task ID", "Task Name", "Bucket Name", "Labels"},
		{"G1", "Third", "To Do", "demo"},
	})
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.csv"), 0o755))

	sources, err := NewSourceReader(dir).ReadSources()
	require.NoError(t, err)
	require.Len(t, sources, 2)

	acme := sources[0]
	assert.Equal(t, "ACME board.csv", acme.Name)
	assert.Equal(t, "ACME", acme.Site)
	assert.Equal(t, []string{"Task ID", "Task Name", "Bucket Name", "Description"}, acme.Table.Columns)
	require.Len(t, acme.Table.Rows, 2, "blank rows are dropped")
	assert.Equal(t, "config start date: 01/01/24\nconfig end date: 01/05/24", acme.Table.Rows[0][models.ColumnDescription])
	assert.Equal(t, "", acme.Table.Rows[1][models.ColumnDescription], "ragged rows are padded")

	globex := sources[1]
	assert.Equal(t, "Globex", globex.Site)
	require.Len(t, globex.Table.Rows, 1)
	assert.Equal(t, "G1", globex.Table.Rows[0][models.ColumnTaskID])
}

func TestReadSources_MissingHeader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACME.csv", "Task ID,Task Name\nA1,First\n")

	_, err := NewSourceReader(dir).ReadSources()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))

	var se *StructureError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "ACME.csv", se.File)
	assert.Equal(t, []string{models.ColumnBucketName}, se.Missing)
	assert.Contains(t, err.Error(), "Bucket Name")
}

func TestReadSources_MissingDirectory(t *testing.T) {
	_, err := NewSourceReader(filepath.Join(t.TempDir(), "nope")).ReadSources()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadTableFile_Unsupported(t *testing.T) {
	_, err := ReadTableFile(filepath.Join(t.TempDir(), "x.ods"))
	assert.Error(t, err)
}

func TestImportWorkbooks(t *testing.T) {
	src := t.TempDir()
	dir := t.TempDir()
	writeFile(t, dir, KeepFile, "")
	writeFile(t, dir, "stale.csv", "old")

	book := filepath.Join(src, "ACME export.xlsx")
	writeXLSX(t, book, "Sheet", [][]any{
		{"Task ID", "Task Name", "Bucket Name"},
		{"A1", "First, with comma", "Done"},
	})

	written, err := ImportWorkbooks([]string{book}, dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "ACME export.csv")}, written)

	_, err = os.Stat(filepath.Join(dir, "stale.csv"))
	assert.True(t, os.IsNotExist(err), "previous files are removed")
	_, err = os.Stat(filepath.Join(dir, KeepFile))
	assert.NoError(t, err, ".gitkeep is kept")

	table, err := ReadTableFile(written[0])
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "First, with comma", table.Rows[0][models.ColumnTaskName])

	_, err = ImportWorkbooks([]string{filepath.Join(src, "plain.csv")}, dir)
	assert.Error(t, err)
}

func TestStructureError(t *testing.T) {
	err := &StructureError{Kind: ErrMissingSheet, File: "t.xlsx", Missing: []string{"Tasks"}}
	assert.Equal(t, "t.xlsx: required sheet missing: Tasks", err.Error())
	assert.True(t, errors.Is(err, ErrMissingSheet))
	assert.False(t, errors.Is(err, ErrMissingColumn))

	var nilErr *StructureError
	assert.Equal(t, "", nilErr.Error())
}
