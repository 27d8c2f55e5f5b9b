package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

func sampleGroups() []models.SeverityGroup {
	return []models.SeverityGroup{
		{Severity: models.SeverityError, Tasks: []models.TaskIssues{{
			TaskID: "T1", TaskName: "First", Site: "ACME",
			Issues: []models.IssueRecord{
				{Severity: models.SeverityError, TaskID: "T1", Line: "config start date: 02/30/24", Message: "Invalid Date"},
				{Severity: models.SeverityError, TaskID: "T1", Message: "The key 'all demo date' was not found"},
			},
		}}},
		{Severity: models.SeverityInfo, Tasks: []models.TaskIssues{{
			TaskID: "T2", TaskName: "Second", Site: "Globex",
			Issues: []models.IssueRecord{{Severity: models.SeverityInfo, TaskID: "T2", Message: "Empty Description"}},
		}}},
	}
}

func TestFormatIssueLog(t *testing.T) {
	want := "Log Level: ERROR\n" +
		"Task ID: T1\n" +
		"Task Name: First\n" +
		"Site: ACME\n" +
		"Line: config start date: 02/30/24\n" +
		"Issue: Invalid Date\n" +
		"Issue: The key 'all demo date' was not found\n" +
		"\n\n" +
		"\n\n" +
		"Log Level: INFO\n" +
		"Task ID: T2\n" +
		"Task Name: Second\n" +
		"Site: Globex\n" +
		"Issue: Empty Description\n" +
		"\n\n" +
		"\n\n"
	assert.Equal(t, want, FormatIssueLog(sampleGroups()))
}

func TestFormatIssueLog_Empty(t *testing.T) {
	assert.Equal(t, "", FormatIssueLog(nil))
	assert.Equal(t, "", FormatIssueLog([]models.SeverityGroup{{Severity: models.SeverityWarning}}))
}

func TestIssueReport_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	report := NewIssueReport(filepath.Join(dir, "logs", "result.log"))
	assert.Equal(t, filepath.Join(dir, "logs", "result.yaml"), report.ExportPath())

	runID, groups, err := report.Load()
	require.NoError(t, err)
	assert.Empty(t, runID)
	assert.Nil(t, groups)

	require.NoError(t, report.Save("run-1", sampleGroups()))

	text, err := os.ReadFile(report.LogPath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "Log Level: ERROR\n"))

	runID, groups, err = report.Load()
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, sampleGroups(), groups)
}

func TestIssueReport_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	report := NewIssueReport(filepath.Join(dir, "result.log"))
	require.NoError(t, os.WriteFile(report.ExportPath(), []byte("groups: [oops"), 0o644))

	_, _, err := report.Load()
	assert.Error(t, err)
}

func TestProperty_FormatIssueLogHasOneIssueLinePerRecord(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var groups []models.SeverityGroup
		total := 0
		for _, sev := range models.ReportOrder {
			n := rapid.IntRange(0, 3).Draw(t, string(sev)+"_tasks")
			g := models.SeverityGroup{Severity: sev}
			for i := 0; i < n; i++ {
				issues := rapid.IntRange(1, 3).Draw(t, string(sev)+"_issues")
				ti := models.TaskIssues{TaskID: "T", TaskName: "N", Site: "S"}
				for j := 0; j < issues; j++ {
					line := rapid.SampledFrom([]string{"", "some line"}).Draw(t, "line")
					ti.Issues = append(ti.Issues, models.IssueRecord{Severity: sev, Line: line, Message: "m"})
				}
				total += issues
				g.Tasks = append(g.Tasks, ti)
			}
			groups = append(groups, g)
		}

		out := FormatIssueLog(groups)
		if got := strings.Count(out, "Issue: m\n"); got != total {
			t.Fatalf("expected %d issue lines, got %d", total, got)
		}
	})
}
