package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
	"github.com/valter-silva-au/kanban-ageing/internal/storage"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = origStdout

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	return string(out)
}

// restoreServices resets every package-level service and the clock when the
// test ends.
func restoreServices(t *testing.T) {
	t.Helper()
	origBase, origConfig, origConfigMgr := BasePath, Config, ConfigMgr
	origHistory, origIssues := History, Issues
	origLog, origEngine, origCalc, origNotifier := EventLog, AlertEngine, MetricsCalc, Notifier
	origNow := reportNow
	t.Cleanup(func() {
		BasePath, Config, ConfigMgr = origBase, origConfig, origConfigMgr
		History, Issues = origHistory, origIssues
		EventLog, AlertEngine, MetricsCalc, Notifier = origLog, origEngine, origCalc, origNotifier
		reportNow = origNow
	})
	reportNow = func() time.Time { return testNow }
}

// templateHeader is the task sheet header of the test template.
var templateHeader = []any{
	models.ColumnTaskID, models.ColumnTaskName, models.ColumnBucketName, models.ColumnSite,
	models.ColumnDescription, models.ColumnLabels,
	core.FieldConfigurationInProgress, core.FieldNumberOfPeerReviews, core.FieldReadyToMigrateDate,
}

func writeTemplate(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating template dir: %v", err)
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Tasks"); err != nil {
		t.Fatalf("renaming sheet: %v", err)
	}
	row := templateHeader
	if err := f.SetSheetRow("Tasks", "A1", &row); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	if err := f.AddTable("Tasks", &excelize.Table{Range: "A1:I2", Name: "Tasks", StyleName: "TableStyleMedium2"}); err != nil {
		t.Fatalf("adding table: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving template: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// completeDescription records every key on 1/2/24 except the configuration
// end, which is 1/5/24.
func completeDescription() string {
	s := ""
	for _, k := range core.DescriptionKeys() {
		date := "1/2/24"
		if k == core.ConfigEndDate {
			date = "1/5/24"
		}
		s += k.Phrase() + ": " + date + "\n"
	}
	return s
}

// setupBase creates a base directory with the default layout, a template and
// one site file holding a complete task and a partial one, and wires the
// services the report uses.
func setupBase(t *testing.T) string {
	t.Helper()
	restoreServices(t)

	base := t.TempDir()
	cfg := core.DefaultConfig()
	writeTemplate(t, core.ResolvePath(base, cfg.Paths.Template))
	writeFile(t, filepath.Join(base, cfg.Paths.Files, ".gitkeep"), "")
	writeFile(t, filepath.Join(base, cfg.Paths.Files, "ACME tasks.csv"),
		"Task ID,Task Name,Bucket Name,Description,Labels\n"+
			"T-1,Good task,Done,\""+completeDescription()+"\",\n"+
			"T-2,Bad task,Doing,config start date: 1/2/24,\n")

	log, err := observability.NewJSONLEventLog(filepath.Join(base, observability.EventLogFileName))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })

	BasePath = base
	Config = cfg
	History = storage.NewHistoryManager(base)
	Issues = storage.NewIssueReport(core.ResolvePath(base, cfg.Paths.IssueLog))
	EventLog = log
	MetricsCalc = observability.NewMetricsCalculator(log)
	AlertEngine = observability.NewAlertEngine(log, observability.AlertThresholds{MaxExcludedTasks: 0, MaxErrors: 1})
	Notifier = nil
	return base
}
