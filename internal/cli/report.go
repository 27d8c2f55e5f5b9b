package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/calendar"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/integration"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
	"github.com/valter-silva-au/kanban-ageing/internal/storage"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

var reportJSON bool

// reportNow is the clock of report runs. Tests replace it.
var reportNow = time.Now

// reportOutcome summarises one report run.
type reportOutcome struct {
	RunID    string                     `json:"run_id"`
	Sources  []string                   `json:"sources"`
	Report   *integration.WrittenReport `json:"report,omitempty"`
	IssueLog string                     `json:"issue_log,omitempty"`
	Tasks    int                        `json:"tasks"`
	Excluded int                        `json:"excluded"`
	Errors   int                        `json:"errors"`
	Infos    int                        `json:"infos"`
	Warnings int                        `json:"warnings"`
	Duration time.Duration              `json:"duration"`
	Alerts   []observability.Alert      `json:"alerts,omitempty"`

	started bool
}

func (o *reportOutcome) summary() observability.RunSummary {
	s := observability.RunSummary{
		RunID:    o.RunID,
		Tasks:    o.Tasks,
		Excluded: o.Excluded,
		Errors:   o.Errors,
		Infos:    o.Infos,
		Warnings: o.Warnings,
		Duration: o.Duration,
	}
	if o.Report != nil {
		s.ReportPath = o.Report.Path
	}
	return s
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the Kanban ageing report",
	Long: `Generate the ageing workbook from every site file in the files directory.

The run reads each .csv and .xlsx export, merges the tasks into the Kanban
template, validates every description, computes the ageing columns and writes
the workbook into the reports directory. The latest directory receives a copy.
Description problems are written to the issue log; tasks with errors are
highlighted and left without ageing values.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config == nil {
			return fmt.Errorf("configuration not loaded")
		}
		if err := core.NewConfigurationManager(BasePath).ValidateConfig(Config); err != nil {
			return err
		}

		out, err := runReport(Config, uuid.NewString())
		if err != nil {
			return err
		}

		if reportJSON {
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting report outcome as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Report written: %s\n", out.Report.Path)
		fmt.Printf("Latest copy:    %s\n", out.Report.LatestPath)
		fmt.Printf("Sites:          %d file(s)\n", len(out.Sources))
		fmt.Printf("Tasks:          %d (%d excluded)\n", out.Tasks, out.Excluded)
		fmt.Printf("Issues:         %d error(s), %d info(s), %d warning(s)\n", out.Errors, out.Infos, out.Warnings)
		if out.IssueLog != "" {
			fmt.Printf("Issue log:      %s\n", out.IssueLog)
		}
		for _, a := range out.Alerts {
			fmt.Printf("  [%s] %s\n", a.Severity, a.Message)
		}
		return nil
	},
}

// runReport performs one report run and records its outcome in the event log,
// the history index and the metrics textfile. Failures are recorded too.
func runReport(cfg *models.Config, runID string) (*reportOutcome, error) {
	unlock, err := core.LockRun(BasePath)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", BasePath, err)
	}
	defer func() { warnOn(unlock(), "releasing run lock") }()

	start := reportNow()
	rec := observability.NewRunRecorder(EventLog, runID)
	out := &reportOutcome{RunID: runID}
	logger.Info("report run started", "run_id", runID, "base", BasePath)

	err = buildReport(cfg, start, rec, out)
	out.Duration = reportNow().Sub(start)

	entry := storage.RunEntry{
		ID:          runID,
		GeneratedAt: start.UTC(),
		Status:      storage.RunSucceeded,
		Sources:     out.Sources,
		Tasks:       out.Tasks,
		Excluded:    out.Excluded,
		Errors:      out.Errors,
		Infos:       out.Infos,
		Warnings:    out.Warnings,
	}
	if out.Report != nil {
		entry.ReportPath = out.Report.Path
	}

	if err != nil {
		if !out.started {
			warnOn(rec.Started(out.Sources), "recording run start")
		}
		warnOn(rec.Failed(out.summary(), err), "recording run failure")
		entry.Status = storage.RunFailed
		entry.Message = err.Error()
		logger.Error("report run failed", "run_id", runID, "error", err)
	} else {
		warnOn(rec.Generated(out.summary()), "recording run")
		logger.Info("report generated", "run_id", runID, "path", entry.ReportPath, "duration", out.Duration)
	}

	run := out.summary()
	run.At = start.UTC()
	run.Failed = err != nil
	run.Message = entry.Message

	warnOn(recordHistory(entry), "recording history")
	warnOn(exportMetrics(cfg), "exporting metrics")
	out.Alerts = evaluateAlerts(cfg, &run)

	return out, err
}

func buildReport(cfg *models.Config, now time.Time, rec *observability.RunRecorder, out *reportOutcome) error {
	clock := func() time.Time { return now }

	sources, err := integration.NewSourceReader(core.ResolvePath(BasePath, cfg.Paths.Files)).ReadSources()
	for _, s := range sources {
		out.Sources = append(out.Sources, s.Name)
	}
	if err != nil {
		return fmt.Errorf("reading site files: %w", err)
	}
	warnOn(rec.Started(out.Sources), "recording run start")
	out.started = true
	logger.Debug("site files read", "count", len(sources))

	cal, err := calendar.Build(now.Year(), cfg.Calendar.YearsBack, cfg.Calendar.ExtraDates)
	if err != nil {
		return fmt.Errorf("building holiday calendar: %w", err)
	}
	logger.Debug("holiday calendar built", "holidays", len(cal.Holidays()))

	writer := integration.NewWorkbookWriter(integration.WorkbookConfig{
		Template:       core.ResolvePath(BasePath, cfg.Paths.Template),
		Sheet:          cfg.Report.Sheet,
		ReportsDir:     core.ResolvePath(BasePath, cfg.Paths.Reports),
		LatestDir:      core.ResolvePath(BasePath, cfg.Paths.Latest),
		Name:           cfg.Report.Name,
		HighlightColor: cfg.Report.HighlightColor,
	})
	columns, err := writer.TemplateColumns()
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	table := core.MergeIntoTemplate(columns, sources)
	out.Tasks = len(table.Rows)

	var formulas *core.FormulaFormatter
	if cfg.Report.Formulas {
		formulas = core.NewFormulaFormatter(cal.FormulaArray(), clock)
	}
	pipeline := core.NewPipeline(
		core.NewDescriptionParser(clock, cfg.Pipeline.Workers),
		core.NewAgeingReducer(cal, clock),
		core.DefaultRuleTable(),
		formulas,
	)
	report, err := pipeline.Run(table)
	if err != nil {
		return err
	}

	out.Excluded = len(report.Excluded)
	out.Errors = report.Issues.Count(models.SeverityError)
	out.Infos = report.Issues.Count(models.SeverityInfo)
	out.Warnings = report.Issues.Count(models.SeverityWarning)
	warnOn(rec.IssuesRecorded(out.Errors, out.Infos, out.Warnings), "recording issues")

	issues := Issues
	if issues == nil {
		issues = storage.NewIssueReport(core.ResolvePath(BasePath, cfg.Paths.IssueLog))
	}
	if err := issues.Save(out.RunID, report.Issues.Grouped()); err != nil {
		return fmt.Errorf("writing issue log: %w", err)
	}
	out.IssueLog = issues.LogPath()

	written, err := writer.Write(report.Rows(), now)
	if err != nil {
		return fmt.Errorf("writing report workbook: %w", err)
	}
	out.Report = written
	return nil
}

func recordHistory(entry storage.RunEntry) error {
	if History == nil {
		return nil
	}
	if err := History.Load(); err != nil {
		return err
	}
	if _, err := History.AddRun(entry); err != nil {
		return err
	}
	return History.Save()
}

func exportMetrics(cfg *models.Config) error {
	if cfg.Metrics.Textfile == "" || EventLog == nil {
		return nil
	}
	runs, err := observability.RunSummaries(EventLog, nil)
	if err != nil {
		return fmt.Errorf("reading runs: %w", err)
	}
	collector := observability.NewRunCollector()
	collector.ObserveAll(runs)
	return collector.WriteTextfile(core.ResolvePath(BasePath, cfg.Metrics.Textfile))
}

// evaluateAlerts checks the alert thresholds after run and posts any alert
// when notifications are enabled.
func evaluateAlerts(cfg *models.Config, run *observability.RunSummary) []observability.Alert {
	if AlertEngine == nil {
		return nil
	}
	alerts, err := AlertEngine.Evaluate()
	if err != nil {
		warnOn(err, "evaluating alerts")
		return nil
	}
	if cfg.Notifications.Enabled && Notifier != nil {
		warnOn(Notifier.Notify(run, alerts), "sending notifications")
	}
	return alerts
}

func warnOn(err error, action string) {
	if err != nil {
		logger.Warn(action+" failed", "error", err)
	}
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output the run outcome as JSON")
	rootCmd.AddCommand(reportCmd)
}
