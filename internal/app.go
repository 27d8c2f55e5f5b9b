// Package internal provides the App struct that wires all components of the
// Kanban ageing report together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"

	"github.com/valter-silva-au/kanban-ageing/internal/cli"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
	"github.com/valter-silva-au/kanban-ageing/internal/storage"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// HomeEnv overrides the base path lookup.
const HomeEnv = "KAR_HOME"

// App holds all service dependencies of the report.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	// Storage layer
	History storage.HistoryManager
	Issues  storage.IssueReport

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of the report. basePath is the
// directory holding .karconfig and the default files layout.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		// An unreadable config falls back to the defaults; report validates
		// whatever is loaded before running.
		cfg = core.DefaultConfig()
	}
	app.Config = cfg

	// --- Storage layer ---
	app.History = storage.NewHistoryManager(basePath)
	_ = app.History.Load() // Non-fatal: empty history on first use.
	app.Issues = storage.NewIssueReport(core.ResolvePath(basePath, cfg.Paths.IssueLog))

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, observability.EventLogFileName)
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, alertThresholds(cfg.Notifications.Alerts))
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL, cfg.Report.Name)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = app.Config
	cli.ConfigMgr = app.ConfigMgr
	cli.History = app.History
	cli.Issues = app.Issues

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

func alertThresholds(c models.AlertConfig) observability.AlertThresholds {
	return observability.AlertThresholds{
		MaxExcludedTasks:       c.MaxExcludedTasks,
		MaxErrors:              c.MaxErrors,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
		StaleReportDays:        c.StaleReportDays,
	}
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path of the report. KAR_HOME wins,
// then the nearest directory holding .karconfig, then the current directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	// Walk up to find a directory containing .karconfig.
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	// Fall back to cwd.
	cwd, _ := os.Getwd()
	return cwd
}
