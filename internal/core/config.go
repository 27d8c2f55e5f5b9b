// Package core contains the ageing engine of the Kanban report: the date
// token validator, the description parser, the issue log, the ageing rule
// table and reducer, and configuration loading.
package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// ConfigFileName is the name of the YAML configuration file, without extension.
const ConfigFileName = ".karconfig"

// hexColorPattern matches an RGB colour such as FFFF00.
var hexColorPattern = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// extraDatePattern matches a MM/DD holiday entry.
var extraDatePattern = regexp.MustCompile(`^\d{2}/\d{2}$`)

// ConfigurationManager loads and validates the .karconfig file.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .karconfig from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the configuration used when no .karconfig exists.
func DefaultConfig() *models.Config {
	return &models.Config{
		Paths: models.PathsConfig{
			Files:    "Files",
			Template: filepath.Join("Template", "Kanban Management Template.xlsx"),
			Reports:  "Report History",
			Latest:   "Latest Report",
			IssueLog: "result.log",
		},
		Report: models.ReportConfig{
			Name:           "Kanban Management",
			Sheet:          "Tasks",
			Formulas:       false,
			HighlightColor: "FFFF00",
		},
		Calendar: models.CalendarConfig{
			YearsBack: 0,
			ExtraDates: []string{
				"12/26", "12/27", "12/28", "12/29", "12/30", "12/31",
				"01/01", "01/02",
			},
		},
		Pipeline: models.PipelineConfig{Workers: 1},
		Notifications: models.NotificationConfig{
			Alerts: models.AlertConfig{MaxConsecutiveFailures: 1, StaleReportDays: 7},
		},
	}
}

// LoadConfig reads .karconfig from the base path. If the file does not
// exist, DefaultConfig is returned.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("paths.files", cfg.Paths.Files)
	v.SetDefault("paths.template", cfg.Paths.Template)
	v.SetDefault("paths.reports", cfg.Paths.Reports)
	v.SetDefault("paths.latest", cfg.Paths.Latest)
	v.SetDefault("paths.issue_log", cfg.Paths.IssueLog)
	v.SetDefault("report.name", cfg.Report.Name)
	v.SetDefault("report.sheet", cfg.Report.Sheet)
	v.SetDefault("report.formulas", cfg.Report.Formulas)
	v.SetDefault("report.highlight_color", cfg.Report.HighlightColor)
	v.SetDefault("calendar.years_back", cfg.Calendar.YearsBack)
	v.SetDefault("calendar.extra_dates", cfg.Calendar.ExtraDates)
	v.SetDefault("pipeline.workers", cfg.Pipeline.Workers)
	v.SetDefault("notifications.alerts.max_consecutive_failures", cfg.Notifications.Alerts.MaxConsecutiveFailures)
	v.SetDefault("notifications.alerts.stale_report_days", cfg.Notifications.Alerts.StaleReportDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg.Paths.Files = v.GetString("paths.files")
	cfg.Paths.Template = v.GetString("paths.template")
	cfg.Paths.Reports = v.GetString("paths.reports")
	cfg.Paths.Latest = v.GetString("paths.latest")
	cfg.Paths.IssueLog = v.GetString("paths.issue_log")
	cfg.Report.Name = v.GetString("report.name")
	cfg.Report.Sheet = v.GetString("report.sheet")
	cfg.Report.Formulas = v.GetBool("report.formulas")
	cfg.Report.HighlightColor = v.GetString("report.highlight_color")
	cfg.Calendar.YearsBack = v.GetInt("calendar.years_back")
	cfg.Calendar.ExtraDates = v.GetStringSlice("calendar.extra_dates")
	cfg.Pipeline.Workers = v.GetInt("pipeline.workers")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")
	cfg.Notifications.Alerts.MaxExcludedTasks = v.GetInt("notifications.alerts.max_excluded_tasks")
	cfg.Notifications.Alerts.MaxErrors = v.GetInt("notifications.alerts.max_errors")
	cfg.Notifications.Alerts.MaxConsecutiveFailures = v.GetInt("notifications.alerts.max_consecutive_failures")
	cfg.Notifications.Alerts.StaleReportDays = v.GetInt("notifications.alerts.stale_report_days")
	cfg.Metrics.Textfile = v.GetString("metrics.textfile")

	return cfg, nil
}

// ValidateConfig checks cfg and returns an error listing every invalid value.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	paths := map[string]string{
		"paths.files":     cfg.Paths.Files,
		"paths.template":  cfg.Paths.Template,
		"paths.reports":   cfg.Paths.Reports,
		"paths.latest":    cfg.Paths.Latest,
		"paths.issue_log": cfg.Paths.IssueLog,
	}
	for _, key := range []string{"paths.files", "paths.template", "paths.reports", "paths.latest", "paths.issue_log"} {
		if strings.TrimSpace(paths[key]) == "" {
			errs = append(errs, key+" must not be empty")
		}
	}

	if strings.TrimSpace(cfg.Report.Name) == "" {
		errs = append(errs, "report.name must not be empty")
	}
	if strings.TrimSpace(cfg.Report.Sheet) == "" {
		errs = append(errs, "report.sheet must not be empty")
	}
	if !hexColorPattern.MatchString(cfg.Report.HighlightColor) {
		errs = append(errs, fmt.Sprintf(
			"report.highlight_color %q is invalid, must be six hex digits such as FFFF00",
			cfg.Report.HighlightColor,
		))
	}

	if cfg.Calendar.YearsBack < 0 || cfg.Calendar.YearsBack > 10 {
		errs = append(errs, fmt.Sprintf(
			"calendar.years_back %d is invalid, must be between 0 and 10",
			cfg.Calendar.YearsBack,
		))
	}
	for _, d := range cfg.Calendar.ExtraDates {
		// 2000 is a leap year, so 02/29 is accepted.
		if !extraDatePattern.MatchString(d) || !IsValidDateInYear(d+"/2000", 2000) {
			errs = append(errs, fmt.Sprintf("calendar.extra_dates entry %q is invalid, must be MM/DD", d))
		}
	}

	if cfg.Pipeline.Workers < 1 || cfg.Pipeline.Workers > 64 {
		errs = append(errs, fmt.Sprintf(
			"pipeline.workers %d is invalid, must be between 1 and 64",
			cfg.Pipeline.Workers,
		))
	}

	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url must be set when notifications are enabled")
	}
	if cfg.Notifications.Alerts.MaxExcludedTasks < 0 {
		errs = append(errs, "notifications.alerts.max_excluded_tasks must be non-negative")
	}
	if cfg.Notifications.Alerts.MaxErrors < 0 {
		errs = append(errs, "notifications.alerts.max_errors must be non-negative")
	}
	if cfg.Notifications.Alerts.MaxConsecutiveFailures < 0 {
		errs = append(errs, "notifications.alerts.max_consecutive_failures must be non-negative")
	}
	if cfg.Notifications.Alerts.StaleReportDays < 0 {
		errs = append(errs, "notifications.alerts.stale_report_days must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ResolvePath joins a configured path onto basePath unless it is absolute.
func ResolvePath(basePath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}
