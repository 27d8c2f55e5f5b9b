package models

// PathsConfig locates the inputs and outputs of a report run. Relative paths
// are resolved against the base path.
type PathsConfig struct {
	Files    string `yaml:"files" mapstructure:"files"`
	Template string `yaml:"template" mapstructure:"template"`
	Reports  string `yaml:"reports" mapstructure:"reports"`
	Latest   string `yaml:"latest" mapstructure:"latest"`
	IssueLog string `yaml:"issue_log" mapstructure:"issue_log"`
}

// ReportConfig controls how the generated workbook is named and filled.
type ReportConfig struct {
	Name           string `yaml:"name" mapstructure:"name"`
	Sheet          string `yaml:"sheet" mapstructure:"sheet"`
	Formulas       bool   `yaml:"formulas" mapstructure:"formulas"`
	HighlightColor string `yaml:"highlight_color" mapstructure:"highlight_color"`
}

// CalendarConfig controls the holiday set used for business-day counts.
// ExtraDates are MM/DD pairs applied to every covered year.
type CalendarConfig struct {
	YearsBack  int      `yaml:"years_back" mapstructure:"years_back"`
	ExtraDates []string `yaml:"extra_dates" mapstructure:"extra_dates"`
}

// PipelineConfig tunes the parse step.
type PipelineConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// AlertConfig holds the thresholds evaluated against each run summary.
// A zero threshold disables the corresponding alert.
type AlertConfig struct {
	MaxExcludedTasks       int `yaml:"max_excluded_tasks" mapstructure:"max_excluded_tasks"`
	MaxErrors              int `yaml:"max_errors" mapstructure:"max_errors"`
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" mapstructure:"max_consecutive_failures"`
	StaleReportDays        int `yaml:"stale_report_days" mapstructure:"stale_report_days"`
}

// SlackConfig holds the Slack incoming webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig controls run alert delivery.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
	Alerts  AlertConfig `yaml:"alerts" mapstructure:"alerts"`
}

// MetricsConfig controls the Prometheus textfile export. An empty Textfile
// disables the export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// Config holds every setting read from .karconfig via Viper.
type Config struct {
	Paths         PathsConfig        `yaml:"paths" mapstructure:"paths"`
	Report        ReportConfig       `yaml:"report" mapstructure:"report"`
	Calendar      CalendarConfig     `yaml:"calendar" mapstructure:"calendar"`
	Pipeline      PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}
