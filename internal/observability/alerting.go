package observability

import (
	"fmt"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire. A zero threshold disables
// its check.
type AlertThresholds struct {
	MaxExcludedTasks       int `yaml:"max_excluded_tasks" json:"max_excluded_tasks"`
	MaxErrors              int `yaml:"max_errors" json:"max_errors"`
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`
	StaleReportDays        int `yaml:"stale_report_days" json:"stale_report_days"`
}

// DefaultAlertThresholds returns the thresholds used when none are configured.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MaxConsecutiveFailures: 1,
		StaleReportDays:        7,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine reading from eventLog.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{eventLog: eventLog, thresholds: thresholds, now: time.Now}
}

// Evaluate checks the latest run and the run history.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	runs, err := RunSummaries(ae.eventLog, nil)
	if err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	now := ae.now().UTC()

	var alerts []Alert
	if last := lastSucceeded(runs); last != nil {
		alerts = append(alerts, ae.checkRun(*last, now)...)
	}
	alerts = append(alerts, ae.checkFailures(runs, now)...)
	alerts = append(alerts, ae.checkStale(runs, now)...)
	return alerts, nil
}

// checkRun applies the per-run thresholds to s.
func (ae *alertEngine) checkRun(s RunSummary, now time.Time) []Alert {
	var alerts []Alert
	if limit := ae.thresholds.MaxExcludedTasks; limit > 0 && s.Excluded > limit {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("excluded-%s", s.RunID),
			Condition:   "too_many_excluded_tasks",
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("run %s excluded %d tasks from ageing, exceeding the maximum of %d", s.RunID, s.Excluded, limit),
			TriggeredAt: now,
		})
	}
	if limit := ae.thresholds.MaxErrors; limit > 0 && s.Errors > limit {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("errors-%s", s.RunID),
			Condition:   "too_many_description_errors",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("run %s recorded %d description errors, exceeding the maximum of %d", s.RunID, s.Errors, limit),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkFailures alerts when the most recent runs all failed.
func (ae *alertEngine) checkFailures(runs []RunSummary, now time.Time) []Alert {
	limit := ae.thresholds.MaxConsecutiveFailures
	if limit <= 0 {
		return nil
	}
	streak := 0
	for i := len(runs) - 1; i >= 0 && runs[i].Failed; i-- {
		streak++
	}
	if streak < limit {
		return nil
	}
	last := runs[len(runs)-1]
	return []Alert{{
		ID:          fmt.Sprintf("failed-%s", last.RunID),
		Condition:   "report_run_failed",
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("the last %d report runs failed, latest error: %s", streak, last.Message),
		TriggeredAt: now,
	}}
}

// checkStale alerts when no report was generated recently.
func (ae *alertEngine) checkStale(runs []RunSummary, now time.Time) []Alert {
	days := ae.thresholds.StaleReportDays
	if days <= 0 {
		return nil
	}
	last := lastSucceeded(runs)
	if last == nil {
		return nil
	}
	if now.Sub(last.At) <= time.Duration(days)*24*time.Hour {
		return nil
	}
	return []Alert{{
		ID:          "stale-report",
		Condition:   "report_stale",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("no report has been generated for more than %d days (last on %s)", days, last.At.Format("2006-01-02")),
		TriggeredAt: now,
	}}
}

func lastSucceeded(runs []RunSummary) *RunSummary {
	for i := len(runs) - 1; i >= 0; i-- {
		if !runs[i].Failed {
			return &runs[i]
		}
	}
	return nil
}
