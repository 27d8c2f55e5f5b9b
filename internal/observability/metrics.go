package observability

import (
	"fmt"
	"time"
)

// Metrics aggregates the report runs found in the event log.
type Metrics struct {
	RunsStarted      int            `json:"runs_started"`
	RunsSucceeded    int            `json:"runs_succeeded"`
	RunsFailed       int            `json:"runs_failed"`
	TasksProcessed   int            `json:"tasks_processed"`
	TasksExcluded    int            `json:"tasks_excluded"`
	IssuesBySeverity map[string]int `json:"issues_by_severity"`
	AverageDuration  time.Duration  `json:"average_duration"`
	LastRun          *RunSummary    `json:"last_run,omitempty"`
	LastSuccess      *time.Time     `json:"last_success,omitempty"`
	EventCount       int            `json:"event_count"`
	OldestEvent      *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time     `json:"newest_event,omitempty"`
}

// ExclusionRate is the share of processed tasks that were excluded.
func (m *Metrics) ExclusionRate() float64 {
	if m.TasksProcessed == 0 {
		return 0
	}
	return float64(m.TasksExcluded) / float64(m.TasksProcessed)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event since the given time.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{IssuesBySeverity: make(map[string]int)}
	m.EventCount = len(events)

	var total time.Duration
	finished := 0
	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case EventReportStarted:
			m.RunsStarted++
		case EventReportGenerated, EventReportFailed:
			s := SummaryFromEvent(event)
			if s.Failed {
				m.RunsFailed++
			} else {
				m.RunsSucceeded++
				m.TasksProcessed += s.Tasks
				m.TasksExcluded += s.Excluded
				at := s.At
				m.LastSuccess = &at
			}
			total += s.Duration
			finished++
			m.LastRun = &s
		case EventIssuesRecorded:
			m.IssuesBySeverity["ERROR"] += intField(event.Data, "errors")
			m.IssuesBySeverity["INFO"] += intField(event.Data, "infos")
			m.IssuesBySeverity["WARNING"] += intField(event.Data, "warnings")
		}
	}
	if finished > 0 {
		m.AverageDuration = total / time.Duration(finished)
	}
	return m, nil
}
