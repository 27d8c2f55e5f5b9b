package observability

import (
	"time"
)

// RunSummary is the outcome of one report run as recorded in the event log.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	At         time.Time     `json:"at"`
	Failed     bool          `json:"failed"`
	Message    string        `json:"message,omitempty"`
	ReportPath string        `json:"report_path,omitempty"`
	Tasks      int           `json:"tasks"`
	Excluded   int           `json:"excluded"`
	Errors     int           `json:"errors"`
	Infos      int           `json:"infos"`
	Warnings   int           `json:"warnings"`
	Duration   time.Duration `json:"duration"`
}

// data renders the summary as event data.
func (s RunSummary) data() map[string]any {
	d := map[string]any{
		"tasks":       s.Tasks,
		"excluded":    s.Excluded,
		"errors":      s.Errors,
		"infos":       s.Infos,
		"warnings":    s.Warnings,
		"duration_ms": s.Duration.Milliseconds(),
	}
	if s.ReportPath != "" {
		d["report_path"] = s.ReportPath
	}
	return d
}

// SummaryFromEvent rebuilds a RunSummary from a report.generated or
// report.failed event.
func SummaryFromEvent(e Event) RunSummary {
	s := RunSummary{
		RunID:    e.RunID,
		At:       e.Time,
		Failed:   e.Type == EventReportFailed,
		Message:  e.Message,
		Tasks:    intField(e.Data, "tasks"),
		Excluded: intField(e.Data, "excluded"),
		Errors:   intField(e.Data, "errors"),
		Infos:    intField(e.Data, "infos"),
		Warnings: intField(e.Data, "warnings"),
		Duration: time.Duration(intField(e.Data, "duration_ms")) * time.Millisecond,
	}
	s.ReportPath, _ = e.Data["report_path"].(string)
	return s
}

// intField reads a number from event data. Values read back from JSON are
// float64.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// RunRecorder writes the events of a single run.
type RunRecorder struct {
	log   EventLog
	runID string
	now   func() time.Time
}

// NewRunRecorder creates a RunRecorder for runID. A nil log discards events.
func NewRunRecorder(log EventLog, runID string) *RunRecorder {
	return &RunRecorder{log: log, runID: runID, now: time.Now}
}

// RunID returns the run the recorder writes for.
func (r *RunRecorder) RunID() string { return r.runID }

func (r *RunRecorder) write(level, typ, msg string, data map[string]any) error {
	if r.log == nil {
		return nil
	}
	return r.log.Write(Event{
		Time:    r.now().UTC(),
		Level:   level,
		Type:    typ,
		RunID:   r.runID,
		Message: msg,
		Data:    data,
	})
}

// Started records the start of the run over the given site files.
func (r *RunRecorder) Started(sources []string) error {
	return r.write(LevelInfo, EventReportStarted, "report run started", map[string]any{"sources": sources})
}

// IssuesRecorded records the issue counts of the run.
func (r *RunRecorder) IssuesRecorded(errors, infos, warnings int) error {
	level := LevelInfo
	if errors > 0 {
		level = LevelWarn
	}
	return r.write(level, EventIssuesRecorded, "description issues recorded", map[string]any{
		"errors":   errors,
		"infos":    infos,
		"warnings": warnings,
	})
}

// Generated records a successful run.
func (r *RunRecorder) Generated(s RunSummary) error {
	return r.write(LevelInfo, EventReportGenerated, "report generated", s.data())
}

// Failed records a run that stopped with err.
func (r *RunRecorder) Failed(s RunSummary, err error) error {
	return r.write(LevelError, EventReportFailed, err.Error(), s.data())
}

// RunSummaries returns every finished run in the log, oldest first.
func RunSummaries(log EventLog, since *time.Time) ([]RunSummary, error) {
	events, err := log.Read(EventFilter{Since: since})
	if err != nil {
		return nil, err
	}
	var runs []RunSummary
	for _, e := range events {
		if e.Type == EventReportGenerated || e.Type == EventReportFailed {
			runs = append(runs, SummaryFromEvent(e))
		}
	}
	return runs, nil
}
