package models

// Severity classifies an issue found while validating a task description.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// ReportOrder is the order severities appear in the issue report.
var ReportOrder = []Severity{SeverityError, SeverityInfo, SeverityWarning}

// IsValid reports whether s is one of the supported severities.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// IssueRecord is one problem found in a task. Line holds the offending
// description line, or is empty when the issue concerns the task as a whole.
type IssueRecord struct {
	Severity Severity `json:"severity" yaml:"severity"`
	TaskID   string   `json:"task_id" yaml:"task_id"`
	TaskName string   `json:"task_name" yaml:"task_name"`
	Site     string   `json:"site" yaml:"site"`
	Line     string   `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// TaskIssues groups the issues of one task under a single severity.
type TaskIssues struct {
	TaskID   string        `json:"task_id" yaml:"task_id"`
	TaskName string        `json:"task_name" yaml:"task_name"`
	Site     string        `json:"site" yaml:"site"`
	Issues   []IssueRecord `json:"issues" yaml:"issues"`
}

// SeverityGroup holds every task that has at least one issue of Severity.
type SeverityGroup struct {
	Severity Severity     `json:"severity" yaml:"severity"`
	Tasks    []TaskIssues `json:"tasks" yaml:"tasks"`
}
