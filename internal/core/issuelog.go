package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// ErrUnsupportedSeverity is returned by IssueLog.Add for a severity outside
// the Info/Warning/Error set.
var ErrUnsupportedSeverity = errors.New("unsupported severity")

// IssueLog accumulates the issues found during one run. It is append-only and
// safe for concurrent use. A task holding at least one Error is excluded from
// ageing computation.
type IssueLog struct {
	mu      sync.Mutex
	records []models.IssueRecord
}

// NewIssueLog creates an empty IssueLog.
func NewIssueLog() *IssueLog {
	return &IssueLog{}
}

// Add records an issue for task. line is the offending description line, or
// empty when the issue is not tied to a line.
func (l *IssueLog) Add(severity models.Severity, line string, task models.TaskRow, message string) error {
	if !severity.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedSeverity, severity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, models.IssueRecord{
		Severity: severity,
		TaskID:   task.ID,
		TaskName: task.Name,
		Site:     task.Site,
		Line:     line,
		Message:  message,
	})
	return nil
}

// Info records an Info issue.
func (l *IssueLog) Info(line string, task models.TaskRow, message string) {
	_ = l.Add(models.SeverityInfo, line, task, message)
}

// Warning records a Warning issue.
func (l *IssueLog) Warning(line string, task models.TaskRow, message string) {
	_ = l.Add(models.SeverityWarning, line, task, message)
}

// Error records an Error issue, which excludes the task from ageing.
func (l *IssueLog) Error(line string, task models.TaskRow, message string) {
	_ = l.Add(models.SeverityError, line, task, message)
}

// Merge appends every record of other, in order.
func (l *IssueLog) Merge(other *IssueLog) {
	if other == nil || other == l {
		return
	}
	recs := other.Records()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, recs...)
}

// Records returns a copy of every record in append order.
func (l *IssueLog) Records() []models.IssueRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.IssueRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *IssueLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Count returns the number of records with the given severity.
func (l *IssueLog) Count(severity models.Severity) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.Severity == severity {
			n++
		}
	}
	return n
}

// Grouped returns the records grouped by severity in report order (Error,
// Info, Warning) and then by task in first-appearance order. Severities with
// no records are omitted.
func (l *IssueLog) Grouped() []models.SeverityGroup {
	recs := l.Records()

	var groups []models.SeverityGroup
	for _, sev := range models.ReportOrder {
		index := make(map[string]int)
		var tasks []models.TaskIssues
		for _, r := range recs {
			if r.Severity != sev {
				continue
			}
			i, ok := index[r.TaskID]
			if !ok {
				i = len(tasks)
				index[r.TaskID] = i
				tasks = append(tasks, models.TaskIssues{
					TaskID:   r.TaskID,
					TaskName: r.TaskName,
					Site:     r.Site,
				})
			}
			tasks[i].Issues = append(tasks[i].Issues, r)
		}
		if len(tasks) > 0 {
			groups = append(groups, models.SeverityGroup{Severity: sev, Tasks: tasks})
		}
	}
	return groups
}

// ExcludedTaskIDs lists, in first-appearance order, every task holding at
// least one Error record.
func (l *IssueLog) ExcludedTaskIDs() []string {
	recs := l.Records()
	seen := make(map[string]bool)
	var ids []string
	for _, r := range recs {
		if r.Severity == models.SeverityError && !seen[r.TaskID] {
			seen[r.TaskID] = true
			ids = append(ids, r.TaskID)
		}
	}
	return ids
}

// ExclusionSet returns ExcludedTaskIDs as a set.
func (l *IssueLog) ExclusionSet() map[string]struct{} {
	ids := l.ExcludedTaskIDs()
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
