package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
	"gopkg.in/yaml.v3"
)

// issueExportFile is the YAML document written next to result.log.
type issueExportFile struct {
	Version string                 `yaml:"version"`
	RunID   string                 `yaml:"run_id,omitempty"`
	Groups  []models.SeverityGroup `yaml:"groups"`
}

// IssueReport persists the grouped issues of a run: a plain-text log in
// the layout operators read, and a YAML export the CLI can load back.
type IssueReport interface {
	Save(runID string, groups []models.SeverityGroup) error
	Load() (runID string, groups []models.SeverityGroup, err error)
	LogPath() string
	ExportPath() string
}

type fileIssueReport struct {
	logPath string
}

// NewIssueReport creates an IssueReport writing the text log to logPath and
// the YAML export to the same path with a .yaml extension.
func NewIssueReport(logPath string) IssueReport {
	return &fileIssueReport{logPath: logPath}
}

func (r *fileIssueReport) LogPath() string { return r.logPath }

func (r *fileIssueReport) ExportPath() string {
	return strings.TrimSuffix(r.logPath, filepath.Ext(r.logPath)) + ".yaml"
}

func (r *fileIssueReport) Save(runID string, groups []models.SeverityGroup) error {
	if err := os.MkdirAll(filepath.Dir(r.logPath), 0o750); err != nil {
		return fmt.Errorf("saving issue log: creating directory: %w", err)
	}
	if err := os.WriteFile(r.logPath, []byte(FormatIssueLog(groups)), 0o644); err != nil {
		return fmt.Errorf("saving issue log: writing file: %w", err)
	}

	data, err := yaml.Marshal(&issueExportFile{Version: "1.0", RunID: runID, Groups: groups})
	if err != nil {
		return fmt.Errorf("saving issue export: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(r.ExportPath(), data, 0o644); err != nil {
		return fmt.Errorf("saving issue export: writing file: %w", err)
	}
	return nil
}

func (r *fileIssueReport) Load() (string, []models.SeverityGroup, error) {
	data, err := os.ReadFile(r.ExportPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("loading issue export: %w", err)
	}
	var f issueExportFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("loading issue export: parsing YAML: %w", err)
	}
	return f.RunID, f.Groups, nil
}

// FormatIssueLog renders groups in the result.log layout. Groups are written
// in the order given; a Line entry appears only for issues tied to a line.
func FormatIssueLog(groups []models.SeverityGroup) string {
	var b strings.Builder
	for _, g := range groups {
		if len(g.Tasks) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Log Level: %s\n", g.Severity)
		for _, task := range g.Tasks {
			fmt.Fprintf(&b, "Task ID: %s\n", task.TaskID)
			fmt.Fprintf(&b, "Task Name: %s\n", task.TaskName)
			fmt.Fprintf(&b, "Site: %s\n", task.Site)
			for _, issue := range task.Issues {
				if issue.Line != "" {
					fmt.Fprintf(&b, "Line: %s\n", issue.Line)
				}
				fmt.Fprintf(&b, "Issue: %s\n", issue.Message)
			}
			b.WriteString("\n\n")
		}
		b.WriteString("\n\n")
	}
	return b.String()
}
