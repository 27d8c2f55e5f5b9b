package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// HistoryFileName is the report history index kept in the base directory.
const HistoryFileName = "history.yaml"

// RunStatus is the outcome of a report run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunEntry records one report run.
type RunEntry struct {
	ID          string    `yaml:"id"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Status      RunStatus `yaml:"status"`
	ReportPath  string    `yaml:"report_path,omitempty"`
	Sources     []string  `yaml:"sources"`
	Tasks       int       `yaml:"tasks"`
	Excluded    int       `yaml:"excluded"`
	Errors      int       `yaml:"errors"`
	Infos       int       `yaml:"infos"`
	Warnings    int       `yaml:"warnings"`
	Message     string    `yaml:"message,omitempty"`
}

// HistoryFilter selects runs. Zero fields match everything.
type HistoryFilter struct {
	Status RunStatus
	Since  time.Time
	Limit  int
}

// HistoryFile is the top-level structure of history.yaml.
type HistoryFile struct {
	Version string     `yaml:"version"`
	Runs    []RunEntry `yaml:"runs"`
}

// HistoryManager keeps the index of generated reports.
type HistoryManager interface {
	// AddRun stores entry, assigning an ID and timestamp when they are unset,
	// and returns the stored entry.
	AddRun(entry RunEntry) (RunEntry, error)
	GetRun(id string) (*RunEntry, error)
	// ListRuns returns matching runs, newest first.
	ListRuns(filter HistoryFilter) ([]RunEntry, error)
	// Prune keeps the newest keep runs and returns how many were removed.
	Prune(keep int) (int, error)
	Load() error
	Save() error
}

type fileHistoryManager struct {
	basePath string
	now      func() time.Time
	data     HistoryFile
}

// NewHistoryManager creates a HistoryManager backed by history.yaml in
// basePath.
func NewHistoryManager(basePath string) HistoryManager {
	return &fileHistoryManager{
		basePath: basePath,
		now:      time.Now,
		data:     HistoryFile{Version: "1.0"},
	}
}

func (m *fileHistoryManager) filePath() string {
	return filepath.Join(m.basePath, HistoryFileName)
}

func (m *fileHistoryManager) AddRun(entry RunEntry) (RunEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, err := uuid.Parse(entry.ID); err != nil {
		return RunEntry{}, fmt.Errorf("adding run: invalid ID %q: %w", entry.ID, err)
	}
	for _, r := range m.data.Runs {
		if r.ID == entry.ID {
			return RunEntry{}, fmt.Errorf("adding run: run %s already exists", entry.ID)
		}
	}
	if entry.GeneratedAt.IsZero() {
		entry.GeneratedAt = m.now().UTC()
	}
	if entry.Status == "" {
		entry.Status = RunSucceeded
	}
	m.data.Runs = append(m.data.Runs, entry)
	return entry, nil
}

func (m *fileHistoryManager) GetRun(id string) (*RunEntry, error) {
	for _, r := range m.data.Runs {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("run %s not found", id)
}

func (m *fileHistoryManager) sorted() []RunEntry {
	runs := append([]RunEntry{}, m.data.Runs...)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].GeneratedAt.After(runs[j].GeneratedAt)
	})
	return runs
}

func (m *fileHistoryManager) ListRuns(filter HistoryFilter) ([]RunEntry, error) {
	var result []RunEntry
	for _, r := range m.sorted() {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && r.GeneratedAt.Before(filter.Since) {
			continue
		}
		result = append(result, r)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *fileHistoryManager) Prune(keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("pruning history: keep must be non-negative, got %d", keep)
	}
	runs := m.sorted()
	if len(runs) <= keep {
		return 0, nil
	}
	removed := len(runs) - keep
	m.data.Runs = runs[:keep]
	return removed, nil
}

func (m *fileHistoryManager) Load() error {
	data, err := os.ReadFile(m.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			m.data = HistoryFile{Version: "1.0"}
			return nil
		}
		return fmt.Errorf("loading history: %w", err)
	}

	var hf HistoryFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return fmt.Errorf("loading history: parsing YAML: %w", err)
	}
	m.data = hf
	return nil
}

func (m *fileHistoryManager) Save() error {
	if err := os.MkdirAll(m.basePath, 0o750); err != nil {
		return fmt.Errorf("saving history: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&m.data)
	if err != nil {
		return fmt.Errorf("saving history: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(m.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving history: writing file: %w", err)
	}
	return nil
}
