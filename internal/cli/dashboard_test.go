package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

func sampleGroups() []models.SeverityGroup {
	return []models.SeverityGroup{
		{Severity: models.SeverityError, Tasks: []models.TaskIssues{{
			TaskID: "T-2", TaskName: "Bad task", Site: "ACME",
			Issues: []models.IssueRecord{{Severity: models.SeverityError, Message: "date is invalid", Line: "config start date: 2/30/24"}},
		}}},
		{Severity: models.SeverityInfo, Tasks: []models.TaskIssues{
			{TaskID: "T-3", TaskName: "Quiet task", Site: "ZED", Issues: []models.IssueRecord{{Severity: models.SeverityInfo, Message: "empty description"}}},
			{TaskID: "T-2", TaskName: "Bad task", Site: "ACME", Issues: []models.IssueRecord{{Severity: models.SeverityInfo, Message: "key repeated"}}},
		}},
	}
}

func TestIssueTasks(t *testing.T) {
	tasks := issueTasks(sampleGroups())
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].id != "T-2" || !tasks[0].excluded || len(tasks[0].issues) != 2 {
		t.Errorf("unexpected first task %+v", tasks[0])
	}
	if tasks[0].issues[0].line != "config start date: 2/30/24" || tasks[0].issues[1].severity != "INFO" {
		t.Errorf("unexpected issues %+v", tasks[0].issues)
	}
	if tasks[1].id != "T-3" || tasks[1].excluded || tasks[1].site != "ZED" {
		t.Errorf("unexpected second task %+v", tasks[1])
	}
}

func TestIssueTasks_Empty(t *testing.T) {
	if tasks := issueTasks(nil); len(tasks) != 0 {
		t.Errorf("expected no tasks, got %+v", tasks)
	}
}

func press(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next
}

func loadedModel() dashboardModel {
	m := newDashboardModel()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	next, _ = next.Update(dataLoadedMsg{
		runID:   "run-1",
		tasks:   issueTasks(sampleGroups()),
		metrics: &metricsSnapshot{runsSucceeded: 2, runsFailed: 1, tasksProcessed: 40, tasksExcluded: 3, eventCount: 9},
		runs:    []runSnapshot{{at: "01/15 09:30", status: "succeeded", tasks: 20, excluded: 1}},
		alerts:  []alertSnapshot{{severity: "high", message: "the last 1 report runs failed", time: "2024-01-15 09:30 UTC"}},
	})
	return next.(dashboardModel)
}

func TestDashboardModel_PanelNavigation(t *testing.T) {
	var m tea.Model = loadedModel()

	m = press(m, "tab")
	if got := m.(dashboardModel).activePanel; got != panelRuns {
		t.Errorf("after tab activePanel = %d, want %d", got, panelRuns)
	}
	m = press(m, "tab")
	m = press(m, "tab")
	if got := m.(dashboardModel).activePanel; got != panelIssues {
		t.Errorf("tab must wrap around, got %d", got)
	}
	m = press(m, "shift+tab")
	if got := m.(dashboardModel).activePanel; got != panelAlerts {
		t.Errorf("after shift+tab activePanel = %d, want %d", got, panelAlerts)
	}
}

func TestDashboardModel_Cursor(t *testing.T) {
	var m tea.Model = loadedModel()

	m = press(m, "k")
	if got := m.(dashboardModel).cursor; got != 0 {
		t.Errorf("cursor must stay at the top, got %d", got)
	}
	m = press(m, "j")
	m = press(m, "j")
	if got := m.(dashboardModel).cursor; got != 1 {
		t.Errorf("cursor must stop at the last task, got %d", got)
	}

	m = press(m, "tab")
	m = press(m, "k")
	if got := m.(dashboardModel).cursor; got != 1 {
		t.Errorf("cursor only moves in the issues panel, got %d", got)
	}
}

func TestDashboardModel_QuitAndRefresh(t *testing.T) {
	m := loadedModel()

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Error("q must return a quit command")
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil || !next.(dashboardModel).loading {
		t.Error("r must reload the data")
	}
}

func TestDashboardModel_View(t *testing.T) {
	view := loadedModel().View()
	for _, want := range []string{"Kanban Ageing Dashboard", "T-2", "Bad task (ACME)", "date is invalid", "2 task(s), 1 excluded", "succeeded", "the last 1 report runs failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDashboardModel_ViewStates(t *testing.T) {
	m := newDashboardModel()
	if got := m.View(); got != "Loading..." {
		t.Errorf("unsized view = %q", got)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	next, _ = next.Update(dataLoadedMsg{err: errors.New("boom")})
	if view := next.View(); !strings.Contains(view, "Error: boom") {
		t.Errorf("error view missing the error:\n%s", view)
	}

	next, _ = next.Update(dataLoadedMsg{})
	view := next.View()
	for _, want := range []string{"No issues recorded.", "No runs recorded.", "No active alerts."} {
		if !strings.Contains(view, want) {
			t.Errorf("empty view missing %q:\n%s", want, view)
		}
	}
}

func TestLoadData(t *testing.T) {
	setupBase(t)
	reportNow = time.Now
	runID := uuid.NewString()
	if _, err := runReport(Config, runID); err != nil {
		t.Fatalf("report run failed: %v", err)
	}
	AlertEngine = staticAlerts(
		observability.Alert{Severity: observability.SeverityLow, Message: "low one"},
		observability.Alert{Severity: observability.SeverityHigh, Message: "high one"},
	)

	msg, ok := loadData().(dataLoadedMsg)
	if !ok {
		t.Fatal("loadData must return a dataLoadedMsg")
	}
	if msg.err != nil {
		t.Fatalf("unexpected error: %v", msg.err)
	}
	if msg.runID != runID || len(msg.tasks) != 1 || msg.tasks[0].id != "T-2" {
		t.Errorf("unexpected issues %q %+v", msg.runID, msg.tasks)
	}
	if msg.metrics == nil || msg.metrics.runsSucceeded != 1 || msg.metrics.tasksProcessed != 2 {
		t.Errorf("unexpected metrics %+v", msg.metrics)
	}
	if len(msg.runs) != 1 || msg.runs[0].status != "succeeded" {
		t.Errorf("unexpected runs %+v", msg.runs)
	}
	if len(msg.alerts) != 2 || msg.alerts[0].message != "high one" {
		t.Errorf("alerts must be sorted by severity, got %+v", msg.alerts)
	}
}

func TestDashboardCmd_NilIssues(t *testing.T) {
	restoreServices(t)
	Issues = nil

	err := dashboardCmd.RunE(dashboardCmd, []string{})
	if err == nil || !strings.Contains(err.Error(), "issue report not initialized") {
		t.Fatalf("unexpected error: %v", err)
	}
}
