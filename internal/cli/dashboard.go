package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/kanban-ageing/internal/storage"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// Dashboard panel indices.
const (
	panelIssues = iota
	panelRuns
	panelAlerts
	panelCount
)

// recentRuns is how many history entries the runs panel shows.
const recentRuns = 5

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	runID   string
	tasks   []taskSnapshot
	cursor  int
	metrics *metricsSnapshot
	runs    []runSnapshot
	alerts  []alertSnapshot

	// State.
	loading bool
	err     error
}

// taskSnapshot is one task of the issue log with all of its issues.
type taskSnapshot struct {
	id       string
	name     string
	site     string
	excluded bool
	issues   []issueSnapshot
}

type issueSnapshot struct {
	severity string
	message  string
	line     string
}

type metricsSnapshot struct {
	runsSucceeded  int
	runsFailed     int
	tasksProcessed int
	tasksExcluded  int
	eventCount     int
}

type runSnapshot struct {
	at       string
	status   string
	tasks    int
	excluded int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	runID   string
	tasks   []taskSnapshot
	metrics *metricsSnapshot
	runs    []runSnapshot
	alerts  []alertSnapshot
	err     error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	excludedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	keptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusSucceeded = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelIssues,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "up", "k":
			if m.activePanel == panelIssues && m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.activePanel == panelIssues && m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runID = msg.runID
		m.tasks = msg.tasks
		m.metrics = msg.metrics
		m.runs = msg.runs
		m.alerts = msg.alerts
		if m.cursor >= len(m.tasks) {
			m.cursor = 0
		}
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Kanban Ageing Dashboard ")
	help := helpStyle.Render("tab: switch panel | j/k: select task | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	issuesPanel := m.renderIssuesPanel()
	runsPanel := m.renderRunsPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		issuesPanel = m.applyPanelStyle(panelIssues, issuesPanel, colWidth-4)
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, issuesPanel, runsPanel, alertsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		issuesPanel = m.applyPanelStyle(panelIssues, issuesPanel, panelWidth)
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, issuesPanel, runsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderIssuesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Issues"))
	b.WriteString("\n")

	if len(m.tasks) == 0 {
		b.WriteString("  No issues recorded.")
		return b.String()
	}

	excluded := 0
	for i, t := range m.tasks {
		if t.excluded {
			excluded++
		}
		label := fmt.Sprintf("%-12s %d issue(s)", t.id, len(t.issues))
		switch {
		case i == m.cursor && m.activePanel == panelIssues:
			label = selectedStyle.Render(label)
		case t.excluded:
			label = excludedStyle.Render(label)
		default:
			label = keptStyle.Render(label)
		}
		b.WriteString("  " + label + "\n")
	}
	b.WriteString(fmt.Sprintf("\n  %d task(s), %d excluded\n", len(m.tasks), excluded))

	if m.cursor < len(m.tasks) {
		t := m.tasks[m.cursor]
		b.WriteString(fmt.Sprintf("\n  %s (%s)\n", t.name, t.site))
		for _, is := range t.issues {
			b.WriteString(fmt.Sprintf("  [%s] %s\n", is.severity, is.message))
			if is.line != "" {
				b.WriteString(helpStyle.Render("        "+is.line) + "\n")
			}
		}
	}

	return b.String()
}

func (m dashboardModel) renderRunsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Runs (30d)"))
	b.WriteString("\n")

	if m.metrics != nil {
		md := m.metrics
		lines := []struct {
			label string
			value int
		}{
			{"Events", md.eventCount},
			{"Succeeded", md.runsSucceeded},
			{"Failed", md.runsFailed},
			{"Tasks", md.tasksProcessed},
			{"Excluded", md.tasksExcluded},
		}
		for _, l := range lines {
			b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
		}
	}

	if len(m.runs) == 0 {
		b.WriteString("\n  No runs recorded.")
		return b.String()
	}

	b.WriteString("\n")
	for _, r := range m.runs {
		status := styleForRunStatus(r.status).Render(fmt.Sprintf("%-9s", r.status))
		b.WriteString(fmt.Sprintf("  %s %s %d/%d\n", r.at, status, r.excluded, r.tasks))
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForRunStatus(status string) lipgloss.Style {
	switch storage.RunStatus(status) {
	case storage.RunSucceeded:
		return statusSucceeded
	case storage.RunFailed:
		return statusFailed
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

// issueTasks flattens the issue groups into one entry per task, in the order
// tasks first appear. Tasks with an ERROR are marked excluded.
func issueTasks(groups []models.SeverityGroup) []taskSnapshot {
	var tasks []taskSnapshot
	index := make(map[string]int)
	for _, g := range groups {
		for _, ti := range g.Tasks {
			i, ok := index[ti.TaskID]
			if !ok {
				i = len(tasks)
				index[ti.TaskID] = i
				tasks = append(tasks, taskSnapshot{id: ti.TaskID, name: ti.TaskName, site: ti.Site})
			}
			if g.Severity == models.SeverityError {
				tasks[i].excluded = true
			}
			for _, is := range ti.Issues {
				tasks[i].issues = append(tasks[i].issues, issueSnapshot{
					severity: string(is.Severity),
					message:  is.Message,
					line:     is.Line,
				})
			}
		}
	}
	return tasks
}

func loadData() tea.Msg {
	var result dataLoadedMsg

	// Load the issue log of the latest run.
	if Issues != nil {
		runID, groups, err := Issues.Load()
		if err != nil {
			result.err = fmt.Errorf("loading issues: %w", err)
			return result
		}
		result.runID = runID
		result.tasks = issueTasks(groups)
	}

	// Load metrics from MetricsCalc.
	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -30)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			runsSucceeded:  metrics.RunsSucceeded,
			runsFailed:     metrics.RunsFailed,
			tasksProcessed: metrics.TasksProcessed,
			tasksExcluded:  metrics.TasksExcluded,
			eventCount:     metrics.EventCount,
		}
	}

	// Load recent runs from the history.
	if History != nil {
		if err := History.Load(); err != nil {
			result.err = fmt.Errorf("loading history: %w", err)
			return result
		}
		runs, err := History.ListRuns(storage.HistoryFilter{Limit: recentRuns})
		if err != nil {
			result.err = fmt.Errorf("loading history: %w", err)
			return result
		}
		for _, r := range runs {
			result.runs = append(result.runs, runSnapshot{
				at:       r.GeneratedAt.Local().Format("01/02 15:04"),
				status:   string(r.Status),
				tasks:    r.Tasks,
				excluded: r.Excluded,
			})
		}
	}

	// Load alerts from AlertEngine.
	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// Sort alerts by severity: high first, then medium, then low.
		sort.Slice(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI for the latest issues, runs and alerts",
	Long: `Launch an interactive terminal dashboard showing the tasks of the latest
issue log, recent report runs and active alerts.

Navigate between panels with Tab, select a task with j/k, refresh with r,
quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Issues == nil {
			return fmt.Errorf("issue report not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
