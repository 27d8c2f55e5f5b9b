// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the description parser and ageing rules as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/integration"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// defaultTaskID identifies descriptions submitted without a task.
const defaultTaskID = "MCP"

// Server wraps the ageing services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	counter     core.BusinessDayCounter
	rules       []core.AgeingRule
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	now         func() time.Time
}

// NewServer creates a new MCP server. counter is the report calendar.
// metricsCalc and alertEngine may be nil if the event log is unavailable.
func NewServer(counter core.BusinessDayCounter, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		counter:     counter,
		rules:       core.DefaultRuleTable(),
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		now:         time.Now,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "kar", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type validateDateInput struct {
	Token string `json:"token" jsonschema:"required,a date token in M/D/YY or M/D/YYYY form (e.g. 1/5/24)"`
	Year  int    `json:"year,omitempty" jsonschema:"the current year used for two-digit year windowing. Defaults to this year."`
}

type validateDateOutput struct {
	Token string `json:"token"`
	Valid bool   `json:"valid"`
	Date  string `json:"date,omitempty"`
}

type descriptionInput struct {
	Description string `json:"description" jsonschema:"required,the task description, one key: dates line per stage"`
	TaskID      string `json:"task_id,omitempty" jsonschema:"the task the description belongs to, used in reported issues"`
}

type issueOutput struct {
	Severity string `json:"severity"`
	Line     string `json:"line,omitempty"`
	Message  string `json:"message"`
}

type parseDescriptionOutput struct {
	TaskID   string              `json:"task_id"`
	Empty    bool                `json:"empty"`
	Excluded bool                `json:"excluded"`
	Keys     map[string][]string `json:"keys"`
	Issues   []issueOutput       `json:"issues"`
}

type computeAgeingOutput struct {
	TaskID   string         `json:"task_id"`
	Excluded bool           `json:"excluded"`
	Values   map[string]any `json:"values"`
	Issues   []issueOutput  `json:"issues"`
}

type listRulesInput struct{}

type ruleOutput struct {
	Field    string   `json:"field"`
	Kind     string   `json:"kind"`
	Sources  []string `json:"sources"`
	Position *int     `json:"position,omitempty"`
}

type listRulesOutput struct {
	Rules []ruleOutput `json:"rules"`
	Count int          `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 30d."`
}

type metricsOutput struct {
	RunsStarted      int            `json:"runs_started"`
	RunsSucceeded    int            `json:"runs_succeeded"`
	RunsFailed       int            `json:"runs_failed"`
	TasksProcessed   int            `json:"tasks_processed"`
	TasksExcluded    int            `json:"tasks_excluded"`
	IssuesBySeverity map[string]int `json:"issues_by_severity"`
	EventCount       int            `json:"event_count"`
	LastSuccess      string         `json:"last_success,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "validate_date",
		Description: "Check whether a description date token is a valid calendar date and return it in ISO form.",
	}, s.handleValidateDate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "parse_description",
		Description: "Parse a task description into its stage keys and dates, returning every formatting issue found.",
	}, s.handleParseDescription)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "compute_ageing",
		Description: "Compute the ageing columns of a task description. Tasks with description errors are excluded and get no values.",
	}, s.handleComputeAgeing)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_rules",
		Description: "List the ageing rules: output column, reduction kind and the description keys each reads.",
	}, s.handleListRules)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated report run metrics from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active report alerts (excluded tasks, description errors, failed runs, stale report).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleValidateDate(_ context.Context, _ *gomcp.CallToolRequest, input validateDateInput) (*gomcp.CallToolResult, validateDateOutput, error) {
	if input.Token == "" {
		return errorResult("token is required"), validateDateOutput{}, nil
	}
	year := input.Year
	if year == 0 {
		year = s.now().Year()
	}

	out := validateDateOutput{Token: input.Token}
	if d, err := core.ParseDateToken(input.Token, year); err == nil {
		out.Valid = true
		out.Date = d.Format("2006-01-02")
	}
	return nil, out, nil
}

func (s *Server) handleParseDescription(_ context.Context, _ *gomcp.CallToolRequest, input descriptionInput) (*gomcp.CallToolResult, parseDescriptionOutput, error) {
	task := s.taskRow(input)
	log := core.NewIssueLog()
	desc, ok := core.NewDescriptionParser(s.now, 1).ParseTask(task, log)

	out := parseDescriptionOutput{
		TaskID:   task.ID,
		Empty:    !ok,
		Excluded: isExcluded(log, task.ID),
		Keys:     map[string][]string{},
		Issues:   issuesToOutput(log),
	}
	if ok {
		out.Keys = desc.Phrases()
	}
	return nil, out, nil
}

func (s *Server) handleComputeAgeing(_ context.Context, _ *gomcp.CallToolRequest, input descriptionInput) (*gomcp.CallToolResult, computeAgeingOutput, error) {
	if s.counter == nil {
		return errorResult("business day calendar not available"), emptyComputeAgeingOutput(), nil
	}

	task := s.taskRow(input)
	log := core.NewIssueLog()
	desc, ok := core.NewDescriptionParser(s.now, 1).ParseTask(task, log)
	if !ok {
		return errorResult("description is empty"), emptyComputeAgeingOutput(), nil
	}

	out := computeAgeingOutput{
		TaskID:   task.ID,
		Excluded: isExcluded(log, task.ID),
		Values:   map[string]any{},
		Issues:   issuesToOutput(log),
	}
	if out.Excluded {
		return nil, out, nil
	}

	values, err := core.NewAgeingReducer(s.counter, s.now).ReduceTask(desc, s.rules)
	if err != nil {
		return errorResult(fmt.Sprintf("computing ageing: %s", err)), emptyComputeAgeingOutput(), nil
	}
	for field, v := range values {
		out.Values[field] = v.Any()
	}
	return nil, out, nil
}

func (s *Server) handleListRules(_ context.Context, _ *gomcp.CallToolRequest, _ listRulesInput) (*gomcp.CallToolResult, listRulesOutput, error) {
	out := listRulesOutput{
		Rules: make([]ruleOutput, len(s.rules)),
		Count: len(s.rules),
	}
	for i, r := range s.rules {
		ro := ruleOutput{Field: r.OutputField(), Kind: r.Kind().String()}
		for _, k := range core.RuleSources(r) {
			ro.Sources = append(ro.Sources, k.Phrase())
		}
		if bdc, ok := r.(core.BusinessDayCount); ok {
			ro.Position = bdc.Position
		}
		out.Rules[i] = ro
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "30d"
	}

	sinceTime, err := parseSince(sinceStr, s.now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		RunsStarted:      metrics.RunsStarted,
		RunsSucceeded:    metrics.RunsSucceeded,
		RunsFailed:       metrics.RunsFailed,
		TasksProcessed:   metrics.TasksProcessed,
		TasksExcluded:    metrics.TasksExcluded,
		IssuesBySeverity: metrics.IssuesBySeverity,
		EventCount:       metrics.EventCount,
	}
	if out.IssuesBySeverity == nil {
		out.IssuesBySeverity = make(map[string]int)
	}
	if metrics.LastSuccess != nil {
		out.LastSuccess = metrics.LastSuccess.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (event log may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

// taskRow wraps a submitted description the way site files are read.
func (s *Server) taskRow(input descriptionInput) models.TaskRow {
	id := input.TaskID
	if id == "" {
		id = defaultTaskID
	}
	return models.TaskRow{
		ID:          id,
		Description: integration.CleanDescription(input.Description),
	}
}

func isExcluded(log *core.IssueLog, taskID string) bool {
	_, ok := log.ExclusionSet()[taskID]
	return ok
}

func issuesToOutput(log *core.IssueLog) []issueOutput {
	records := log.Records()
	out := make([]issueOutput, len(records))
	for i, r := range records {
		out[i] = issueOutput{Severity: string(r.Severity), Line: r.Line, Message: r.Message}
	}
	return out
}

func emptyComputeAgeingOutput() computeAgeingOutput {
	return computeAgeingOutput{Values: map[string]any{}, Issues: []issueOutput{}}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{IssuesBySeverity: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time before now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
