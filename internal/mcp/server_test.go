package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/kanban-ageing/internal/calendar"
	"github.com/valter-silva-au/kanban-ageing/internal/core"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
)

// --- Fake implementations ---

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
	since   time.Time
}

func (f *fakeMetricsCalculator) Calculate(since time.Time) (*observability.Metrics, error) {
	f.since = since
	return f.metrics, nil
}

type fakeAlertEngine struct {
	alerts []observability.Alert
}

func (f *fakeAlertEngine) Evaluate() ([]observability.Alert, error) {
	return f.alerts, nil
}

// --- Test helpers ---

var testNow = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func newTestServer(mc observability.MetricsCalculator, ae observability.AlertEngine) *Server {
	srv := NewServer(calendar.New(calendar.SaturdaySunday, nil), mc, ae, "test")
	srv.now = func() time.Time { return testNow }
	return srv
}

// completeDescription records every key on 1/2/24, except the configuration
// end which is 1/5/24.
func completeDescription() string {
	var b strings.Builder
	for _, k := range core.DescriptionKeys() {
		date := "1/2/24"
		if k == core.ConfigEndDate {
			date = "1/5/24"
		}
		b.WriteString(k.Phrase() + ": " + date + "\n")
	}
	return b.String()
}

// callTool is a helper that connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	// Connect server (non-blocking).
	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// decodeResult unmarshals the tool output from the text or structured content.
func decodeResult(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	text := extractText(result)
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return
	}
	if result.StructuredContent == nil {
		t.Fatalf("no decodable output (text was: %s)", text)
	}
	data, _ := json.Marshal(result.StructuredContent)
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshalling structured output: %v", err)
	}
}

func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- Tests ---

func TestValidateDate(t *testing.T) {
	srv := newTestServer(nil, nil)

	tests := []struct {
		token string
		valid bool
		date  string
	}{
		{"1/5/24", true, "2024-01-05"},
		{"2/29/2024", true, "2024-02-29"},
		{"2/29/23", false, ""},
		{"13/1/24", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			var out validateDateOutput
			decodeResult(t, callTool(t, srv, "validate_date", map[string]any{"token": tt.token}), &out)
			if out.Valid != tt.valid || out.Date != tt.date {
				t.Errorf("validate_date(%s) = %+v, want valid=%v date=%q", tt.token, out, tt.valid, tt.date)
			}
		})
	}
}

func TestParseDescription(t *testing.T) {
	srv := newTestServer(nil, nil)

	var out parseDescriptionOutput
	decodeResult(t, callTool(t, srv, "parse_description", map[string]any{
		"task_id":     "T-1",
		"description": completeDescription(),
	}), &out)

	if out.TaskID != "T-1" || out.Empty || out.Excluded {
		t.Errorf("unexpected output: %+v", out)
	}
	if len(out.Keys) != len(core.DescriptionKeys()) {
		t.Errorf("expected %d keys, got %d", len(core.DescriptionKeys()), len(out.Keys))
	}
	if got := out.Keys["config end date"]; len(got) != 1 || got[0] != "1/5/24" {
		t.Errorf("unexpected config end dates %v", got)
	}
	if len(out.Issues) != 0 {
		t.Errorf("expected no issues, got %+v", out.Issues)
	}
}

func TestParseDescriptionCleansInput(t *testing.T) {
	srv := newTestServer(nil, nil)

	var out parseDescriptionOutput
	decodeResult(t, callTool(t, srv, "parse_description", map[string]any{
		"description": "CONFIG START DATE:\t1/2/24",
	}), &out)

	if out.TaskID != defaultTaskID {
		t.Errorf("expected default task ID, got %s", out.TaskID)
	}
	if got := out.Keys["config start date"]; len(got) != 1 || got[0] != "1/2/24" {
		t.Errorf("expected the cleaned key to parse, got %v", out.Keys)
	}
	if !out.Excluded {
		t.Error("a partial description must be excluded")
	}
}

func TestComputeAgeing(t *testing.T) {
	srv := newTestServer(nil, nil)

	var out computeAgeingOutput
	decodeResult(t, callTool(t, srv, "compute_ageing", map[string]any{
		"description": completeDescription(),
	}), &out)

	if out.Excluded {
		t.Fatalf("complete description must not be excluded: %+v", out.Issues)
	}
	if len(out.Values) != len(core.DefaultRuleTable()) {
		t.Errorf("expected %d values, got %d", len(core.DefaultRuleTable()), len(out.Values))
	}
	// Tuesday 1/2 to Friday 1/5, both ends included.
	if got := out.Values[core.FieldConfigurationInProgress]; got != float64(4) {
		t.Errorf("expected 4 configuration days, got %v", got)
	}
	if got := out.Values[core.FieldNumberOfPeerReviews]; got != float64(1) {
		t.Errorf("expected 1 peer review, got %v", got)
	}
	if got := out.Values[core.FieldReadyToMigrateDate]; got != "1/2/24" {
		t.Errorf("unexpected ready to migrate date %v", got)
	}
}

func TestComputeAgeingExcluded(t *testing.T) {
	srv := newTestServer(nil, nil)

	var out computeAgeingOutput
	decodeResult(t, callTool(t, srv, "compute_ageing", map[string]any{
		"description": "config start date: 2/30/24",
	}), &out)

	if !out.Excluded {
		t.Fatal("expected the task to be excluded")
	}
	if len(out.Values) != 0 {
		t.Errorf("excluded tasks get no values, got %v", out.Values)
	}
	found := false
	for _, is := range out.Issues {
		if is.Message == core.MsgInvalidDate && is.Line == "config start date: 2/30/24" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an invalid date issue, got %+v", out.Issues)
	}
}

func TestComputeAgeingEmpty(t *testing.T) {
	srv := newTestServer(nil, nil)

	for _, desc := range []string{"", "   "} {
		result := callTool(t, srv, "compute_ageing", map[string]any{"description": desc})
		if !result.IsError {
			t.Fatalf("expected error result for description %q", desc)
		}
		text := extractText(result)
		if !strings.Contains(text, "description is empty") {
			t.Errorf("unexpected error text %q", text)
		}
	}
}

func TestComputeAgeingWithoutCalendar(t *testing.T) {
	srv := NewServer(nil, nil, nil, "test")
	srv.now = func() time.Time { return testNow }

	result := callTool(t, srv, "compute_ageing", map[string]any{"description": completeDescription()})
	if !result.IsError {
		t.Fatal("expected error result when no calendar is configured")
	}
}

func TestListRules(t *testing.T) {
	srv := newTestServer(nil, nil)

	var out listRulesOutput
	decodeResult(t, callTool(t, srv, "list_rules", map[string]any{}), &out)

	if out.Count != 22 || len(out.Rules) != 22 {
		t.Fatalf("expected 22 rules, got %d", out.Count)
	}
	first := out.Rules[0]
	if first.Field != core.FieldConfigurationInProgress || first.Kind != "business_day_count" {
		t.Errorf("unexpected first rule %+v", first)
	}
	if len(first.Sources) != 2 || first.Sources[0] != "config start date" || first.Position != nil {
		t.Errorf("unexpected first rule sources %+v", first)
	}
	last := out.Rules[len(out.Rules)-1]
	if last.Position == nil || *last.Position != 0 {
		t.Errorf("expected the last rule to use the first pair, got %+v", last)
	}
}

func TestGetMetrics(t *testing.T) {
	success := testNow.Add(-time.Hour)
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{
		RunsStarted:      3,
		RunsSucceeded:    2,
		RunsFailed:       1,
		TasksProcessed:   40,
		TasksExcluded:    4,
		IssuesBySeverity: map[string]int{"ERROR": 6},
		EventCount:       9,
		LastSuccess:      &success,
	}}
	srv := newTestServer(mc, nil)

	var out metricsOutput
	decodeResult(t, callTool(t, srv, "get_metrics", map[string]any{"since": "7d"}), &out)

	if out.RunsSucceeded != 2 || out.TasksExcluded != 4 || out.IssuesBySeverity["ERROR"] != 6 {
		t.Errorf("unexpected metrics %+v", out)
	}
	if out.LastSuccess != success.Format(time.RFC3339) {
		t.Errorf("unexpected last success %s", out.LastSuccess)
	}
	if !mc.since.Equal(testNow.AddDate(0, 0, -7)) {
		t.Errorf("unexpected since %v", mc.since)
	}
}

func TestGetMetricsUnavailable(t *testing.T) {
	result := callTool(t, newTestServer(nil, nil), "get_metrics", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error result without a metrics calculator")
	}
}

func TestGetMetricsBadSince(t *testing.T) {
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{}}
	result := callTool(t, newTestServer(mc, nil), "get_metrics", map[string]any{"since": "7w"})
	if !result.IsError {
		t.Fatal("expected error result for an unsupported suffix")
	}
}

func TestGetAlerts(t *testing.T) {
	ae := &fakeAlertEngine{alerts: []observability.Alert{{
		ID:          "failed-r1",
		Condition:   "report_run_failed",
		Severity:    observability.SeverityHigh,
		Message:     "the last 1 report runs failed",
		TriggeredAt: testNow,
	}}}
	srv := newTestServer(nil, ae)

	var out getAlertsOutput
	decodeResult(t, callTool(t, srv, "get_alerts", map[string]any{}), &out)

	if out.Count != 1 || out.Alerts[0].Severity != "high" || out.Alerts[0].ID != "failed-r1" {
		t.Errorf("unexpected alerts %+v", out)
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"7d", testNow.AddDate(0, 0, -7), false},
		{"24h", testNow.Add(-24 * time.Hour), false},
		{"d", time.Time{}, true},
		{"xd", time.Time{}, true},
		{"3m", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseSince(tt.in, testNow)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSince(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
