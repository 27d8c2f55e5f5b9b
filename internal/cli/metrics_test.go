package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/kanban-ageing/internal/observability"
)

func TestParseSinceDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{"empty defaults to 30d", "", false, ""},
		{"whitespace defaults to 30d", "  ", false, ""},
		{"valid 7d", "7d", false, ""},
		{"valid 24h", "24h", false, ""},
		{"invalid suffix", "abc", true, "unsupported duration format"},
		{"invalid day number", "xd", true, "invalid day duration"},
		{"invalid hour number", "yh", true, "invalid hour duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSinceDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseSinceDuration_Window(t *testing.T) {
	before := time.Now().UTC()
	got, err := parseSinceDuration("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := before.AddDate(0, 0, -30)
	if got.Before(want.Add(-time.Minute)) || got.After(want.Add(time.Minute)) {
		t.Errorf("default window = %v, want about %v", got, want)
	}
}

type metricsMock struct {
	calcFn func(since time.Time) (*observability.Metrics, error)
}

func (m *metricsMock) Calculate(since time.Time) (*observability.Metrics, error) {
	return m.calcFn(since)
}

func setMetricsFlags(t *testing.T, flags map[string]string) {
	t.Helper()
	for name, value := range flags {
		if err := metricsCmd.Flags().Set(name, value); err != nil {
			t.Fatalf("setting --%s: %v", name, err)
		}
	}
	t.Cleanup(func() {
		metricsJSON, metricsSince, metricsTextfile = false, "30d", ""
	})
}

func TestMetricsCmd_NilCalculator(t *testing.T) {
	restoreServices(t)
	MetricsCalc = nil

	err := metricsCmd.RunE(metricsCmd, []string{})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMetricsCmd_Table(t *testing.T) {
	restoreServices(t)
	success := testNow
	MetricsCalc = &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) {
		return &observability.Metrics{
			RunsStarted:      2,
			RunsSucceeded:    1,
			RunsFailed:       1,
			TasksProcessed:   20,
			TasksExcluded:    5,
			IssuesBySeverity: map[string]int{"ERROR": 7, "INFO": 2},
			AverageDuration:  1500 * time.Millisecond,
			EventCount:       5,
			LastSuccess:      &success,
		}, nil
	}}

	var err error
	out := captureStdout(t, func() { err = metricsCmd.RunE(metricsCmd, []string{}) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Runs succeeded:", "5 (25.0%)", "ERROR:", "1.5s", "Last report:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsCmd_JSON(t *testing.T) {
	restoreServices(t)
	MetricsCalc = &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) {
		return &observability.Metrics{RunsSucceeded: 3, IssuesBySeverity: map[string]int{}}, nil
	}}
	setMetricsFlags(t, map[string]string{"json": "true"})

	var err error
	out := captureStdout(t, func() { err = metricsCmd.RunE(metricsCmd, []string{}) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m observability.Metrics
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if m.RunsSucceeded != 3 {
		t.Errorf("runs succeeded = %d, want 3", m.RunsSucceeded)
	}
}

func TestMetricsCmd_CalculateError(t *testing.T) {
	restoreServices(t)
	MetricsCalc = &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) {
		return nil, fmt.Errorf("disk error")
	}}

	err := metricsCmd.RunE(metricsCmd, []string{})
	if err == nil || !strings.Contains(err.Error(), "calculating metrics") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMetricsCmd_BadSince(t *testing.T) {
	restoreServices(t)
	MetricsCalc = &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) {
		return &observability.Metrics{}, nil
	}}
	setMetricsFlags(t, map[string]string{"since": "2w"})

	err := metricsCmd.RunE(metricsCmd, []string{})
	if err == nil || !strings.Contains(err.Error(), "parsing --since") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMetricsCmd_Textfile(t *testing.T) {
	base := setupBase(t)
	// The event log filters on wall-clock time, so record runs now.
	reportNow = time.Now
	if _, err := runReport(Config, uuid.NewString()); err != nil {
		t.Fatalf("report run failed: %v", err)
	}
	setMetricsFlags(t, map[string]string{"textfile": "kar.prom"})

	var err error
	out := captureStdout(t, func() { err = metricsCmd.RunE(metricsCmd, []string{}) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Wrote metrics of 1 run(s)") {
		t.Errorf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(filepath.Join(base, "kar.prom"))
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(data), `kar_report_tasks{state="excluded"} 1`) {
		t.Errorf("unexpected textfile:\n%s", data)
	}
}
