package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunCollector holds the Prometheus metrics of report runs. It uses its own
// registry so the CLI can write the values to a node_exporter textfile.
type RunCollector struct {
	registry *prometheus.Registry

	Runs        *prometheus.CounterVec
	Tasks       *prometheus.GaugeVec
	Issues      *prometheus.GaugeVec
	Duration    prometheus.Histogram
	LastSuccess prometheus.Gauge
}

// NewRunCollector creates a RunCollector with a fresh registry.
func NewRunCollector() *RunCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &RunCollector{
		registry: reg,
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kar_report_runs_total",
				Help: "Total number of report runs by outcome",
			},
			[]string{"status"},
		),
		Tasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kar_report_tasks",
				Help: "Tasks in the latest report by state",
			},
			[]string{"state"},
		),
		Issues: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kar_report_issues",
				Help: "Description issues in the latest report by severity",
			},
			[]string{"severity"},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kar_report_duration_seconds",
				Help:    "Report run duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		LastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kar_report_last_success_timestamp_seconds",
				Help: "Unix time of the latest successful report run",
			},
		),
	}
}

// Observe records one finished run.
func (c *RunCollector) Observe(s RunSummary) {
	if s.Failed {
		c.Runs.WithLabelValues("failed").Inc()
		c.Duration.Observe(s.Duration.Seconds())
		return
	}
	c.Runs.WithLabelValues("succeeded").Inc()
	c.Duration.Observe(s.Duration.Seconds())
	c.LastSuccess.Set(float64(s.At.Unix()))

	c.Tasks.WithLabelValues("total").Set(float64(s.Tasks))
	c.Tasks.WithLabelValues("excluded").Set(float64(s.Excluded))
	c.Tasks.WithLabelValues("aged").Set(float64(s.Tasks - s.Excluded))

	c.Issues.WithLabelValues("ERROR").Set(float64(s.Errors))
	c.Issues.WithLabelValues("INFO").Set(float64(s.Infos))
	c.Issues.WithLabelValues("WARNING").Set(float64(s.Warnings))
}

// ObserveAll replays runs, oldest first.
func (c *RunCollector) ObserveAll(runs []RunSummary) {
	for _, s := range runs {
		c.Observe(s)
	}
}

// Gatherer exposes the collector's registry.
func (c *RunCollector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile writes the metrics in the text exposition format to path.
func (c *RunCollector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
