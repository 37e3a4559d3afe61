// Package metrics exposes healing-run counters on a private Prometheus registry.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "workflow_healer"

// Metrics is owned by the process that drives runs; nothing here is global.
type Metrics struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRun        *prometheus.GaugeVec
	issuesDetected *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	tasksCreated   *prometheus.CounterVec
	sourceErrors   *prometheus.CounterVec
	retryAttempts  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total healing runs by overall health status",
			},
			[]string{"status", "dry_run"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of healing runs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run per business",
			},
			[]string{"business"},
		),
		issuesDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "detector",
				Name:      "issues_total",
				Help:      "Total issues detected by type and severity",
			},
			[]string{"business", "issue_type", "severity"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "resolutions_total",
				Help:      "Total resolutions by level and final status",
			},
			[]string{"level", "final_status"},
		),
		tasksCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "tasks_created_total",
				Help:      "Total dashboard tasks written by level",
			},
			[]string{"level"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "detector",
				Name:      "source_errors_total",
				Help:      "Total detection source failures",
			},
			[]string{"source"},
		),
		retryAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "attempts_total",
				Help:      "Total corrective actions issued against the engine",
			},
		),
	}

	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.lastRun,
		m.issuesDetected,
		m.resolutions,
		m.tasksCreated,
		m.sourceErrors,
		m.retryAttempts,
	)

	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(detection models.DetectionResult, results []models.ResolutionResult, briefing *models.MorningBriefing) {
	dryRun := fmt.Sprintf("%t", briefing.DryRun)
	m.runs.WithLabelValues(string(briefing.OverallStatus()), dryRun).Inc()
	m.runDuration.Observe((time.Duration(briefing.DurationMs) * time.Millisecond).Seconds())

	now := float64(briefing.GeneratedAt.Unix())
	for _, health := range briefing.PerBusinessHealth {
		m.lastRun.WithLabelValues(health.Business).Set(now)
	}

	for _, issue := range detection.Issues {
		m.issuesDetected.WithLabelValues(issue.Business, string(issue.IssueType), issue.Severity.String()).Inc()
	}

	for _, sourceErr := range detection.SourceErrors {
		m.sourceErrors.WithLabelValues(string(sourceErr.Source)).Inc()
	}

	for _, result := range results {
		m.resolutions.WithLabelValues(result.Level.String(), string(result.FinalStatus)).Inc()

		if result.Task != nil && !result.Task.Existing {
			m.tasksCreated.WithLabelValues(result.Task.Level.String()).Inc()
		}

		switch result.ActionTaken {
		case models.ActionRetryExecution, models.ActionActivate, models.ActionResetTrigger:
			m.retryAttempts.Add(float64(result.Attempts))
		}
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteTextfile writes the registry for the node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}

	return nil
}
