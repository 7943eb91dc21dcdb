package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the report
// pipeline.
type Metrics struct {
	runOutcomes     *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	webhookRequests *prometheus.CounterVec
	salesImported   prometheus.Counter
}

// NewMetrics registers and returns Prometheus metrics for the pipeline.
func NewMetrics() *Metrics {
	runOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relatorio_runs_total",
		Help: "Counts pipeline runs by outcome and raffle code.",
	}, []string{"outcome", "code"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relatorio_run_duration_seconds",
		Help:    "End-to-end pipeline run latency per raffle code.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
	}, []string{"code"})

	stageErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relatorio_stage_errors_total",
		Help: "Counts pipeline failures by failing stage.",
	}, []string{"stage"})

	webhookRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relatorio_webhook_requests_total",
		Help: "Webhook requests by decision.",
	}, []string{"decision"})

	salesImported := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relatorio_sales_imported_total",
		Help: "Sale records persisted across all runs.",
	})

	prometheus.MustRegister(
		runOutcomes,
		runDuration,
		stageErrors,
		webhookRequests,
		salesImported,
	)

	return &Metrics{
		runOutcomes:     runOutcomes,
		runDuration:     runDuration,
		stageErrors:     stageErrors,
		webhookRequests: webhookRequests,
		salesImported:   salesImported,
	}
}

// ObserveRun records one finished pipeline run.
func (m *Metrics) ObserveRun(outcome, code string, duration time.Duration) {
	if m == nil {
		return
	}
	codeLabel := sanitizeLabel(code)
	m.runOutcomes.WithLabelValues(sanitizeLabel(outcome), codeLabel).Inc()
	m.runDuration.WithLabelValues(codeLabel).Observe(duration.Seconds())
}

// RecordStageError counts a failure against the stage that produced it.
func (m *Metrics) RecordStageError(stage string) {
	if m == nil {
		return
	}
	m.stageErrors.WithLabelValues(sanitizeLabel(stage)).Inc()
}

// RecordWebhookDecision counts a webhook request by how it was answered.
func (m *Metrics) RecordWebhookDecision(decision string) {
	if m == nil {
		return
	}
	m.webhookRequests.WithLabelValues(sanitizeLabel(decision)).Inc()
}

// AddSalesImported bumps the persisted sale-record counter.
func (m *Metrics) AddSalesImported(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.salesImported.Add(float64(count))
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
