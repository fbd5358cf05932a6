package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch metrics
	callsAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_auditor_calls_analyzed_total",
		Help: "Total number of calls analyzed",
	}, []string{"task"}) // task: "timeline", "profanity", "privacy"

	analysisLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "call_auditor_analysis_latency_seconds",
		Help:    "Per-call analysis latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	}, []string{"task"})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_auditor_batch_calls",
		Help:    "Number of calls per uploaded batch",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	// Timeline findings
	overlapsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_auditor_overlaps_detected_total",
		Help: "Total overlap events detected across all calls",
	})

	silencesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_auditor_silences_detected_total",
		Help: "Total silence gaps detected across all calls",
	})

	// Detector findings
	violationsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_auditor_violations_detected_total",
		Help: "Total compliance findings by kind",
	}, []string{"kind"}) // kind: "agent_profanity", "customer_profanity", "privacy"

	// LLM backend metrics
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_auditor_llm_requests_total",
		Help: "Total number of LLM completion requests",
	}, []string{"status"})

	llmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_auditor_llm_latency_seconds",
		Help:    "LLM completion latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_auditor_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "call_auditor_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// RecordBatch records the size of an uploaded transcript batch.
func RecordBatch(calls int) {
	batchSize.Observe(float64(calls))
}

// RecordCallAnalyzed records one completed per-call analysis.
func RecordCallAnalyzed(task string, elapsed time.Duration) {
	callsAnalyzed.WithLabelValues(task).Inc()
	analysisLatency.WithLabelValues(task).Observe(elapsed.Seconds())
}

// RecordTimelineFindings records overlap and silence counts for one call.
func RecordTimelineFindings(overlaps, silences int) {
	overlapsDetected.Add(float64(overlaps))
	silencesDetected.Add(float64(silences))
}

// RecordViolation records one compliance finding.
func RecordViolation(kind string) {
	violationsDetected.WithLabelValues(kind).Inc()
}

// RecordLLMRequest records one LLM completion and its latency.
func RecordLLMRequest(success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	llmRequests.WithLabelValues(status).Inc()
	llmLatency.Observe(elapsed.Seconds())
}

// RecordError records an error by type and component.
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates the circuit breaker state metric.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
