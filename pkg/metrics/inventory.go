package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// InventoryMetrics tracks engine operations and scans.
type InventoryMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	scans    *prometheus.CounterVec
	children prometheus.Counter
}

// NewInventoryMetrics registers inventory metrics on reg. A nil registerer yields a no-op recorder.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operation_duration_seconds",
		Help:      "Latency of inventory engine operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Inventory engine operations by outcome.",
	}, []string{"operation", "outcome"})
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scans",
		Name:      "recorded_total",
		Help:      "Scan events recorded by operation and result.",
	}, []string{"operation", "result"})
	children := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "child_units_created_total",
		Help:      "Child units minted by conversions.",
	})
	reg.MustRegister(duration, outcomes, scans, children)
	return &InventoryMetrics{
		duration: duration,
		outcomes: outcomes,
		scans:    scans,
		children: children,
	}
}

// Observe records latency and outcome for one engine operation.
func (m *InventoryMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	m.outcomes.WithLabelValues(op, normalizeLabel(outcome)).Inc()
}

// IncScan counts a recorded scan.
func (m *InventoryMetrics) IncScan(operation string, success bool) {
	if m == nil || m.scans == nil {
		return
	}
	result := OutcomeSuccess
	if !success {
		result = OutcomeRejected
	}
	m.scans.WithLabelValues(normalizeLabel(operation), result).Inc()
}

// AddChildren counts child units produced by a conversion.
func (m *InventoryMetrics) AddChildren(n int) {
	if m == nil || m.children == nil || n <= 0 {
		return
	}
	m.children.Add(float64(n))
}

// OutboxMetrics tracks publisher throughput.
type OutboxMetrics struct {
	published   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	deadLetters *prometheus.CounterVec
}

// NewOutboxMetrics registers publisher metrics on reg.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	newVec := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      name,
			Help:      help,
		}, []string{"event_type"})
	}
	m := &OutboxMetrics{
		published:   newVec("published_total", "Outbox events delivered to Pub/Sub."),
		failed:      newVec("failed_total", "Outbox publish attempts that failed."),
		deadLetters: newVec("dead_lettered_total", "Outbox events moved to the DLQ."),
	}
	reg.MustRegister(m.published, m.failed, m.deadLetters)
	return m
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(eventType string) {
	if m == nil || m.deadLetters == nil {
		return
	}
	m.deadLetters.WithLabelValues(normalizeLabel(eventType)).Inc()
}
