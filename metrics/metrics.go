package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 内容分配相关的 Prometheus 指标
type Metrics struct {
	DeliveriesAssigned *prometheus.CounterVec
	DeliveriesReused   prometheus.Counter
	AssignConflicts    prometheus.Counter
	CyclesStarted      *prometheus.CounterVec
	AssignErrors       *prometheus.CounterVec
	AssignDuration     prometheus.Histogram

	WebhookEvents *prometheus.CounterVec
	Refunds       prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default 返回全局单例（promauto 注册到默认 registry，只能注册一次）
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		DeliveriesAssigned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanclip_deliveries_assigned_total",
			Help: "Daily deliveries newly assigned",
		}, []string{"service_type"}),
		DeliveriesReused: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cleanclip_deliveries_reused_total",
			Help: "Requests served from an already recorded delivery",
		}),
		AssignConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cleanclip_assign_conflicts_total",
			Help: "Concurrent first-of-day assignments resolved by re-reading the winner",
		}),
		CyclesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanclip_cycles_started_total",
			Help: "Template cycles started (first delivery or pool exhausted)",
		}, []string{"service_type"}),
		AssignErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanclip_assign_errors_total",
			Help: "Content assignment failures by kind",
		}, []string{"kind"}),
		AssignDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cleanclip_assign_duration_seconds",
			Help:    "Latency of GetTodayContent",
			Buckets: prometheus.DefBuckets,
		}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanclip_stripe_webhook_events_total",
			Help: "Stripe webhook events received by type",
		}, []string{"type"}),
		Refunds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cleanclip_refunds_total",
			Help: "Self-serve refunds processed",
		}),
	}
}

func (m *Metrics) RecordAssigned(serviceType string, seconds float64) {
	m.DeliveriesAssigned.WithLabelValues(serviceType).Inc()
	m.AssignDuration.Observe(seconds)
}

func (m *Metrics) RecordReused(seconds float64) {
	m.DeliveriesReused.Inc()
	m.AssignDuration.Observe(seconds)
}

func (m *Metrics) RecordConflict() {
	m.AssignConflicts.Inc()
}

func (m *Metrics) RecordCycleStarted(serviceType string) {
	m.CyclesStarted.WithLabelValues(serviceType).Inc()
}

func (m *Metrics) RecordError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.AssignErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordWebhook(eventType string) {
	m.WebhookEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordRefund() {
	m.Refunds.Inc()
}
