// Package metrics 提供 Prometheus 业务指标，覆盖托管交易状态机、消息审核与通知投递
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// 托管交易指标
	EscrowTransitionsTotal *prometheus.CounterVec
	EscrowConflictsTotal   prometheus.Counter
	EscrowReleasedAmount   prometheus.Counter

	// 审核指标
	ModerationMessagesTotal  *prometheus.CounterVec
	ModerationUpgradesTotal  prometheus.Counter
	ScorerDegradedTotal      prometheus.Counter
	ScorerDeadLetteredTotal  prometheus.Counter
	EvaluateDurationSeconds  prometheus.Histogram
	ReviewQueueDepth         prometheus.Gauge

	// 通知指标
	NotificationsTotal *prometheus.CounterVec
}

// New 创建指标实例并注册到独立 registry
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		EscrowTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "escrow_transitions_total",
			Help:      "Escrow state transitions applied",
		}, []string{"transition"}),
		EscrowConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "escrow_transition_conflicts_total",
			Help:      "Escrow transitions rejected by the conditional update",
		}),
		EscrowReleasedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "escrow_released_amount_minor_units",
			Help:      "Seller payout applied, in currency minor units",
		}),
		ModerationMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "moderation_messages_total",
			Help:      "Messages evaluated by the moderation pipeline",
		}, []string{"action"}),
		ModerationUpgradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "moderation_ai_upgrades_total",
			Help:      "Flags upgraded to high risk by the AI score",
		}),
		ScorerDegradedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "moderation_scorer_degraded_total",
			Help:      "Scoring tasks that kept the synchronous decision because the scorer was unavailable",
		}),
		ScorerDeadLetteredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "moderation_scorer_dead_lettered_total",
			Help:      "Scoring tasks routed to the dead letter topic after exhausting retries",
		}),
		EvaluateDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "moderation_evaluate_duration_seconds",
			Help:      "Synchronous rule evaluation duration",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		ReviewQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "moderation_review_queue_depth",
			Help:      "Flags waiting for human review",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: serviceName,
			Name:      "notifications_total",
			Help:      "Notification delivery attempts",
		}, []string{"channel", "status"}),
	}

	registry.MustRegister(
		m.EscrowTransitionsTotal,
		m.EscrowConflictsTotal,
		m.EscrowReleasedAmount,
		m.ModerationMessagesTotal,
		m.ModerationUpgradesTotal,
		m.ScorerDegradedTotal,
		m.ScorerDeadLetteredTotal,
		m.EvaluateDurationSeconds,
		m.ReviewQueueDepth,
		m.NotificationsTotal,
	)
	return m
}

// Handler 返回 Prometheus 抓取端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
