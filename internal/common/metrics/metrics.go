// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_processed_total",
			Help: "Total number of notification messages processed",
		},
		[]string{"channel", "status"},
	)

	NotificationsDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dead_lettered_total",
			Help: "Total number of notification messages routed to the dead-letter stream",
		},
		[]string{"channel", "reason"},
	)

	NotificationsRequeued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_requeued_total",
			Help: "Total number of notification messages left for broker redelivery",
		},
		[]string{"channel"},
	)

	TemplateRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "template_render_duration_seconds",
			Help: "Duration of template rendering in seconds",
		},
		[]string{"status"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"routing_key", "status"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "publisher_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"breaker"},
	)
)
