package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Saga outcomes.
const (
	OutcomeCommitted    = "committed"
	OutcomeCompensated  = "compensated"
	OutcomeRepairQueued = "repair_queued"
)

type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Sagas           *prometheus.CounterVec
	FailedUndos     *prometheus.CounterVec
	OutboxPublished *prometheus.CounterVec
	Repairs         *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses a
// fresh registry, which keeps tests independent of the global one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linsta_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linsta_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Sagas: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linsta_saga_total",
				Help: "Cross-store write sagas by name and outcome",
			},
			[]string{"saga", "outcome"},
		),
		FailedUndos: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linsta_saga_failed_undo_total",
				Help: "Compensating actions that failed and were queued for repair",
			},
			[]string{"saga", "step"},
		),
		OutboxPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linsta_outbox_events_total",
				Help: "Outbox events handled by the relay",
			},
			[]string{"topic", "result"},
		),
		Repairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linsta_repair_tasks_total",
				Help: "Repair task attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linsta_cache_lookups_total",
				Help: "Entity cache lookups by entity and result",
			},
			[]string{"entity", "result"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.Sagas,
		m.FailedUndos,
		m.OutboxPublished,
		m.Repairs,
		m.CacheLookups,
	)

	return m
}

// SagaFinished counts one saga run.
func (m *Metrics) SagaFinished(saga, outcome string) {
	if m == nil {
		return
	}
	m.Sagas.WithLabelValues(saga, outcome).Inc()
}

// UndoFailed counts a compensation that could not run inline.
func (m *Metrics) UndoFailed(saga, step string) {
	if m == nil {
		return
	}
	m.FailedUndos.WithLabelValues(saga, step).Inc()
}

func (m *Metrics) EventRelayed(topic string, ok bool) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(topic, result(ok)).Inc()
}

func (m *Metrics) RepairAttempted(kind string, ok bool) {
	if m == nil {
		return
	}
	m.Repairs.WithLabelValues(kind, result(ok)).Inc()
}

func (m *Metrics) CacheLookup(entity string, hit bool) {
	if m == nil {
		return
	}
	r := "miss"
	if hit {
		r = "hit"
	}
	m.CacheLookups.WithLabelValues(entity, r).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// GinMiddleware records request count and latency by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
