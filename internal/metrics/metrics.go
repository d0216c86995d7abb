// Package metrics - prometheus-метрики сервиса
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "verdict"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests broken down by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "latency_seconds",
		Help:      "HTTP request latency.",
		Buckets: []float64{
			0.005, 0.01, 0.025, 0.05,
			0.1, 0.25, 0.5,
			1, 2.5, 5,
		},
	}, []string{"route", "method"})

	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "requests",
		Name:      "created_total",
		Help:      "Requests admitted, by variant and tier.",
	}, []string{"variant", "tier"})

	RequestsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "requests",
		Name:      "rejected_total",
		Help:      "Request submissions rejected before creation, by reason.",
	}, []string{"reason"})

	VerdictsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verdicts",
		Name:      "submitted_total",
		Help:      "Verdict submissions by variant and result.",
	}, []string{"variant", "result"})

	Finalizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "requests",
		Name:      "finalized_total",
		Help:      "Requests transitioned to completed, by variant.",
	}, []string{"variant"})

	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "moderation",
		Name:      "decisions_total",
		Help:      "Moderation decisions by classifier source and result.",
	}, []string{"source", "result"})

	ModerationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "moderation",
		Name:      "fallbacks_total",
		Help:      "Primary classifier failures that fell back to rules.",
	})

	CreditDebits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "debits_total",
		Help:      "Credit debit attempts by result.",
	}, []string{"result"})

	RoutingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "routing",
		Name:      "attempts_total",
		Help:      "Expert routing attempts by result.",
	}, []string{"result"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Events dropped because the dispatcher queue was full.",
	}, []string{"type"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-account rate limiter.",
	})
)
