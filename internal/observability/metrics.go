package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posture",
		Name:      "ticks_processed_total",
		Help:      "Total number of engine ticks produced",
	}, []string{"session_id"})

	GuardrailTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posture",
		Name:      "guardrail_trips_total",
		Help:      "Total number of guardrail rail activations by kind",
	}, []string{"rail"})

	RiskStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posture",
		Name:      "risk_state_transitions_total",
		Help:      "Total number of risk FSM state transitions",
	}, []string{"from", "to"})

	CalibrationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posture",
		Name:      "calibration_outcomes_total",
		Help:      "Total number of calibration flow outcomes",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "posture",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages (geometry, signal, risk, score)",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
	}, []string{"stage"})

	TickQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "posture",
		Name:      "tick_queue_depth",
		Help:      "Number of pending tick messages in the ticks stream",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "posture",
		Name:      "active_sessions",
		Help:      "Number of currently active engine sessions",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "posture",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "posture",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})

	CurrentScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "posture",
		Name:      "current_score",
		Help:      "Latest posture score per session",
	}, []string{"session_id"})
)
