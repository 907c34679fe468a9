package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presenca",
		Name:      "frames_evaluated_total",
		Help:      "Total number of frames scored by the quality evaluator",
	}, []string{"result"})

	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presenca",
		Name:      "enrollments_total",
		Help:      "Total reference photo registrations",
	}, []string{"result"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presenca",
		Name:      "verifications_total",
		Help:      "Total identity verification attempts",
	}, []string{"outcome"})

	Confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presenca",
		Name:      "confirmations_total",
		Help:      "Total attendance confirmation attempts",
	}, []string{"result"})

	PendingSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "presenca",
		Name:      "pending_sessions",
		Help:      "Number of attendance sessions awaiting confirmation",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "presenca",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "presenca",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
