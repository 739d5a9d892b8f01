/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the relay pipeline
type Metrics struct {
	// Session metrics
	SessionsTotal  prometheus.Counter
	SessionErrors  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge

	// Decision metrics
	WakeDetections    prometheus.Counter
	WakeSuppressions  prometheus.Counter
	DispatchFallbacks prometheus.Counter

	// Latency metrics
	TranscriptionDuration prometheus.Histogram
	DispatchDuration      prometheus.Histogram
}

// New creates and registers all relay metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bobby_sessions_total",
			Help: "Total number of audio sessions processed",
		}),
		SessionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bobby_session_errors_total",
			Help: "Total number of failed sessions by pipeline stage",
		}, []string{"stage"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bobby_active_sessions",
			Help: "Current number of in-flight audio sessions",
		}),
		WakeDetections: factory.NewCounter(prometheus.CounterOpts{
			Name: "bobby_wake_detections_total",
			Help: "Total number of wake-word detections",
		}),
		WakeSuppressions: factory.NewCounter(prometheus.CounterOpts{
			Name: "bobby_wake_suppressions_total",
			Help: "Total number of detections suppressed by the debounce gate",
		}),
		DispatchFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "bobby_dispatch_fallbacks_total",
			Help: "Total number of replies served from the fallback message",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bobby_transcription_duration_seconds",
			Help:    "Time spent inside the exclusive transcription section",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bobby_dispatch_duration_seconds",
			Help:    "Time spent waiting on the generation backend",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}),
	}
}
