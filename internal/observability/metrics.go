// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/resolute/resolute/internal/progress"
)

const namespace = "resolute"

// Metrics holds the application's Prometheus collectors. It implements
// auth.Recorder and resolution.Recorder.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	AuthAttempts     *prometheus.CounterVec
	FailureProtocol  *prometheus.CounterVec
	Completions      *prometheus.CounterVec
	ProgressVerdicts *prometheus.CounterVec
	SessionsSwept    prometheus.Counter
}

// NewMetrics creates and registers the application metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and method",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Authentication attempts by strategy and result",
			},
			[]string{"strategy", "result"},
		),
		FailureProtocol: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failure_protocol_total",
				Help:      "Failure protocol runs, by whether a return-to path was captured",
			},
			[]string{"captured"},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completions_total",
				Help:      "Recorded completions, by whether they predate the profile checkpoint",
			},
			[]string{"late"},
		),
		ProgressVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "progress_verdicts_total",
				Help:      "Weekly verdicts computed for progress views",
			},
			[]string{"verdict"},
		),
		SessionsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_swept_total",
				Help:      "Expired sessions deleted by the sweeper",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.AuthAttempts,
		m.FailureProtocol,
		m.Completions,
		m.ProgressVerdicts,
		m.SessionsSwept,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordAuthentication implements auth.Recorder.
func (m *Metrics) RecordAuthentication(strategy, result string) {
	m.AuthAttempts.WithLabelValues(strategy, result).Inc()
}

// RecordFailureProtocol implements auth.Recorder.
func (m *Metrics) RecordFailureProtocol(captured bool) {
	m.FailureProtocol.WithLabelValues(strconv.FormatBool(captured)).Inc()
}

// RecordCompletion implements resolution.Recorder.
func (m *Metrics) RecordCompletion(late bool) {
	m.Completions.WithLabelValues(strconv.FormatBool(late)).Inc()
}

// RecordVerdict implements resolution.Recorder.
func (m *Metrics) RecordVerdict(verdict progress.Verdict) {
	m.ProgressVerdicts.WithLabelValues(verdict.String()).Inc()
}

// RecordSweep adds n swept sessions.
func (m *Metrics) RecordSweep(n int64) {
	if n > 0 {
		m.SessionsSwept.Add(float64(n))
	}
}
