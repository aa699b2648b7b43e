// Package metrics содержит счётчики Prometheus для вызовов модели, сессий и HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы вызова модели.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

type Metrics struct {
	completionsTotal    *prometheus.CounterVec
	completionDuration  *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	reg                 prometheus.Registerer
}

// New регистрирует метрики в reg. В тестах передаём свежий prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		completionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fruitbot_completions_total",
				Help: "Total number of completion calls by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		completionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fruitbot_completion_duration_seconds",
				Help:    "Completion call duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		reg: reg,
	}
	reg.MustRegister(m.completionsTotal, m.completionDuration, m.httpRequestsTotal, m.httpRequestDuration)
	return m
}

// WatchSessions публикует число активных сессий как gauge, значение читается при сборе.
func (m *Metrics) WatchSessions(count func() int) {
	if m == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "fruitbot_sessions_active",
			Help: "Number of conversation sessions held in memory.",
		},
		func() float64 { return float64(count()) },
	))
}

// ObserveCompletion учитывает один вызов модели. nil-получатель допустим.
func (m *Metrics) ObserveCompletion(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.completionsTotal.WithLabelValues(provider, outcome).Inc()
	m.completionDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveRequest учитывает один HTTP-запрос.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
