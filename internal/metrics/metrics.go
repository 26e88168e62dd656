// Package metrics holds the service's prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "friend_calendar"

type Metrics struct {
	registry *prometheus.Registry

	points         *prometheus.CounterVec
	friendRequests *prometheus.CounterVec
	shares         *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_total",
			Help:      "Points moved by task completion, by direction.",
		}, []string{"direction"}),
		friendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "friend_requests_total",
			Help:      "Friend request transitions, by outcome.",
		}, []string{"outcome"}),
		shares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_share_targets_total",
			Help:      "Calendar share targets, by result bucket.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.points,
		m.friendRequests,
		m.shares,
		m.httpDuration,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PointsAwarded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.points.WithLabelValues("awarded").Add(float64(n))
}

func (m *Metrics) PointsReverted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.points.WithLabelValues("reverted").Add(float64(n))
}

// FriendRequest counts a request transition: sent, accepted, rejected, cancelled.
func (m *Metrics) FriendRequest(outcome string) {
	if m == nil {
		return
	}
	m.friendRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ShareResult(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.shares.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
