// Package metrics exposes Prometheus counters for installs, webhooks and
// upstream calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopify_video_layer"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the app's collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	installs       *prometheus.CounterVec
	webhooks       *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	upstreamCalls  *prometheus.CounterVec
	videoTasks     *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New creates a new Metrics registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installs_total",
			Help:      "OAuth callbacks by result.",
		}, []string{"result"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by topic and result.",
		}, []string{"topic", "result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_registrations_total",
			Help:      "Webhook subscriptions created during install by topic and result.",
		}, []string{"topic", "result"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Calls to Shopify and the video API by operation and outcome.",
		}, []string{"service", "operation", "outcome"}),
		videoTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_task_states_total",
			Help:      "Terminal video task states observed.",
		}, []string{"state"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.installs,
		m.webhooks,
		m.registrations,
		m.upstreamCalls,
		m.videoTasks,
		m.requestLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Install(result string) {
	if m == nil {
		return
	}
	m.installs.WithLabelValues(result).Inc()
}

func (m *Metrics) Webhook(topic, result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) WebhookRegistration(topic string, err error) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(topic, outcome(err)).Inc()
}

func (m *Metrics) UpstreamCall(service, operation string, err error) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(service, operation, outcome(err)).Inc()
}

func (m *Metrics) VideoTaskFinished(state string) {
	if m == nil {
		return
	}
	m.videoTasks.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(method, route, status).Observe(seconds)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
