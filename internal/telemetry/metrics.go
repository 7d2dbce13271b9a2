package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "koorda"

// Metrics holds the service's Prometheus collectors on a private registry.
// All record methods are safe on a nil receiver so packages can be used
// without metrics in tests.
type Metrics struct {
	pollIterations  *prometheus.CounterVec
	eventsDelivered prometheus.Counter
	eventsSkipped   *prometheus.CounterVec
	awaits          *prometheus.CounterVec
	liveQueues      prometheus.Gauge
	utterances      *prometheus.CounterVec
	backendErrors   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		pollIterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_polls_total",
				Help:      "Event feed poll iterations by result",
			},
			[]string{"result"},
		),
		eventsDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_delivered_total",
				Help:      "Feed events routed to a conversation queue",
			},
		),
		eventsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_skipped_total",
				Help:      "Feed events dropped before routing, by reason",
			},
			[]string{"reason"},
		),
		awaits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reply_waits_total",
				Help:      "Waits for a backend reply by outcome",
			},
			[]string{"outcome"},
		),
		liveQueues: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "conversation_queues",
				Help:      "Conversation queues currently registered",
			},
		),
		utterances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "utterances_total",
				Help:      "Handled utterances by intent and response kind",
			},
			[]string{"intent", "kind"},
		),
		backendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Koordinator calls that failed, by operation",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.pollIterations,
		m.eventsDelivered,
		m.eventsSkipped,
		m.awaits,
		m.liveQueues,
		m.utterances,
		m.backendErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) RecordPoll(result string) {
	if m == nil {
		return
	}
	m.pollIterations.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDelivered() {
	if m == nil {
		return
	}
	m.eventsDelivered.Inc()
}

func (m *Metrics) RecordSkipped(reason string) {
	if m == nil {
		return
	}
	m.eventsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordAwait(outcome string) {
	if m == nil {
		return
	}
	m.awaits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetLiveQueues(n int) {
	if m == nil {
		return
	}
	m.liveQueues.Set(float64(n))
}

func (m *Metrics) RecordUtterance(intentName, kind string) {
	if m == nil {
		return
	}
	m.utterances.WithLabelValues(intentName, kind).Inc()
}

func (m *Metrics) RecordBackendError(operation string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(operation).Inc()
}
