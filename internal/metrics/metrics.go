package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "pronounce"

// Collector is a prometheus.Collector tracking feedback streams and outbox
// replays. It satisfies usecase.StreamMetrics and outbox.Metrics.
type Collector struct {
	activeStreams  prometheus.Gauge
	streamsStarted prometheus.Counter
	streamsEnded   *prometheus.CounterVec
	fragmentsSent  prometheus.Counter
	persistFailed  prometheus.Counter
	outboxReplays  *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		activeStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_streams",
				Help:      "The number of feedback streams currently relaying.",
			},
		),
		streamsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "streams_started_total",
				Help:      "The number of feedback streams opened.",
			},
		),
		streamsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "streams_ended_total",
				Help:      "The number of feedback streams ended, by outcome.",
			}, []string{"outcome"},
		),
		fragmentsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fragments_sent_total",
				Help:      "The number of feedback fragments forwarded to clients.",
			},
		),
		persistFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "persist_failures_total",
				Help:      "The number of completed streams whose record could not be saved.",
			},
		),
		outboxReplays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "outbox_replays_total",
				Help:      "The number of parked records replayed, by result.",
			}, []string{"result"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.activeStreams.Describe(ch)
	c.streamsStarted.Describe(ch)
	c.streamsEnded.Describe(ch)
	c.fragmentsSent.Describe(ch)
	c.persistFailed.Describe(ch)
	c.outboxReplays.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.activeStreams.Collect(ch)
	c.streamsStarted.Collect(ch)
	c.streamsEnded.Collect(ch)
	c.fragmentsSent.Collect(ch)
	c.persistFailed.Collect(ch)
	c.outboxReplays.Collect(ch)
}

func (c *Collector) StreamStarted() {
	c.activeStreams.Inc()
	c.streamsStarted.Inc()
}

func (c *Collector) FragmentSent() { c.fragmentsSent.Inc() }

func (c *Collector) StreamCompleted() {
	c.activeStreams.Dec()
	c.streamsEnded.WithLabelValues("completed").Inc()
}

func (c *Collector) StreamAborted(reason string) {
	c.activeStreams.Dec()
	c.streamsEnded.WithLabelValues(reason).Inc()
}

func (c *Collector) PersistFailed() { c.persistFailed.Inc() }

func (c *Collector) Replayed() { c.outboxReplays.WithLabelValues("saved").Inc() }

func (c *Collector) ReplayFailed() { c.outboxReplays.WithLabelValues("failed").Inc() }

// NewRegistry registers the collector alongside the Go runtime and process
// collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// Handler serves the registry in the Prometheus text format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
