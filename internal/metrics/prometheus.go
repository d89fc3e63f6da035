package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var eventsDesc = prometheus.NewDesc(
	"gemini_playground_events_total",
	"Internal gateway event counters.",
	[]string{"event"},
	nil,
)

// collector adapts the in-process counter registry to a Prometheus collector.
// All counters surface as one metric with an `event` label.
type collector struct {
	m *Metrics
}

func (c collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- eventsDesc
}

func (c collector) Collect(ch chan<- prometheus.Metric) {
	for event, v := range c.m.Snapshot() {
		ch <- prometheus.MustNewConstMetric(eventsDesc, prometheus.CounterValue, float64(v), event)
	}
}

// NewCollector exposes m as a Prometheus collector.
func NewCollector(m *Metrics) prometheus.Collector {
	return collector{m: m}
}

// NewHandler builds the /metrics scrape handler. activeSessions, when non-nil,
// is exported as a gauge alongside the event counters.
func NewHandler(m *Metrics, activeSessions func() int) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(m))
	if activeSessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gemini_playground_active_sessions",
			Help: "Currently open relay sessions.",
		}, func() float64 { return float64(activeSessions()) }))
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
