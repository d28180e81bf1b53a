package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	windowSearches   *prometheus.CounterVec
	rangeOccurrences prometheus.Histogram
	importedEvents   prometheus.Counter
}

// NewMetrics builds collectors on a private registry so several App values
// (tests in particular) never collide on registration.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		windowSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_free_window_searches_total",
			Help: "Free window searches by outcome.",
		}, []string{"result"}),
		rangeOccurrences: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_range_occurrences",
			Help:    "Occurrences returned per range query.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		importedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_imported_events_total",
			Help: "Google Calendar events imported as meetings.",
		}),
	}
	m.registry.MustRegister(
		m.windowSearches,
		m.rangeOccurrences,
		m.importedEvents,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) windowSearch(found bool) {
	result := "not_found"
	if found {
		result = "found"
	}
	m.windowSearches.WithLabelValues(result).Inc()
}
