// Package metrics exposes Prometheus collectors for the mask service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple instances don't
// collide on the global one.
type Metrics struct {
	reg       *prometheus.Registry
	mutations *prometheus.CounterVec
}

// New registers the collectors. masks and clients are sampled on scrape.
func New(masks, clients func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masque",
			Name:      "mask_mutations_total",
			Help:      "Committed mask store changes by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(
		m.mutations,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "masque",
			Name:      "masks",
			Help:      "Number of user masks.",
		}, func() float64 { return float64(masks()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "masque",
			Name:      "sse_clients",
			Help:      "Connected server-sent event clients.",
		}, func() float64 { return float64(clients()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveMutation counts one committed change.
func (m *Metrics) ObserveMutation(op string) {
	m.mutations.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
