package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeloszaimis/circuit-gate/internal/event"
)

const namespace = "circuitgate"

// Prometheus exposes breaker events as Prometheus series on its own registry.
type Prometheus struct {
	registry     *prometheus.Registry
	events       *prometheus.CounterVec
	openCircuits prometheus.Gauge
	dropped      prometheus.Counter
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Breaker events by kind and rule.",
		}, []string{"kind", "rule"}),
		openCircuits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_circuits",
			Help:      "Circuits currently reported open.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the collector buffer was full.",
		}),
	}

	p.registry.MustRegister(
		p.events,
		p.openCircuits,
		p.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) observe(e event.Event, open int) {
	p.events.WithLabelValues(string(e.Kind), e.Rule).Inc()
	p.openCircuits.Set(float64(open))
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
