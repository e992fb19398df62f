package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
)

const namespace = "dutbench"

var _ primary.ControlMetrics = (*ControlMetrics)(nil)

// ControlMetrics is the prometheus view of the control server.
// Each instance owns its registry.
type ControlMetrics struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	sessions prometheus.Gauge
}

func NewControlMetrics() *ControlMetrics {
	m := &ControlMetrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "control_commands_total",
				Help:      "Control requests handled, by op and reply kind",
			},
			[]string{"op", "result"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "control_sessions",
				Help:      "Open control sessions",
			},
		),
	}

	m.registry.MustRegister(
		m.commands,
		m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *ControlMetrics) CommandHandled(op, result string) {
	m.commands.WithLabelValues(op, result).Inc()
}

func (m *ControlMetrics) SessionOpened() {
	m.sessions.Inc()
}

func (m *ControlMetrics) SessionClosed() {
	m.sessions.Dec()
}

// Handler serves the registry in the prometheus text format
func (m *ControlMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
