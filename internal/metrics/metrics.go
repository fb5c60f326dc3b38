package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records node and connector activity.
type Metrics struct {
	registry *prometheus.Registry

	nodeExecutions  *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	connectorChunks *prometheus.CounterVec
	connectorRuns   *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_node_executions_total",
				Help: "Total number of node function executions",
			},
			[]string{"extension", "node", "error"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_node_duration_seconds",
				Help:    "Duration of node function executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"extension", "node"},
		),
		connectorChunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_connector_chunks_total",
				Help: "Total number of knowledge chunks written by connectors",
			},
			[]string{"extension", "connector"},
		),
		connectorRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_connector_runs_total",
				Help: "Total number of knowledge connector runs",
			},
			[]string{"extension", "connector", "error"},
		),
	}
	m.registry.MustRegister(
		m.nodeExecutions, m.nodeDuration, m.connectorChunks, m.connectorRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeExecutions.WithLabelValues(e.Extension, e.NodeType, strconv.FormatBool(e.IsError)).Inc()
			m.nodeDuration.WithLabelValues(e.Extension, e.NodeType).Observe(e.Duration.Seconds())
		},
		OnConnectorRun: func(ctx context.Context, e *domain.ConnectorEvent) {
			m.connectorRuns.WithLabelValues(e.Extension, e.Connector, strconv.FormatBool(e.IsError)).Inc()
			m.connectorChunks.WithLabelValues(e.Extension, e.Connector).Add(float64(e.Report.Chunks))
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
