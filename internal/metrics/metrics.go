package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of one pipeline run
type Metrics struct {
	registry *prometheus.Registry

	RecordsIngested prometheus.Counter
	RecordsDropped  *prometheus.CounterVec
	Warnings        *prometheus.CounterVec

	GraphNodes     *prometheus.GaugeVec
	GraphEdges     *prometheus.GaugeVec
	HashtagsUnique prometheus.Gauge
}

// New creates the run metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventgraph_records_ingested_total",
			Help: "Rows read from the source table",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgraph_records_dropped_total",
			Help: "Rows removed by each filter step",
		}, []string{"step"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgraph_warnings_total",
			Help: "Data-quality warnings by kind",
		}, []string{"kind"}),
		GraphNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventgraph_graph_nodes",
			Help: "Nodes per interaction graph",
		}, []string{"graph"}),
		GraphEdges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventgraph_graph_edges",
			Help: "Edges per interaction graph",
		}, []string{"graph"}),
		HashtagsUnique: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventgraph_hashtags_unique",
			Help: "Distinct hashtags after exclusion",
		}),
	}

	m.registry.MustRegister(
		m.RecordsIngested,
		m.RecordsDropped,
		m.Warnings,
		m.GraphNodes,
		m.GraphEdges,
		m.HashtagsUnique,
	)
	return m
}

// Registry exposes the run registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes the registry in text exposition format. The file is
// written to a temporary name and renamed into place.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
