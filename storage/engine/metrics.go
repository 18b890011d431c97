package engine

import (
	"sortkv/storage"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	inserts            prometheus.Counter
	compactions        prometheus.Counter
	compactionFailures prometheus.Counter
	compactionDuration prometheus.Summary
	memoryItems        prometheus.Gauge
}

// NewMetrics builds the engine metrics. Engines opened on the same registerer
// share them.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.inserts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inserts_total",
		Help: "Total number of committed inserts.",
	})

	m.compactions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compactions_total",
		Help: "Total number of compactions that completed.",
	})

	m.compactionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compaction_failures_total",
		Help: "Total number of compactions that failed.",
	})

	m.compactionDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Name:       "compaction_duration_seconds",
		Help:       "Duration of memory and table merges.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	m.memoryItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_items",
		Help: "Insert operations held in memory since the last compaction.",
	})

	if registerer != nil {
		registerer = prometheus.WrapRegistererWithPrefix("sortkv_engine_", registerer)
	}

	m.inserts = storage.RegisterOrExisting(registerer, m.inserts)
	m.compactions = storage.RegisterOrExisting(registerer, m.compactions)
	m.compactionFailures = storage.RegisterOrExisting(registerer, m.compactionFailures)
	m.compactionDuration = storage.RegisterOrExisting(registerer, m.compactionDuration)
	m.memoryItems = storage.RegisterOrExisting(registerer, m.memoryItems)

	return m
}
