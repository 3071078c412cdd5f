// Package metrics defines the Prometheus collectors the engine updates. They
// live on a private registry and can be written to a node-exporter style
// textfile at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for one engine.
type Metrics struct {
	Registry *prometheus.Registry

	TrainBatchesTotal  prometheus.Counter
	WordsMergedTotal   prometheus.Counter
	SentencesRanked    prometheus.Counter
	SentencesSkipped   *prometheus.CounterVec
	IndexRebuildsTotal *prometheus.CounterVec
	QueriesTotal       *prometheus.CounterVec
	LayoutUpgrades     prometheus.Counter
	TableRows          *prometheus.GaugeVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TrainBatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freqsage_train_batches_total",
				Help: "Total number of committed training batches.",
			},
		),
		WordsMergedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freqsage_words_merged_total",
				Help: "Total number of word frequency deltas merged into the store.",
			},
		),
		SentencesRanked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freqsage_sentences_ranked_total",
				Help: "Total number of sentence rankings written.",
			},
		),
		SentencesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqsage_sentences_skipped_total",
				Help: "Sentences excluded from ranking by reason (short, duplicate).",
			},
			[]string{"reason"},
		),
		IndexRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqsage_index_rebuilds_total",
				Help: "Secondary index rebuilds by index and cause (drift, upgrade, manual).",
			},
			[]string{"index", "cause"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqsage_queries_total",
				Help: "Top-N queries by kind.",
			},
			[]string{"kind"},
		),
		LayoutUpgrades: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freqsage_layout_upgrades_total",
				Help: "Number of on-disk layout version upgrades performed.",
			},
		),
		TableRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "freqsage_table_rows",
				Help: "Row count per table at the last stats call.",
			},
			[]string{"table"},
		),
	}

	m.Registry.MustRegister(
		m.TrainBatchesTotal,
		m.WordsMergedTotal,
		m.SentencesRanked,
		m.SentencesSkipped,
		m.IndexRebuildsTotal,
		m.QueriesTotal,
		m.LayoutUpgrades,
		m.TableRows,
	)
	return m
}

// WriteTextfile writes the current values to path in the Prometheus text
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
