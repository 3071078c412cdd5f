package engine

import "github.com/cognicore/freqsage/pkg/freqsage/kv"

// CurrentLayoutVersion identifies the on-disk layout this build reads and
// writes. Any change to key or value encodings must bump it and register a
// migration.
const CurrentLayoutVersion uint32 = 1

// Tables of one language store.
const (
	TableFrequencies    kv.Table = "frequencies"
	TableRankings       kv.Table = "rankings"
	TableFrequencyIndex kv.Table = "frequency_index"
	TableRankingIndex   kv.Table = "ranking_index"
	TableLayout         kv.Table = "layout"
	TableRuns           kv.Table = "runs"
)

// Tables lists every table the engine needs. Stores passed to Open must have
// been opened with all of them.
func Tables() []kv.Table {
	return []kv.Table{
		TableFrequencies,
		TableRankings,
		TableFrequencyIndex,
		TableRankingIndex,
		TableLayout,
		TableRuns,
	}
}
