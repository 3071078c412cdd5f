// Package engine persists word frequencies and sentence rankings for one
// language and answers top-N queries through derived secondary indices.
//
// Records live in two primary tables keyed by content hash. Each primary
// table is mirrored by an index table keyed by (sort value, hash), which is
// kept in step inside the same write transaction as every primary write.
// The index is rebuilt from the primary table when its row count drifts or
// after a layout upgrade.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/freqsage/pkg/freqsage/contenthash"
	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv"
	"github.com/cognicore/freqsage/pkg/freqsage/metrics"
	"github.com/cognicore/freqsage/pkg/freqsage/rank"
)

// Options configures an Engine.
type Options struct {
	Ranking rank.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time

	// Guard overrides the layout version guard (tests).
	Guard *VersionGuard
}

// Engine is the storage engine of one language database.
type Engine struct {
	store   kv.Store
	hasher  contenthash.Hasher
	records *RecordStore
	freqIdx *Index
	rankIdx *Index
	scorer  *rank.Scorer
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	runIDs  *runIDs
	layout  GuardResult

	mu      sync.Mutex
	pending map[*Index]bool // indices that must be rebuilt before their next use
}

// Open checks the layout version of store, migrating it if it is older than
// CurrentLayoutVersion, and returns an engine over it. A layout newer than
// this build fails with ErrSchemaTooNew.
func Open(ctx context.Context, store kv.Store, opts Options) (*Engine, error) {
	if opts.Ranking == (rank.Config{}) {
		opts.Ranking = rank.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "engine")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewVersionGuard()
	}

	hasher := contenthash.New(guard.Current)
	e := &Engine{
		store:   store,
		hasher:  hasher,
		records: NewRecordStore(hasher),
		freqIdx: &Index{Name: "frequency", Table: TableFrequencyIndex, Primary: TableFrequencies},
		rankIdx: &Index{Name: "ranking", Table: TableRankingIndex, Primary: TableRankings},
		scorer:  rank.NewScorer(opts.Ranking),
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		runIDs:  newRunIDs(),
		pending: make(map[*Index]bool),
	}

	err := store.Update(ctx, func(tx kv.WriteTx) error {
		var err error
		e.layout, err = guard.Check(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if e.layout.State == NeedsUpgrade {
		e.pending[e.freqIdx] = true
		e.pending[e.rankIdx] = true
		e.metrics.LayoutUpgrades.Inc()
		e.log.Info("layout version upgraded", "from", e.layout.From, "to", e.layout.To)
	}
	return e, nil
}

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Layout reports the layout check performed by Open.
func (e *Engine) Layout() GuardResult {
	return e.layout
}

// Batch is one unit of training input: the frequency deltas of a text and
// its cleaned sentences.
type Batch struct {
	Source      string
	Frequencies map[string]uint64
	Sentences   []rank.Sentence
}

// TrainResult summarizes a committed batch.
type TrainResult = Run

// Train merges b into the store in a single write transaction: frequency
// deltas first, then the rankings of every eligible sentence computed from
// the updated global frequencies. On any error nothing is written.
func (e *Engine) Train(ctx context.Context, b Batch) (TrainResult, error) {
	var (
		res     Run
		rebuilt []*Index
		claimed = make(map[*Index]bool)
	)

	err := e.store.Update(ctx, func(tx kv.WriteTx) error {
		res = Run{Source: b.Source}
		rebuilt = rebuilt[:0]
		for ix := range e.claimPending(e.freqIdx, e.rankIdx) {
			claimed[ix] = true
		}

		// Writes below assume a consistent index
		for _, ix := range []*Index{e.freqIdx, e.rankIdx} {
			ok, err := ix.EnsureConsistent(tx, claimed[ix])
			if err != nil {
				return err
			}
			if ok {
				rebuilt = append(rebuilt, ix)
			}
		}

		u := &unitOfWork{tx: tx, records: e.records, freqIdx: e.freqIdx, rankIdx: e.rankIdx, scorer: e.scorer}

		words := make([]string, 0, len(b.Frequencies))
		for w := range b.Frequencies {
			words = append(words, w)
		}
		sort.Strings(words)
		for _, w := range words {
			created, err := u.UpsertFrequency(w, b.Frequencies[w])
			if err != nil {
				return err
			}
			res.WordsMerged++
			if created {
				res.NewWords++
			}
		}

		sel := e.scorer.Select(b.Sentences, e.hasher)
		res.SkippedShort = sel.Short
		res.SkippedDuplicate = sel.Duplicate
		for _, c := range sel.Candidates {
			fs, err := e.records.frequenciesOf(tx, c.Words)
			if err != nil {
				return err
			}
			created, _, err := u.UpsertRanking(c, e.scorer.Score(fs))
			if err != nil {
				return err
			}
			res.SentencesRanked++
			if created {
				res.NewSentences++
			}
		}

		res.CommittedAt = e.now().UTC()
		res.ID = e.runIDs.next(res.CommittedAt)
		return putRun(tx, res)
	})
	if err != nil {
		e.restorePending(claimed)
		return Run{}, err
	}

	for _, ix := range rebuilt {
		e.recordRebuild(ix, rebuildCause(claimed[ix], false), -1)
	}
	e.metrics.TrainBatchesTotal.Inc()
	e.metrics.WordsMergedTotal.Add(float64(res.WordsMerged))
	e.metrics.SentencesRanked.Add(float64(res.SentencesRanked))
	e.metrics.SentencesSkipped.WithLabelValues("short").Add(float64(res.SkippedShort))
	e.metrics.SentencesSkipped.WithLabelValues("duplicate").Add(float64(res.SkippedDuplicate))
	e.log.Info("training batch committed",
		"run_id", res.ID.String(),
		"source", res.Source,
		"words", res.WordsMerged,
		"new_words", res.NewWords,
		"sentences", res.SentencesRanked,
		"skipped_short", res.SkippedShort,
		"skipped_duplicate", res.SkippedDuplicate,
	)
	return res, nil
}

// TopFrequencies returns word counts in descending order of count.
func (e *Engine) TopFrequencies(ctx context.Context, limit Limit) ([]FrequencyRecord, error) {
	return e.frequencies(ctx, kv.Descending, limit, "top_frequencies")
}

// LowestFrequencies returns word counts in ascending order of count.
func (e *Engine) LowestFrequencies(ctx context.Context, limit Limit) ([]FrequencyRecord, error) {
	return e.frequencies(ctx, kv.Ascending, limit, "lowest_frequencies")
}

// TopRankings returns sentences in descending order of score (easiest
// first).
func (e *Engine) TopRankings(ctx context.Context, limit Limit) ([]SentenceRecord, error) {
	return e.rankings(ctx, kv.Descending, limit, "top_rankings")
}

// LowestRankings returns sentences in ascending order of score (hardest
// first).
func (e *Engine) LowestRankings(ctx context.Context, limit Limit) ([]SentenceRecord, error) {
	return e.rankings(ctx, kv.Ascending, limit, "lowest_rankings")
}

func (e *Engine) frequencies(ctx context.Context, order kv.Order, limit Limit, kind string) ([]FrequencyRecord, error) {
	var out []FrequencyRecord
	err := e.query(ctx, e.freqIdx, order, limit, kind, func(tx kv.ReadTx, entry IndexEntry) error {
		rec, found, err := e.records.Frequency(tx, entry.Key)
		if err != nil {
			return err
		}
		if err := joined(kind, entry, found, rec.Count); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (e *Engine) rankings(ctx context.Context, order kv.Order, limit Limit, kind string) ([]SentenceRecord, error) {
	var out []SentenceRecord
	err := e.query(ctx, e.rankIdx, order, limit, kind, func(tx kv.ReadTx, entry IndexEntry) error {
		rec, found, err := e.records.Ranking(tx, entry.Key)
		if err != nil {
			return err
		}
		if err := joined(kind, entry, found, rec.Score); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// joined checks that an index entry resolved to a primary record with the
// same sort value.
func joined(op string, entry IndexEntry, found bool, value uint64) error {
	if !found {
		return internalerr.Inconsistent(op, entry.Key.Short(), "index entry has no primary record")
	}
	if value != entry.SortValue {
		return internalerr.Inconsistent(op, entry.Key.Short(),
			"index sort value %d, record value %d", entry.SortValue, value)
	}
	return nil
}

// query makes ix consistent, then scans it in one read transaction and hands
// each entry to join.
func (e *Engine) query(ctx context.Context, ix *Index, order kv.Order, limit Limit, kind string, join func(kv.ReadTx, IndexEntry) error) error {
	e.metrics.QueriesTotal.WithLabelValues(kind).Inc()
	if limit.reached(0) {
		return nil
	}
	if err := e.ensureIndex(ctx, ix); err != nil {
		return err
	}

	return e.store.View(ctx, func(tx kv.ReadTx) error {
		scan := ix.Lowest
		if order == kv.Descending {
			scan = ix.Highest
		}
		entries, err := scan(tx, limit)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := join(tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// ensureIndex rebuilds ix if a layout upgrade is pending or its row count
// has drifted. The drift check runs in a read transaction so consistent
// queries never take the write lock.
func (e *Engine) ensureIndex(ctx context.Context, ix *Index) error {
	if !e.isPending(ix) {
		var drifted bool
		err := e.store.View(ctx, func(tx kv.ReadTx) error {
			var err error
			drifted, err = ix.Drifted(tx)
			return err
		})
		if err != nil || !drifted {
			return err
		}
	}
	return e.rebuild(ctx, ix, false)
}

// rebuild claims the pending flag of ix inside the write transaction, so of
// several callers racing on a pending upgrade exactly one sees it set.
func (e *Engine) rebuild(ctx context.Context, ix *Index, manual bool) error {
	var (
		rebuilt bool
		forced  bool
		rows    int64
	)
	err := e.store.Update(ctx, func(tx kv.WriteTx) error {
		if e.claimPending(ix)[ix] {
			forced = true
		}
		if manual {
			var err error
			rows, err = ix.Rebuild(tx)
			rebuilt = true
			return err
		}
		var err error
		if rebuilt, err = ix.EnsureConsistent(tx, forced); err != nil || !rebuilt {
			return err
		}
		rows, err = tx.Len(ix.Table)
		return err
	})
	if err != nil {
		if forced {
			e.restorePending(map[*Index]bool{ix: true})
		}
		return err
	}
	if !rebuilt {
		return nil
	}

	e.recordRebuild(ix, rebuildCause(forced, manual), rows)
	return nil
}

func rebuildCause(forced, manual bool) string {
	switch {
	case manual:
		return "manual"
	case forced:
		return "upgrade"
	default:
		return "drift"
	}
}

// recordRebuild meters and logs a committed rebuild. rows is negative when
// the entry count is unknown.
func (e *Engine) recordRebuild(ix *Index, cause string, rows int64) {
	e.metrics.IndexRebuildsTotal.WithLabelValues(ix.Name, cause).Inc()
	if rows < 0 {
		e.log.Info("index rebuilt", "index", ix.Name, "cause", cause)
		return
	}
	e.log.Info("index rebuilt", "index", ix.Name, "cause", cause, "entries", rows)
}

// Reindex rebuilds both secondary indices unconditionally.
func (e *Engine) Reindex(ctx context.Context) error {
	for _, ix := range []*Index{e.freqIdx, e.rankIdx} {
		if err := e.rebuild(ctx, ix, true); err != nil {
			return err
		}
	}
	return nil
}

// Verify runs a full check of both indices against their primary tables.
func (e *Engine) Verify(ctx context.Context) error {
	return e.store.View(ctx, func(tx kv.ReadTx) error {
		if err := e.freqIdx.Verify(tx); err != nil {
			return err
		}
		return e.rankIdx.Verify(tx)
	})
}

// Frequency looks up the record of one word.
func (e *Engine) Frequency(ctx context.Context, word string) (FrequencyRecord, bool, error) {
	var (
		rec   FrequencyRecord
		found bool
	)
	err := e.store.View(ctx, func(tx kv.ReadTx) error {
		var err error
		rec, found, err = e.records.Frequency(tx, e.hasher.Word(word))
		return err
	})
	return rec, found, err
}

// Ranking looks up the record of the sentence with the given word sequence.
func (e *Engine) Ranking(ctx context.Context, words []string) (SentenceRecord, bool, error) {
	var (
		rec   SentenceRecord
		found bool
	)
	err := e.store.View(ctx, func(tx kv.ReadTx) error {
		var err error
		rec, found, err = e.records.Ranking(tx, e.hasher.Sequence(words))
		return err
	})
	return rec, found, err
}

// Stats holds table row counts.
type Stats struct {
	LayoutVersion  uint32
	Frequencies    int64
	Rankings       int64
	FrequencyIndex int64
	RankingIndex   int64
	Runs           int64
}

// Stats returns the row count of every table.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := e.store.View(ctx, func(tx kv.ReadTx) error {
		var err error
		if st.LayoutVersion, err = NewVersionGuard().Stored(tx); err != nil {
			return err
		}
		counts := []struct {
			table kv.Table
			dst   *int64
		}{
			{TableFrequencies, &st.Frequencies},
			{TableRankings, &st.Rankings},
			{TableFrequencyIndex, &st.FrequencyIndex},
			{TableRankingIndex, &st.RankingIndex},
			{TableRuns, &st.Runs},
		}
		for _, c := range counts {
			n, err := tx.Len(c.table)
			if err != nil {
				return internalerr.Op("stats", string(c.table), err)
			}
			*c.dst = n
			e.metrics.TableRows.WithLabelValues(string(c.table)).Set(float64(n))
		}
		return nil
	})
	return st, err
}

// Runs returns the training history, newest first.
func (e *Engine) Runs(ctx context.Context, limit Limit) ([]Run, error) {
	var runs []Run
	err := e.store.View(ctx, func(tx kv.ReadTx) error {
		var err error
		runs, err = listRuns(tx, limit)
		return err
	})
	return runs, err
}

// RunByID looks up one training run. An unknown id yields ErrNotFound.
func (e *Engine) RunByID(ctx context.Context, id ulid.ULID) (Run, error) {
	var run Run
	err := e.store.View(ctx, func(tx kv.ReadTx) error {
		var err error
		run, err = getRun(tx, id)
		return err
	})
	return run, err
}

func (e *Engine) isPending(ix *Index) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[ix]
}

// claimPending clears the pending flags of ixs and returns those that were
// set. A caller whose transaction fails hands them back with restorePending.
func (e *Engine) claimPending(ixs ...*Index) map[*Index]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[*Index]bool)
	for _, ix := range ixs {
		if e.pending[ix] {
			out[ix] = true
			delete(e.pending, ix)
		}
	}
	return out
}

func (e *Engine) restorePending(claimed map[*Index]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ix := range claimed {
		e.pending[ix] = true
	}
}
