package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv"
	"github.com/cognicore/freqsage/pkg/freqsage/kv/memkv"
	"github.com/cognicore/freqsage/pkg/freqsage/kv/sqlite"
	"github.com/cognicore/freqsage/pkg/freqsage/metrics"
	"github.com/cognicore/freqsage/pkg/freqsage/rank"
)

type backend struct {
	name string
	open func(t *testing.T) kv.Store
}

var backends = []backend{
	{"memkv", func(t *testing.T) kv.Store { return memkv.New(Tables()...) }},
	{"sqlite", func(t *testing.T) kv.Store {
		s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "en"), Tables()...)
		if err != nil {
			t.Fatalf("sqlite.Open: %v", err)
		}
		return s
	}},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store kv.Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			t.Cleanup(func() { store.Close() })
			fn(t, store)
		})
	}
}

func testOptions() Options {
	return Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: metrics.New(),
		Now:     func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func openEngine(t *testing.T, store kv.Store, opts Options) *Engine {
	t.Helper()
	e, err := Open(context.Background(), store, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func sentence(text string) rank.Sentence {
	return rank.Sentence{Text: text, Words: strings.Fields(text)}
}

func train(t *testing.T, e *Engine, b Batch) TrainResult {
	t.Helper()
	res, err := e.Train(context.Background(), b)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return res
}

func TestTrainMergesFrequencies(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		e := openEngine(t, store, testOptions())
		ctx := context.Background()

		train(t, e, Batch{Frequencies: map[string]uint64{"hello": 3, "world": 1}})
		res := train(t, e, Batch{Frequencies: map[string]uint64{"hello": 5}})
		if res.WordsMerged != 1 || res.NewWords != 0 {
			t.Errorf("second batch: merged=%d new=%d, want 1 and 0", res.WordsMerged, res.NewWords)
		}

		rec, found, err := e.Frequency(ctx, "hello")
		if err != nil || !found {
			t.Fatalf("Frequency(hello) = %v, %v", found, err)
		}
		if rec.Count != 8 {
			t.Errorf("hello count = %d, want 8", rec.Count)
		}
		if _, found, _ := e.Frequency(ctx, "absent"); found {
			t.Error("absent word should not be found")
		}

		if err := e.Verify(ctx); err != nil {
			t.Errorf("Verify: %v", err)
		}
	})
}

func TestTrainSaturatesCounts(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	train(t, e, Batch{Frequencies: map[string]uint64{"x": math.MaxUint64 - 1}})
	train(t, e, Batch{Frequencies: map[string]uint64{"x": 10}})

	rec, _, err := e.Frequency(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Count != math.MaxUint64 {
		t.Errorf("count = %d, want saturation at MaxUint64", rec.Count)
	}
}

func TestTrainRejectsEmptyWord(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	_, err := e.Train(context.Background(), Batch{Frequencies: map[string]uint64{"": 1}})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// TestScoreRecomputedOnReinsert trains the same sentence twice: the second
// time its score must reflect the merged global frequencies.
func TestScoreRecomputedOnReinsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		e := openEngine(t, store, testOptions())
		ctx := context.Background()
		s := sentence("a b c")

		train(t, e, Batch{
			Frequencies: map[string]uint64{"a": 10, "b": 2, "c": 3},
			Sentences:   []rank.Sentence{s},
		})
		rec, found, err := e.Ranking(ctx, s.Words)
		if err != nil || !found {
			t.Fatalf("Ranking = %v, %v", found, err)
		}
		if rec.Score != 3 {
			t.Errorf("first score = %d, want 3", rec.Score)
		}

		res := train(t, e, Batch{
			Frequencies: map[string]uint64{"b": 18},
			Sentences:   []rank.Sentence{{Text: "A b c", Words: s.Words}},
		})
		if res.NewSentences != 0 || res.SentencesRanked != 1 {
			t.Errorf("reinsert: ranked=%d new=%d", res.SentencesRanked, res.NewSentences)
		}

		rec, _, err = e.Ranking(ctx, s.Words)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Score != 6 {
			t.Errorf("recomputed score = %d, want 6", rec.Score)
		}
		if rec.Sentence != "a b c" {
			t.Errorf("stored text = %q, want the first occurrence", rec.Sentence)
		}

		top, err := e.TopRankings(ctx, All)
		if err != nil {
			t.Fatal(err)
		}
		if len(top) != 1 || top[0].Score != 6 {
			t.Errorf("index not moved with the score: %+v", top)
		}
	})
}

func TestShortAndDuplicateSentencesSkipped(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	ctx := context.Background()

	res := train(t, e, Batch{
		Frequencies: map[string]uint64{"go": 4, "is": 9, "fun": 2},
		Sentences: []rank.Sentence{
			sentence("go is fun"),
			sentence("go fun"),
			{Text: "Go is fun!", Words: []string{"go", "is", "fun"}},
		},
	})
	if res.SentencesRanked != 1 || res.SkippedShort != 1 || res.SkippedDuplicate != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, found, _ := e.Ranking(ctx, []string{"go", "fun"}); found {
		t.Error("two-word sentence must not be ranked")
	}
	rec, _, _ := e.Ranking(ctx, []string{"go", "is", "fun"})
	if rec.Sentence != "go is fun" {
		t.Errorf("duplicate overwrote first occurrence: %q", rec.Sentence)
	}
}

func TestMissingWordRollsBackBatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		e := openEngine(t, store, testOptions())
		ctx := context.Background()

		_, err := e.Train(ctx, Batch{
			Frequencies: map[string]uint64{"one": 1, "two": 1},
			Sentences:   []rank.Sentence{sentence("one two three")},
		})
		if !errors.Is(err, internalerr.ErrInconsistent) {
			t.Fatalf("expected ErrInconsistent, got %v", err)
		}
		if !internalerr.IsFatal(err) {
			t.Error("inconsistency should be fatal")
		}

		st, err := e.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if st.Frequencies != 0 || st.Rankings != 0 || st.Runs != 0 {
			t.Errorf("failed batch left data behind: %+v", st)
		}
	})
}

func seed(t *testing.T, e *Engine) {
	t.Helper()
	train(t, e, Batch{
		Source:      "seed",
		Frequencies: map[string]uint64{"the": 50, "cat": 5, "sat": 3, "on": 20, "mat": 1, "dog": 8},
		Sentences: []rank.Sentence{
			sentence("the cat sat"),
			sentence("the dog sat on the mat"),
			sentence("cat on mat"),
			sentence("the dog"),
		},
	})
}

func TestQueryOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		e := openEngine(t, store, testOptions())
		ctx := context.Background()
		seed(t, e)

		top, err := e.TopFrequencies(ctx, Top(3))
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"the", "on", "dog"}
		if len(top) != len(want) {
			t.Fatalf("TopFrequencies(3) returned %d records", len(top))
		}
		for i, w := range want {
			if top[i].Word != w {
				t.Errorf("top[%d] = %q, want %q", i, top[i].Word, w)
			}
		}

		low, err := e.LowestFrequencies(ctx, Top(2))
		if err != nil {
			t.Fatal(err)
		}
		if len(low) != 2 || low[0].Word != "mat" || low[1].Word != "sat" {
			t.Errorf("LowestFrequencies(2) = %+v", low)
		}

		ranks, err := e.TopRankings(ctx, All)
		if err != nil {
			t.Fatal(err)
		}
		if len(ranks) != 3 {
			t.Fatalf("expected 3 rankings, got %d", len(ranks))
		}
		for i := 1; i < len(ranks); i++ {
			if ranks[i-1].Score < ranks[i].Score {
				t.Errorf("TopRankings not descending: %d before %d", ranks[i-1].Score, ranks[i].Score)
			}
		}

		lowest, err := e.LowestRankings(ctx, All)
		if err != nil {
			t.Fatal(err)
		}
		for i := range lowest {
			if lowest[i].Score != ranks[len(ranks)-1-i].Score {
				t.Errorf("LowestRankings is not the reverse of TopRankings")
			}
		}
	})
}

func TestQueryLimits(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	ctx := context.Background()
	seed(t, e)

	tests := []struct {
		name  string
		limit Limit
		want  int
	}{
		{"zero", Top(0), 0},
		{"one", Top(1), 1},
		{"exact", Top(6), 6},
		{"above count", Top(100), 6},
		{"all", All, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.TopFrequencies(ctx, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEmptyStoreQueries(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	got, err := e.TopRankings(context.Background(), All)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rankings, got %d", len(got))
	}
}

// TestRebuildAfterIndexLoss clears an index out of band and checks that the
// next query rebuilds exactly the entries incremental maintenance produced.
func TestRebuildAfterIndexLoss(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		opts := testOptions()
		e := openEngine(t, store, opts)
		ctx := context.Background()
		seed(t, e)

		before := indexKeys(t, store, TableRankingIndex)

		err := store.Update(ctx, func(tx kv.WriteTx) error {
			return tx.Clear(TableRankingIndex)
		})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := e.TopRankings(ctx, Top(1)); err != nil {
			t.Fatalf("TopRankings: %v", err)
		}
		after := indexKeys(t, store, TableRankingIndex)
		if strings.Join(before, ",") != strings.Join(after, ",") {
			t.Errorf("rebuilt index differs:\nbefore %q\nafter  %q", before, after)
		}

		if got := testutil.ToFloat64(opts.Metrics.IndexRebuildsTotal.WithLabelValues("ranking", "drift")); got != 1 {
			t.Errorf("drift rebuilds = %v, want 1", got)
		}

		// A consistent index is not rebuilt again
		if _, err := e.TopRankings(ctx, All); err != nil {
			t.Fatal(err)
		}
		if got := testutil.ToFloat64(opts.Metrics.IndexRebuildsTotal.WithLabelValues("ranking", "drift")); got != 1 {
			t.Errorf("drift rebuilds = %v after consistent query, want 1", got)
		}
	})
}

func indexKeys(t *testing.T, store kv.Store, table kv.Table) []string {
	t.Helper()
	var out []string
	err := store.View(context.Background(), func(tx kv.ReadTx) error {
		return tx.ForEach(table, kv.Ascending, func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestTrainRepairsDriftedIndex(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	ctx := context.Background()
	seed(t, e)

	err := e.store.Update(ctx, func(tx kv.WriteTx) error {
		return tx.Clear(TableFrequencyIndex)
	})
	if err != nil {
		t.Fatal(err)
	}

	// Without the repair the old entry of "cat" would be missing
	train(t, e, Batch{Frequencies: map[string]uint64{"cat": 1}})
	if err := e.Verify(ctx); err != nil {
		t.Fatalf("Verify after train: %v", err)
	}
}

func TestVerifyDetectsStaleEntry(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	ctx := context.Background()
	seed(t, e)

	// Same row count, wrong sort value
	key := e.hasher.Word("cat")
	err := e.store.Update(ctx, func(tx kv.WriteTx) error {
		if _, err := tx.Delete(TableFrequencyIndex, indexKey(5, key)); err != nil {
			return err
		}
		return tx.Put(TableFrequencyIndex, indexKey(999, key), []byte{})
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Verify(ctx); !errors.Is(err, internalerr.ErrInconsistent) {
		t.Errorf("Verify: expected ErrInconsistent, got %v", err)
	}
	if _, err := e.TopFrequencies(ctx, All); !errors.Is(err, internalerr.ErrInconsistent) {
		t.Errorf("TopFrequencies: expected ErrInconsistent, got %v", err)
	}

	if err := e.Reindex(ctx); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if err := e.Verify(ctx); err != nil {
		t.Errorf("Verify after Reindex: %v", err)
	}
}

func putLayout(t *testing.T, store kv.Store, key string, version uint32) {
	t.Helper()
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], version)
	err := store.Update(context.Background(), func(tx kv.WriteTx) error {
		return tx.Put(TableLayout, []byte(key), b[:])
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestOpenWritesLayoutVersion(t *testing.T) {
	store := memkv.New(Tables()...)
	e := openEngine(t, store, testOptions())
	if e.Layout().From != 0 || e.Layout().To != CurrentLayoutVersion {
		t.Errorf("unexpected layout result %+v", e.Layout())
	}

	st, err := e.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.LayoutVersion != CurrentLayoutVersion {
		t.Errorf("stored version = %d, want %d", st.LayoutVersion, CurrentLayoutVersion)
	}

	again := openEngine(t, store, testOptions())
	if again.Layout().State != Consistent {
		t.Errorf("reopen state = %v, want consistent", again.Layout().State)
	}
}

// TestUpgradeForcesRebuild simulates a store written before the layout table
// existed. Opening it must upgrade the version and rebuild both indices
// once, keeping all data.
func TestUpgradeForcesRebuild(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		ctx := context.Background()
		seed(t, openEngine(t, store, testOptions()))

		err := store.Update(ctx, func(tx kv.WriteTx) error {
			return tx.Clear(TableLayout)
		})
		if err != nil {
			t.Fatal(err)
		}

		opts := testOptions()
		e := openEngine(t, store, opts)
		if e.Layout().State != NeedsUpgrade {
			t.Fatalf("state = %v, want needs-upgrade", e.Layout().State)
		}
		if got := testutil.ToFloat64(opts.Metrics.LayoutUpgrades); got != 1 {
			t.Errorf("layout upgrades = %v, want 1", got)
		}

		freqs, err := e.TopFrequencies(ctx, All)
		if err != nil {
			t.Fatal(err)
		}
		if len(freqs) != 6 {
			t.Errorf("data lost across upgrade: %d words", len(freqs))
		}
		if _, err := e.TopFrequencies(ctx, All); err != nil {
			t.Fatal(err)
		}
		if got := testutil.ToFloat64(opts.Metrics.IndexRebuildsTotal.WithLabelValues("frequency", "upgrade")); got != 1 {
			t.Errorf("frequency upgrade rebuilds = %v, want 1", got)
		}

		// Training rebuilds the pending ranking index; the query after it
		// must not rebuild again
		train(t, e, Batch{Frequencies: map[string]uint64{"cat": 1}})
		if _, err := e.TopRankings(ctx, All); err != nil {
			t.Fatal(err)
		}
		if got := testutil.ToFloat64(opts.Metrics.IndexRebuildsTotal.WithLabelValues("ranking", "upgrade")); got != 1 {
			t.Errorf("ranking upgrade rebuilds = %v, want 1", got)
		}
		if err := e.Verify(ctx); err != nil {
			t.Errorf("Verify: %v", err)
		}
	})
}

// Concurrent writers and readers racing on a pending upgrade must rebuild
// each index once.
func TestConcurrentUseAfterUpgradeRebuildsOnce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		ctx := context.Background()
		seed(t, openEngine(t, store, testOptions()))
		err := store.Update(ctx, func(tx kv.WriteTx) error {
			return tx.Clear(TableLayout)
		})
		if err != nil {
			t.Fatal(err)
		}

		opts := testOptions()
		e := openEngine(t, store, opts)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var err error
				switch i % 3 {
				case 0:
					_, err = e.Train(ctx, Batch{
						Frequencies: map[string]uint64{"the": 1, "cat": 1, "sat": 1},
						Sentences:   []rank.Sentence{sentence("the cat sat")},
					})
				case 1:
					_, err = e.TopRankings(ctx, Top(2))
				default:
					_, err = e.TopFrequencies(ctx, Top(2))
				}
				if err != nil {
					t.Errorf("worker %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		for _, name := range []string{"frequency", "ranking"} {
			if got := testutil.ToFloat64(opts.Metrics.IndexRebuildsTotal.WithLabelValues(name, "upgrade")); got != 1 {
				t.Errorf("%s upgrade rebuilds = %v, want 1", name, got)
			}
		}
		if err := e.Verify(ctx); err != nil {
			t.Errorf("Verify: %v", err)
		}
	})
}

func TestOpenRejectsNewerLayout(t *testing.T) {
	store := memkv.New(Tables()...)
	putLayout(t, store, "version", CurrentLayoutVersion+1)

	_, err := Open(context.Background(), store, testOptions())
	if !errors.Is(err, internalerr.ErrSchemaTooNew) {
		t.Fatalf("expected ErrSchemaTooNew, got %v", err)
	}
}

func TestOpenRejectsCorruptLayoutTable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, store kv.Store)
	}{
		{"two rows", func(t *testing.T, store kv.Store) {
			putLayout(t, store, "version", CurrentLayoutVersion)
			putLayout(t, store, "extra", CurrentLayoutVersion)
		}},
		{"wrong key", func(t *testing.T, store kv.Store) {
			putLayout(t, store, "other", CurrentLayoutVersion)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memkv.New(Tables()...)
			tt.setup(t, store)
			_, err := Open(context.Background(), store, testOptions())
			if !errors.Is(err, internalerr.ErrInconsistent) {
				t.Fatalf("expected ErrInconsistent, got %v", err)
			}
		})
	}
}

func TestMigrationChain(t *testing.T) {
	store := memkv.New(Tables()...)
	var steps []uint32
	guard := &VersionGuard{
		Current: 3,
		Migrations: map[uint32]Migration{
			1: func(kv.WriteTx) error { steps = append(steps, 1); return nil },
			2: func(kv.WriteTx) error { steps = append(steps, 2); return nil },
			3: func(kv.WriteTx) error { steps = append(steps, 3); return nil },
		},
	}
	putLayout(t, store, "version", 1)

	opts := testOptions()
	opts.Guard = guard
	e := openEngine(t, store, opts)
	if len(steps) != 2 || steps[0] != 2 || steps[1] != 3 {
		t.Errorf("migrations run = %v, want [2 3]", steps)
	}
	if e.Layout().From != 1 || e.Layout().To != 3 {
		t.Errorf("layout = %+v", e.Layout())
	}
}

func TestRunsHistory(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store kv.Store) {
		e := openEngine(t, store, testOptions())
		ctx := context.Background()

		first := train(t, e, Batch{Source: "a.txt", Frequencies: map[string]uint64{"x": 1}})
		second := train(t, e, Batch{Source: "b.txt", Frequencies: map[string]uint64{"y": 1, "z": 2}})

		runs, err := e.Runs(ctx, All)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != second.ID || runs[1].ID != first.ID {
			t.Errorf("runs not newest first: %s, %s", runs[0].ID, runs[1].ID)
		}
		if runs[0].Source != "b.txt" || runs[0].WordsMerged != 2 {
			t.Errorf("unexpected run %+v", runs[0])
		}

		latest, err := e.Runs(ctx, Top(1))
		if err != nil {
			t.Fatal(err)
		}
		if len(latest) != 1 || latest[0].ID != second.ID {
			t.Errorf("Runs(Top(1)) = %+v", latest)
		}

		got, err := e.RunByID(ctx, first.ID)
		if err != nil || got.ID != first.ID || got.Source != "a.txt" {
			t.Errorf("RunByID = %+v, %v", got, err)
		}

		_, err = e.RunByID(ctx, ulid.Make())
		if !errors.Is(err, internalerr.ErrNotFound) {
			t.Errorf("RunByID of unknown id: expected ErrNotFound, got %v", err)
		}
	})
}

func TestConcurrentTraining(t *testing.T) {
	e := openEngine(t, memkv.New(Tables()...), testOptions())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Train(ctx, Batch{
				Frequencies: map[string]uint64{"shared": 1, "a": 2, "b": 3},
				Sentences:   []rank.Sentence{sentence("shared a b")},
			})
			if err != nil {
				t.Errorf("Train: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, _, err := e.Frequency(ctx, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Count != 8 {
		t.Errorf("shared count = %d, want 8", rec.Count)
	}
	if err := e.Verify(ctx); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestStatsUpdatesGauge(t *testing.T) {
	opts := testOptions()
	e := openEngine(t, memkv.New(Tables()...), opts)
	seed(t, e)

	st, err := e.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Frequencies != 6 || st.FrequencyIndex != 6 || st.Rankings != 3 || st.RankingIndex != 3 || st.Runs != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
	if got := testutil.ToFloat64(opts.Metrics.TableRows.WithLabelValues(string(TableRankings))); got != 3 {
		t.Errorf("rankings gauge = %v, want 3", got)
	}
}
