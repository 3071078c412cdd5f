package engine

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv"
)

// Run summarizes one committed training batch.
type Run struct {
	ID               ulid.ULID `json:"-"`
	Source           string    `json:"source"`
	CommittedAt      time.Time `json:"committed_at"`
	WordsMerged      int       `json:"words_merged"`
	NewWords         int       `json:"new_words"`
	SentencesRanked  int       `json:"sentences_ranked"`
	NewSentences     int       `json:"new_sentences"`
	SkippedShort     int       `json:"skipped_short"`
	SkippedDuplicate int       `json:"skipped_duplicate"`
}

// runIDs hands out monotonic ULIDs; run keys therefore sort by time.
type runIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newRunIDs() *runIDs {
	return &runIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *runIDs) next(t time.Time) ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy)
}

func putRun(tx kv.WriteTx, r Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return internalerr.Op("put_run", r.ID.String(), err)
	}
	if err := tx.Put(TableRuns, r.ID[:], data); err != nil {
		return internalerr.Op("put_run", r.ID.String(), err)
	}
	return nil
}

func getRun(tx kv.ReadTx, id ulid.ULID) (Run, error) {
	v, found, err := tx.Get(TableRuns, id[:])
	if err != nil {
		return Run{}, internalerr.Op("get_run", id.String(), err)
	}
	if !found {
		return Run{}, internalerr.Op("get_run", id.String(), internalerr.ErrNotFound)
	}
	r, err := decodeRun(id[:], v)
	if err != nil {
		return Run{}, internalerr.Inconsistent("get_run", id.String(), "%v", err)
	}
	return r, nil
}

func decodeRun(k, v []byte) (Run, error) {
	var r Run
	if err := json.Unmarshal(v, &r); err != nil {
		return Run{}, fmt.Errorf("corrupt run record: %w", err)
	}
	if err := r.ID.UnmarshalBinary(k); err != nil {
		return Run{}, fmt.Errorf("corrupt run key: %w", err)
	}
	return r, nil
}

// listRuns returns runs newest first.
func listRuns(tx kv.ReadTx, limit Limit) ([]Run, error) {
	if limit.reached(0) {
		return nil, nil
	}
	var runs []Run
	err := tx.ForEach(TableRuns, kv.Descending, func(k, v []byte) error {
		r, err := decodeRun(k, v)
		if err != nil {
			return internalerr.Inconsistent("list_runs", "", "%v", err)
		}
		runs = append(runs, r)
		if limit.reached(len(runs)) {
			return kv.SkipRest
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
