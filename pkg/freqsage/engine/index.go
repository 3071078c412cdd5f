package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/cognicore/freqsage/pkg/freqsage/contenthash"
	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv"
)

const indexKeySize = 8 + contenthash.Size

// IndexEntry is one (sort value, content hash) tuple of a secondary index.
type IndexEntry struct {
	SortValue uint64
	Key       contenthash.Digest
}

// indexKey encodes the tuple so that bytewise key order is ascending sort
// value, with the digest as tie-break.
func indexKey(sv uint64, key contenthash.Digest) []byte {
	b := make([]byte, indexKeySize)
	binary.BigEndian.PutUint64(b, sv)
	copy(b[8:], key[:])
	return b
}

func decodeIndexKey(b []byte) (IndexEntry, error) {
	if len(b) != indexKeySize {
		return IndexEntry{}, fmt.Errorf("index key must be %d bytes, got %d", indexKeySize, len(b))
	}
	var e IndexEntry
	e.SortValue = binary.BigEndian.Uint64(b)
	copy(e.Key[:], b[8:])
	return e, nil
}

// Limit bounds the number of entries a query returns.
type Limit struct {
	n       uint64
	bounded bool
}

// All is the unbounded limit.
var All = Limit{}

// Top returns a limit of n entries. Top(0) yields no entries.
func Top(n uint64) Limit {
	return Limit{n: n, bounded: true}
}

func (l Limit) reached(count int) bool {
	return l.bounded && uint64(count) >= l.n
}

// Index is a secondary table of (sort value, hash) keys with empty values,
// mirroring one primary table one-to-one.
type Index struct {
	Name    string
	Table   kv.Table
	Primary kv.Table
}

// Update moves the entry of key from old to newValue. old is nil when the
// primary record is being created. It must run in the same transaction as
// the primary write that triggered it.
func (ix *Index) Update(tx kv.WriteTx, old *uint64, newValue uint64, key contenthash.Digest) error {
	if old != nil {
		existed, err := tx.Delete(ix.Table, indexKey(*old, key))
		if err != nil {
			return internalerr.Op("index_update", key.Short(), err)
		}
		if !existed {
			return internalerr.Inconsistent("index_update", key.Short(),
				"%s index has no entry for sort value %d", ix.Name, *old)
		}
	}
	if err := tx.Put(ix.Table, indexKey(newValue, key), []byte{}); err != nil {
		return internalerr.Op("index_update", key.Short(), err)
	}
	return nil
}

// Lowest returns entries in ascending sort value order, lowest first. This
// is the natural order of the index table.
func (ix *Index) Lowest(tx kv.ReadTx, limit Limit) ([]IndexEntry, error) {
	return ix.scan(tx, kv.Ascending, limit)
}

// Highest returns entries in descending sort value order by walking the
// index from its high end. Use it for "top N" by magnitude.
func (ix *Index) Highest(tx kv.ReadTx, limit Limit) ([]IndexEntry, error) {
	return ix.scan(tx, kv.Descending, limit)
}

func (ix *Index) scan(tx kv.ReadTx, order kv.Order, limit Limit) ([]IndexEntry, error) {
	if limit.reached(0) {
		return nil, nil
	}
	var out []IndexEntry
	err := tx.ForEach(ix.Table, order, func(k, _ []byte) error {
		e, err := decodeIndexKey(k)
		if err != nil {
			return internalerr.Inconsistent("index_scan", ix.Name, "%v", err)
		}
		out = append(out, e)
		if limit.reached(len(out)) {
			return kv.SkipRest
		}
		return nil
	})
	if err != nil {
		return nil, internalerr.Op("index_scan", ix.Name, err)
	}
	return out, nil
}

// Drifted reports whether the index row count differs from the primary row
// count. Only the two row counts are read; no entry is decoded.
func (ix *Index) Drifted(tx kv.ReadTx) (bool, error) {
	nIndex, err := tx.Len(ix.Table)
	if err != nil {
		return false, internalerr.Op("index_check", ix.Name, err)
	}
	nPrimary, err := tx.Len(ix.Primary)
	if err != nil {
		return false, internalerr.Op("index_check", ix.Name, err)
	}
	return nIndex != nPrimary, nil
}

// EnsureConsistent rebuilds the index when forced (a pending layout upgrade)
// or when its row count has drifted from the primary table.
func (ix *Index) EnsureConsistent(tx kv.WriteTx, forced bool) (bool, error) {
	if !forced {
		drifted, err := ix.Drifted(tx)
		if err != nil {
			return false, err
		}
		if !drifted {
			return false, nil
		}
	}
	if _, err := ix.Rebuild(tx); err != nil {
		return false, err
	}
	return true, nil
}

// Rebuild deletes the whole index and re-inserts the current sort value of
// every primary record. It returns the number of entries written.
func (ix *Index) Rebuild(tx kv.WriteTx) (int64, error) {
	entries, err := ix.primaryEntries(tx)
	if err != nil {
		return 0, err
	}

	if err := tx.Clear(ix.Table); err != nil {
		return 0, internalerr.Op("index_rebuild", ix.Name, err)
	}
	for _, e := range entries {
		if err := tx.Put(ix.Table, indexKey(e.SortValue, e.Key), []byte{}); err != nil {
			return 0, internalerr.Op("index_rebuild", ix.Name, err)
		}
	}

	nIndex, err := tx.Len(ix.Table)
	if err != nil {
		return 0, internalerr.Op("index_rebuild", ix.Name, err)
	}
	if nIndex != int64(len(entries)) {
		return 0, internalerr.Inconsistent("index_rebuild", ix.Name,
			"index has %d rows after rebuild, primary has %d", nIndex, len(entries))
	}
	return nIndex, nil
}

// Verify checks that every primary record has exactly one index entry with a
// matching sort value and that the tables have the same row count.
func (ix *Index) Verify(tx kv.ReadTx) error {
	entries, err := ix.primaryEntries(tx)
	if err != nil {
		return err
	}
	nIndex, err := tx.Len(ix.Table)
	if err != nil {
		return internalerr.Op("index_verify", ix.Name, err)
	}
	if nIndex != int64(len(entries)) {
		return internalerr.Inconsistent("index_verify", ix.Name,
			"index has %d rows, primary has %d", nIndex, len(entries))
	}
	for _, e := range entries {
		_, found, err := tx.Get(ix.Table, indexKey(e.SortValue, e.Key))
		if err != nil {
			return internalerr.Op("index_verify", e.Key.Short(), err)
		}
		if !found {
			return internalerr.Inconsistent("index_verify", e.Key.Short(),
				"%s index has no entry for sort value %d", ix.Name, e.SortValue)
		}
	}
	return nil
}

// primaryEntries reads the (sort value, key) pair of every primary record.
// Entries are collected before any index write so the primary scan never
// overlaps with writes on the same transaction.
func (ix *Index) primaryEntries(tx kv.ReadTx) ([]IndexEntry, error) {
	var entries []IndexEntry
	err := tx.ForEach(ix.Primary, kv.Ascending, func(k, v []byte) error {
		key, err := contenthash.FromBytes(k)
		if err != nil {
			return internalerr.Inconsistent("index_scan_primary", ix.Name, "%v", err)
		}
		sv, err := sortValue(v)
		if err != nil {
			return internalerr.Inconsistent("index_scan_primary", key.Short(), "%v", err)
		}
		entries = append(entries, IndexEntry{SortValue: sv, Key: key})
		return nil
	})
	if err != nil {
		return nil, internalerr.Op("index_scan_primary", ix.Name, err)
	}
	return entries, nil
}
