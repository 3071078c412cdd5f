// Package kv defines the ordered key/value medium the engine persists into.
//
// A Store is a set of named tables. Every table maps byte-string keys to
// byte-string values and iterates in bytewise key order. All access goes
// through transactions whose lifetime is bounded by a callback: View for
// read-only snapshots, Update for all-or-nothing writes.
package kv

import (
	"context"
	"errors"
)

// Table names a key/value table inside a Store.
type Table string

// Order selects the iteration direction of ForEach.
type Order int

const (
	// Ascending iterates from the smallest key to the largest.
	Ascending Order = iota
	// Descending iterates from the largest key to the smallest.
	Descending
)

// SkipRest may be returned by a ForEach callback to stop iteration early.
// ForEach then returns nil.
var SkipRest = errors.New("skip remaining entries")

// ErrUnknownTable is returned when a transaction touches a table that was not
// declared when the store was opened.
var ErrUnknownTable = errors.New("unknown table")

// ReadTx is a read-only snapshot of the store.
type ReadTx interface {
	// Get returns the value stored under key. found is false when the key is
	// absent; that is not an error.
	Get(t Table, key []byte) (value []byte, found bool, err error)

	// Len returns the number of entries in the table.
	Len(t Table) (int64, error)

	// ForEach calls fn for every entry in key order. fn must not retain k or v
	// and must not call back into the transaction.
	ForEach(t Table, order Order, fn func(k, v []byte) error) error
}

// WriteTx is a read-write transaction. Reads observe the transaction's own
// uncommitted writes.
type WriteTx interface {
	ReadTx

	// Put stores value under key, replacing any previous value.
	Put(t Table, key, value []byte) error

	// Delete removes key and reports whether it existed.
	Delete(t Table, key []byte) (existed bool, err error)

	// Clear removes every entry of the table.
	Clear(t Table) error
}

// Store is the persistent medium. Writers are serialized; readers see the
// last committed state and are never blocked by an in-progress writer.
type Store interface {
	// View runs fn inside a read-only transaction.
	View(ctx context.Context, fn func(tx ReadTx) error) error

	// Update runs fn inside a write transaction. The transaction commits iff
	// fn returns nil; otherwise every write made by fn is discarded.
	Update(ctx context.Context, fn func(tx WriteTx) error) error

	Close() error
}
