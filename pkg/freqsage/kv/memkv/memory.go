package memkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/freqsage/pkg/freqsage/kv"
)

// ErrClosed is returned by transactions started after Close.
var ErrClosed = errors.New("memkv: store closed")

type table map[string][]byte

// Store is an in-memory implementation of kv.Store for tests and dry runs.
// Committed state is immutable: a writer copies each table it touches and
// publishes the new tables atomically on commit, so readers never block.
type Store struct {
	writeMu sync.Mutex // serializes writers

	mu     sync.RWMutex // guards state and closed
	state  map[kv.Table]table
	closed bool
}

// New creates a store with the given tables.
func New(tables ...kv.Table) *Store {
	state := make(map[kv.Table]table, len(tables))
	for _, t := range tables {
		state[t] = table{}
	}
	return &Store{state: state}
}

// Close implements kv.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) snapshot() (map[kv.Table]table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.state, nil
}

// View runs fn against the last committed state.
func (s *Store) View(ctx context.Context, fn func(kv.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := s.snapshot()
	if err != nil {
		return err
	}
	return fn(&memTx{base: state})
}

// Update runs fn against a private copy of the touched tables and publishes
// them if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(kv.WriteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state, err := s.snapshot()
	if err != nil {
		return err
	}

	tx := &memTx{base: state, dirty: make(map[kv.Table]table)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	next := make(map[kv.Table]table, len(state))
	for name, t := range state {
		next[name] = t
	}
	for name, t := range tx.dirty {
		next[name] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.state = next
	return nil
}

type memTx struct {
	base  map[kv.Table]table
	dirty map[kv.Table]table // nil for read-only transactions
}

func (tx *memTx) read(name kv.Table) (table, error) {
	if t, ok := tx.dirty[name]; ok {
		return t, nil
	}
	t, ok := tx.base[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", kv.ErrUnknownTable, name)
	}
	return t, nil
}

func (tx *memTx) write(name kv.Table) (table, error) {
	if t, ok := tx.dirty[name]; ok {
		return t, nil
	}
	base, ok := tx.base[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", kv.ErrUnknownTable, name)
	}
	t := make(table, len(base))
	for k, v := range base {
		t[k] = v
	}
	tx.dirty[name] = t
	return t, nil
}

func (tx *memTx) Get(name kv.Table, key []byte) ([]byte, bool, error) {
	t, err := tx.read(name)
	if err != nil {
		return nil, false, err
	}
	v, ok := t[string(key)]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (tx *memTx) Len(name kv.Table) (int64, error) {
	t, err := tx.read(name)
	if err != nil {
		return 0, err
	}
	return int64(len(t)), nil
}

func (tx *memTx) ForEach(name kv.Table, order kv.Order, fn func(k, v []byte) error) error {
	t, err := tx.read(name)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	// Go string comparison is bytewise, matching the SQLite BLOB collation
	sort.Strings(keys)
	if order == kv.Descending {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	for _, k := range keys {
		if err := fn([]byte(k), bytes.Clone(t[k])); err != nil {
			if err == kv.SkipRest {
				return nil
			}
			return err
		}
	}
	return nil
}

func (tx *memTx) Put(name kv.Table, key, value []byte) error {
	t, err := tx.write(name)
	if err != nil {
		return err
	}
	t[string(key)] = bytes.Clone(value)
	return nil
}

func (tx *memTx) Delete(name kv.Table, key []byte) (bool, error) {
	t, err := tx.write(name)
	if err != nil {
		return false, err
	}
	_, ok := t[string(key)]
	delete(t, string(key))
	return ok, nil
}

func (tx *memTx) Clear(name kv.Table) error {
	if _, ok := tx.base[name]; !ok {
		return fmt.Errorf("%w: %s", kv.ErrUnknownTable, name)
	}
	tx.dirty[name] = table{}
	return nil
}
