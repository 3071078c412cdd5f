// Package kvtest is a conformance suite shared by the kv.Store backends.
package kvtest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/cognicore/freqsage/pkg/freqsage/kv"
)

// Tables are the tables every store under test must be opened with.
var Tables = []kv.Table{"alpha", "beta"}

// Opener returns a fresh, empty store opened with Tables.
type Opener func(t *testing.T) kv.Store

// Run executes the whole suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, open(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, open(t)) })
	t.Run("OrderedIteration", func(t *testing.T) { testOrderedIteration(t, open(t)) })
	t.Run("SkipRest", func(t *testing.T) { testSkipRest(t, open(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, open(t)) })
	t.Run("DeleteAndClear", func(t *testing.T) { testDeleteAndClear(t, open(t)) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, open(t)) })
	t.Run("TablesAreIsolated", func(t *testing.T) { testTablesAreIsolated(t, open(t)) })
	t.Run("UnknownTable", func(t *testing.T) { testUnknownTable(t, open(t)) })
	t.Run("EmptyValue", func(t *testing.T) { testEmptyValue(t, open(t)) })
}

func put(t *testing.T, s kv.Store, table kv.Table, pairs ...string) {
	t.Helper()
	err := s.Update(context.Background(), func(tx kv.WriteTx) error {
		for i := 0; i+1 < len(pairs); i += 2 {
			if err := tx.Put(table, []byte(pairs[i]), []byte(pairs[i+1])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func get(t *testing.T, s kv.Store, table kv.Table, key string) (string, bool) {
	t.Helper()
	var (
		val   []byte
		found bool
	)
	err := s.View(context.Background(), func(tx kv.ReadTx) error {
		var err error
		val, found, err = tx.Get(table, []byte(key))
		return err
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	return string(val), found
}

func keys(t *testing.T, s kv.Store, table kv.Table, order kv.Order) []string {
	t.Helper()
	var out []string
	err := s.View(context.Background(), func(tx kv.ReadTx) error {
		return tx.ForEach(table, order, func(k, v []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	return out
}

func testPutGet(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "k1", "v1", "k2", "v2")

	if v, ok := get(t, s, "alpha", "k1"); !ok || v != "v1" {
		t.Errorf("k1 = %q, %v; want v1, true", v, ok)
	}
	if _, ok := get(t, s, "alpha", "missing"); ok {
		t.Error("missing key should not be found")
	}
}

func testOverwrite(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "k", "old")
	put(t, s, "alpha", "k", "new")

	if v, _ := get(t, s, "alpha", "k"); v != "new" {
		t.Errorf("expected overwrite, got %q", v)
	}
	var n int64
	s.View(context.Background(), func(tx kv.ReadTx) error {
		var err error
		n, err = tx.Len("alpha")
		return err
	})
	if n != 1 {
		t.Errorf("expected 1 row after overwrite, got %d", n)
	}
}

func testOrderedIteration(t *testing.T, s kv.Store) {
	defer s.Close()
	// Inserted out of order, with a shared prefix and a high byte
	put(t, s, "alpha", "b", "", "a", "", "ab", "", "\xff", "", "\x00z", "")

	asc := keys(t, s, "alpha", kv.Ascending)
	want := []string{"\x00z", "a", "ab", "b", "\xff"}
	if len(asc) != len(want) {
		t.Fatalf("ascending: got %q, want %q", asc, want)
	}
	for i := range want {
		if asc[i] != want[i] {
			t.Fatalf("ascending: got %q, want %q", asc, want)
		}
	}

	desc := keys(t, s, "alpha", kv.Descending)
	for i := range want {
		if desc[i] != want[len(want)-1-i] {
			t.Fatalf("descending: got %q", desc)
		}
	}
}

func testSkipRest(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "1", "", "2", "", "3", "")

	var seen []string
	err := s.View(context.Background(), func(tx kv.ReadTx) error {
		return tx.ForEach("alpha", kv.Descending, func(k, v []byte) error {
			seen = append(seen, string(k))
			if len(seen) == 2 {
				return kv.SkipRest
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("SkipRest should not surface as an error: %v", err)
	}
	if len(seen) != 2 || seen[0] != "3" || seen[1] != "2" {
		t.Errorf("unexpected keys %q", seen)
	}
}

func testRollbackOnError(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "keep", "1")

	boom := errors.New("boom")
	err := s.Update(context.Background(), func(tx kv.WriteTx) error {
		if err := tx.Put("alpha", []byte("keep"), []byte("2")); err != nil {
			return err
		}
		if err := tx.Put("beta", []byte("new"), []byte("x")); err != nil {
			return err
		}
		if _, err := tx.Delete("alpha", []byte("keep")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	if v, ok := get(t, s, "alpha", "keep"); !ok || v != "1" {
		t.Errorf("rolled back write leaked: %q, %v", v, ok)
	}
	if _, ok := get(t, s, "beta", "new"); ok {
		t.Error("rolled back insert leaked into beta")
	}
}

func testDeleteAndClear(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "a", "1", "b", "2", "c", "3")

	err := s.Update(context.Background(), func(tx kv.WriteTx) error {
		existed, err := tx.Delete("alpha", []byte("a"))
		if err != nil {
			return err
		}
		if !existed {
			t.Error("expected a to exist")
		}
		existed, err = tx.Delete("alpha", []byte("zzz"))
		if err != nil {
			return err
		}
		if existed {
			t.Error("zzz should not exist")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := keys(t, s, "alpha", kv.Ascending); len(got) != 2 {
		t.Fatalf("expected 2 keys after delete, got %q", got)
	}

	err = s.Update(context.Background(), func(tx kv.WriteTx) error {
		return tx.Clear("alpha")
	})
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := keys(t, s, "alpha", kv.Ascending); len(got) != 0 {
		t.Errorf("expected empty table after Clear, got %q", got)
	}
}

func testReadYourWrites(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "a", "1")

	err := s.Update(context.Background(), func(tx kv.WriteTx) error {
		if err := tx.Put("alpha", []byte("b"), []byte("2")); err != nil {
			return err
		}
		n, err := tx.Len("alpha")
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("Len inside txn = %d, want 2", n)
		}
		v, found, err := tx.Get("alpha", []byte("b"))
		if err != nil {
			return err
		}
		if !found || !bytes.Equal(v, []byte("2")) {
			t.Errorf("uncommitted write not visible: %q, %v", v, found)
		}
		if err := tx.Clear("alpha"); err != nil {
			return err
		}
		n, err = tx.Len("alpha")
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("Len after Clear inside txn = %d, want 0", n)
		}
		return tx.Put("alpha", []byte("c"), []byte("3"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := keys(t, s, "alpha", kv.Ascending)
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("expected only c after commit, got %q", got)
	}
}

func testTablesAreIsolated(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "k", "a")
	put(t, s, "beta", "k", "b")

	if v, _ := get(t, s, "alpha", "k"); v != "a" {
		t.Errorf("alpha/k = %q", v)
	}
	if v, _ := get(t, s, "beta", "k"); v != "b" {
		t.Errorf("beta/k = %q", v)
	}
}

func testUnknownTable(t *testing.T, s kv.Store) {
	defer s.Close()
	err := s.View(context.Background(), func(tx kv.ReadTx) error {
		_, _, err := tx.Get("gamma", []byte("k"))
		return err
	})
	if !errors.Is(err, kv.ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
}

func testEmptyValue(t *testing.T, s kv.Store) {
	defer s.Close()
	put(t, s, "alpha", "empty", "")

	v, ok := get(t, s, "alpha", "empty")
	if !ok {
		t.Fatal("key with empty value should be found")
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}
}
