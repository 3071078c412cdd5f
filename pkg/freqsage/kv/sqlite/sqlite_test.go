package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cognicore/freqsage/pkg/freqsage/kv"
	"github.com/cognicore/freqsage/pkg/freqsage/kv/kvtest"
)

func openTemp(t *testing.T) kv.Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), kvtest.Tables...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestConformance(t *testing.T) {
	kvtest.Run(t, openTemp)
}

func TestConformanceInMemory(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		st, err := Open(context.Background(), ":memory:", kvtest.Tables...)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return st
	})
}

// TestReopenPreservesData tests that committed data survives closing the file
func TestReopenPreservesData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "English")

	st, err := Open(ctx, dbPath, "alpha")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = st.Update(ctx, func(tx kv.WriteTx) error {
		return tx.Put("alpha", []byte{0x01, 0x02}, []byte("payload"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	st.Close()

	// Reopen with an extra table, as a newer layout would
	st2, err := Open(ctx, dbPath, "alpha", "beta")
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer st2.Close()

	err = st2.View(ctx, func(tx kv.ReadTx) error {
		v, found, err := tx.Get("alpha", []byte{0x01, 0x02})
		if err != nil {
			return err
		}
		if !found || string(v) != "payload" {
			t.Errorf("expected payload after reopen, got %q, %v", v, found)
		}
		n, err := tx.Len("beta")
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("new table should be empty, got %d rows", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

// TestSchemaCreationIdempotent tests that opening the same file repeatedly is safe
func TestSchemaCreationIdempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		st, err := Open(ctx, dbPath, kvtest.Tables...)
		if err != nil {
			t.Fatalf("Open iteration %d: %v", i, err)
		}
		st.Close()
	}
}

func TestInvalidTableName(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "x.db"), "bad; DROP TABLE x")
	if err == nil {
		t.Fatal("expected error for invalid table name")
	}
}

// TestPragmasOnEveryConnection holds two pooled connections at once and
// checks both carry the busy timeout and WAL mode.
func TestPragmasOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t).(*sqliteStore)
	defer st.Close()

	var conns []*sql.Conn
	for i := 0; i < 2; i++ {
		c, err := st.db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn %d: %v", i, err)
		}
		defer c.Close()
		conns = append(conns, c)
	}

	for i, c := range conns {
		var timeout int
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if timeout != 5000 {
			t.Errorf("conn %d busy_timeout = %d, want 5000", i, timeout)
		}
		var mode string
		if err := c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("conn %d journal_mode: %v", i, err)
		}
		if mode != "wal" {
			t.Errorf("conn %d journal_mode = %q, want wal", i, mode)
		}
	}
}

func TestPathWithQueryRejected(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "en?mode=ro"), kvtest.Tables...)
	if err == nil {
		t.Fatal("expected error for path with query")
	}
}
