package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/cognicore/freqsage/pkg/freqsage/kv"
)

var tableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// sqliteStore implements kv.Store on top of SQLite. Each kv table is a
// WITHOUT ROWID table whose primary key is the kv key, so ordered scans walk
// the key b-tree directly.
type sqliteStore struct {
	db      *sql.DB
	tables  map[kv.Table]struct{}
	writeMu sync.Mutex // serializes writers
}

// Open opens (or creates) the SQLite file at path with WAL mode enabled and
// ensures every listed table exists.
func Open(ctx context.Context, path string, tables ...kv.Table) (kv.Store, error) {
	for _, t := range tables {
		if !tableName.MatchString(string(t)) {
			return nil, fmt.Errorf("invalid table name %q", t)
		}
	}

	if strings.Contains(path, "?") {
		return nil, fmt.Errorf("sqlite path %q must not contain a query", path)
	}

	// Pragmas in the DSN run on every pooled connection. WAL gives readers a
	// stable snapshot while a writer is active.
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db, tables); err != nil {
		db.Close()
		return nil, err
	}

	set := make(map[kv.Table]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	return &sqliteStore{db: db, tables: set}, nil
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB, tables []kv.Table) error {
	for _, t := range tables {
		stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	k BLOB PRIMARY KEY,
	v BLOB
) WITHOUT ROWID;
`, t)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", t, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// View runs fn in a transaction that is always rolled back.
func (s *sqliteStore) View(ctx context.Context, fn func(kv.ReadTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	return fn(&sqliteTx{ctx: ctx, tx: tx, tables: s.tables})
}

// Update runs fn in a transaction and commits it when fn succeeds.
func (s *sqliteStore) Update(ctx context.Context, fn func(kv.WriteTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{ctx: ctx, tx: tx, tables: s.tables}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	ctx    context.Context
	tx     *sql.Tx
	tables map[kv.Table]struct{}
}

func (t *sqliteTx) check(table kv.Table) error {
	if _, ok := t.tables[table]; !ok {
		return fmt.Errorf("%w: %s", kv.ErrUnknownTable, table)
	}
	return nil
}

func (t *sqliteTx) Get(table kv.Table, key []byte) ([]byte, bool, error) {
	if err := t.check(table); err != nil {
		return nil, false, err
	}
	var v []byte
	err := t.tx.QueryRowContext(t.ctx, fmt.Sprintf(`SELECT v FROM %s WHERE k = ?`, table), key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (t *sqliteTx) Len(table kv.Table) (int64, error) {
	if err := t.check(table); err != nil {
		return 0, err
	}
	var n int64
	err := t.tx.QueryRowContext(t.ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n)
	return n, err
}

func (t *sqliteTx) ForEach(table kv.Table, order kv.Order, fn func(k, v []byte) error) error {
	if err := t.check(table); err != nil {
		return err
	}
	dir := "ASC"
	if order == kv.Descending {
		dir = "DESC"
	}

	rows, err := t.tx.QueryContext(t.ctx, fmt.Sprintf(`SELECT k, v FROM %s ORDER BY k %s`, table, dir))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			if err == kv.SkipRest {
				return nil
			}
			return err
		}
	}
	return rows.Err()
}

func (t *sqliteTx) Put(table kv.Table, key, value []byte) error {
	if err := t.check(table); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx, fmt.Sprintf(`
INSERT INTO %s (k, v) VALUES (?, ?)
ON CONFLICT(k) DO UPDATE SET v=excluded.v;
`, table), key, value)
	return err
}

func (t *sqliteTx) Delete(table kv.Table, key []byte) (bool, error) {
	if err := t.check(table); err != nil {
		return false, err
	}
	res, err := t.tx.ExecContext(t.ctx, fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, table), key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *sqliteTx) Clear(table kv.Table) error {
	if err := t.check(table); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx, fmt.Sprintf(`DELETE FROM %s`, table))
	return err
}
