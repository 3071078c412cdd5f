package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv"
)

var versionKey = []byte("version")

// LayoutState is the outcome of checking the stored layout version.
type LayoutState int

const (
	// Consistent means the stored version equals the compiled one.
	Consistent LayoutState = iota
	// NeedsUpgrade means the stored version was older; it has been migrated
	// and the secondary indices must be rebuilt before they are queried.
	NeedsUpgrade
)

func (s LayoutState) String() string {
	switch s {
	case Consistent:
		return "consistent"
	case NeedsUpgrade:
		return "needs-upgrade"
	default:
		return fmt.Sprintf("LayoutState(%d)", int(s))
	}
}

// Migration transforms the store from version-1 to the version it is
// registered under.
type Migration func(tx kv.WriteTx) error

// defaultMigrations maps each layout version to the step that produces it.
// Version 0 is an empty or pre-versioned store, so reaching 1 needs no data
// changes; the forced index rebuild that follows every upgrade is enough.
var defaultMigrations = map[uint32]Migration{
	1: func(kv.WriteTx) error { return nil },
}

// GuardResult describes what VersionGuard.Check found and did.
type GuardResult struct {
	State LayoutState
	From  uint32
	To    uint32
}

// VersionGuard owns the single-row layout table.
type VersionGuard struct {
	Current    uint32
	Migrations map[uint32]Migration
}

// NewVersionGuard returns a guard for CurrentLayoutVersion with the built-in
// migrations.
func NewVersionGuard() *VersionGuard {
	return &VersionGuard{Current: CurrentLayoutVersion, Migrations: defaultMigrations}
}

// Stored returns the stored layout version, 0 if the table is empty. More
// than one row, or a row under an unexpected key, is an internal consistency
// violation.
func (g *VersionGuard) Stored(tx kv.ReadTx) (uint32, error) {
	n, err := tx.Len(TableLayout)
	if err != nil {
		return 0, internalerr.Op("read_layout_version", "", err)
	}
	if n > 1 {
		return 0, internalerr.Inconsistent("read_layout_version", "", "layout table has %d rows, want at most 1", n)
	}
	if n == 0 {
		return 0, nil
	}

	v, found, err := tx.Get(TableLayout, versionKey)
	if err != nil {
		return 0, internalerr.Op("read_layout_version", "", err)
	}
	if !found {
		return 0, internalerr.Inconsistent("read_layout_version", "", "layout table row is not the version record")
	}
	if len(v) != 4 {
		return 0, internalerr.Inconsistent("read_layout_version", "", "version record is %d bytes, want 4", len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

// Check compares the stored version with g.Current. An older store is
// migrated step by step and the version record replaced, all inside tx; a
// newer store is refused with ErrSchemaTooNew.
func (g *VersionGuard) Check(tx kv.WriteTx) (GuardResult, error) {
	stored, err := g.Stored(tx)
	if err != nil {
		return GuardResult{}, err
	}
	res := GuardResult{State: Consistent, From: stored, To: g.Current}

	switch {
	case stored == g.Current:
		return res, nil
	case stored > g.Current:
		return res, &internalerr.OpError{
			Op:  "check_layout_version",
			Key: fmt.Sprintf("stored=%d compiled=%d", stored, g.Current),
			Err: internalerr.ErrSchemaTooNew,
		}
	}

	for v := stored + 1; v <= g.Current; v++ {
		step, ok := g.Migrations[v]
		if !ok {
			return res, internalerr.Inconsistent("migrate_layout", fmt.Sprint(v), "no migration registered")
		}
		if err := step(tx); err != nil {
			return res, internalerr.Op("migrate_layout", fmt.Sprint(v), err)
		}
	}

	if err := writeVersion(tx, g.Current); err != nil {
		return res, err
	}
	res.State = NeedsUpgrade
	return res, nil
}

func writeVersion(tx kv.WriteTx, v uint32) error {
	if err := tx.Clear(TableLayout); err != nil {
		return internalerr.Op("write_layout_version", "", err)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	if err := tx.Put(TableLayout, versionKey, b[:]); err != nil {
		return internalerr.Op("write_layout_version", "", err)
	}
	return nil
}
