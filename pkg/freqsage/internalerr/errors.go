package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrInconsistent marks a broken internal invariant (duplicate version rows,
	// index/primary cardinality mismatch, missing record for a key that must
	// exist). It is never retried or silently repaired.
	ErrInconsistent = errors.New("internal consistency violation")

	// ErrSchemaTooNew is returned when the on-disk layout version is newer than
	// the one compiled into this binary.
	ErrSchemaTooNew = errors.New("on-disk layout is newer than this build")
)

// OpError records the operation and key that failed.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Op wraps err with the operation name and key. A nil err yields nil.
func Op(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Key: key, Err: err}
}

// Inconsistent builds an ErrInconsistent for op/key with a formatted detail.
func Inconsistent(op, key, format string, args ...any) error {
	return &OpError{
		Op:  op,
		Key: key,
		Err: fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...)),
	}
}

// IsFatal reports whether err indicates a condition the operator cannot fix by
// retrying: a broken invariant or a layout from a newer build.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInconsistent) || errors.Is(err, ErrSchemaTooNew)
}
