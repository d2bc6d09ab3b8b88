package spine

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups when no record has the given key.
var ErrNotFound = errors.New("spine: record not found")

// ErrInvalid is wrapped by every validation failure on a record.
var ErrInvalid = errors.New("spine: invalid record")

// StorageError reports a failure of the underlying database. It is always
// fatal to the operation that produced it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("spine: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Outcome is the result of an insert-if-absent. A duplicate is an expected
// result, not an error.
type Outcome int

const (
	Inserted Outcome = iota
	Duplicate
)

func (o Outcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "inserted"
}
