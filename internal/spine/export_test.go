package spine

import (
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in spine_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailExec makes every subsequent Exec through the store return err.
func (s *Store) FailExec(err error) {
	s.hooks.exec = func(execer, string, ...any) (sql.Result, error) {
		return nil, err
	}
}

// FailCommit makes every subsequent transaction commit return err.
func (s *Store) FailCommit(err error) {
	s.hooks.commit = func(*sql.Tx) error { return err }
}

// SetTimeNow pins the package clock and returns a restore func.
func SetTimeNow(t time.Time) func() {
	prev := timeNow
	timeNow = func() time.Time { return t }
	return func() { timeNow = prev }
}
