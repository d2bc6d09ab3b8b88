// Package spine implements the CaseSpine record store.
//
// It keeps the four case tables (source files, spine items, timeline events
// and sticky notes) in SQLite with an FTS5 index over spine content. Spine
// items and source files are content-addressed: their SHA-256 fingerprint is
// unique, and inserting a second record with the same fingerprint reports a
// Duplicate outcome instead of overwriting. The original content of a spine
// item is write-once and the schema enforces it.
package spine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFileName is the database file created under Config.DataDir.
const DBFileName = "casespine.db"

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds record store configuration.
type Config struct {
	DataDir          string
	MaxSearchResults int
}

// DefaultConfig returns the default configuration for the record store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".casespine"),
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent case record store backed by SQLite + FTS5.
// It is safe to share between handlers; SQLite serializes writers.
type Store struct {
	db     *sql.DB
	cfg    Config
	log    *zap.Logger
	hooks  storeHooks
	dbPath string
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlRowScanner struct {
	rows *sql.Rows
}

func (r sqlRowScanner) Next() bool             { return r.rows.Next() }
func (r sqlRowScanner) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRowScanner) Err() error             { return r.rows.Err() }
func (r sqlRowScanner) Close() error           { return r.rows.Close() }

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	queryIt func(db queryer, query string, args ...any) (rowScanner, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) queryItHook(db queryer, query string, args ...any) (rowScanner, error) {
	if s.hooks.queryIt != nil {
		return s.hooks.queryIt(db, query, args...)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRowScanner{rows: rows}, nil
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(s.db)
	}
	return s.db.Begin()
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens (or creates) the case database under cfg.DataDir, applies the
// SQLite pragmas and runs schema migrations. A nil logger is replaced with a
// no-op logger.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = DefaultConfig().MaxSearchResults
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("spine: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, DBFileName)
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, storageErr(fmt.Sprintf("pragma %q", p), err)
		}
	}

	s := &Store{db: db, cfg: cfg, log: logger, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, storageErr("migration", err)
	}

	logger.Debug("record store opened", zap.String("path", dbPath))
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// ─── Schema ──────────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sources (
			id           TEXT PRIMARY KEY,
			file_name    TEXT    NOT NULL,
			file_hash    TEXT    NOT NULL UNIQUE,
			imported_at  TEXT    NOT NULL,
			file_type    TEXT    NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_sources_imported ON sources(imported_at);
		CREATE INDEX IF NOT EXISTS idx_sources_type     ON sources(file_type);

		CREATE TABLE IF NOT EXISTS spine_items (
			id                 TEXT PRIMARY KEY,
			source_id          TEXT    NOT NULL,
			timestamp          TEXT    NOT NULL,
			counterpart        TEXT    NOT NULL DEFAULT '',
			platform           TEXT    NOT NULL DEFAULT '',
			category           TEXT    NOT NULL DEFAULT '',
			content_original   TEXT    NOT NULL,
			content_neutral    TEXT,
			sha256_fingerprint TEXT    NOT NULL UNIQUE,
			created_at         TEXT    NOT NULL,
			file_name          TEXT    NOT NULL DEFAULT '',
			last_modified      INTEGER,
			type               TEXT    NOT NULL DEFAULT 'document',
			verified           INTEGER NOT NULL DEFAULT 0,
			confidence         REAL    NOT NULL DEFAULT 0,
			lane               TEXT    NOT NULL DEFAULT '',
			tags               TEXT    NOT NULL DEFAULT '[]',
			exhibit_code       TEXT    NOT NULL DEFAULT '',
			reliability        TEXT    NOT NULL DEFAULT '',
			source             TEXT    NOT NULL DEFAULT '',
			title              TEXT    NOT NULL DEFAULT '',
			notes              TEXT    NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_spine_source    ON spine_items(source_id);
		CREATE INDEX IF NOT EXISTS idx_spine_timestamp ON spine_items(timestamp);
		CREATE INDEX IF NOT EXISTS idx_spine_category  ON spine_items(category);
		CREATE INDEX IF NOT EXISTS idx_spine_lane      ON spine_items(lane);
		CREATE INDEX IF NOT EXISTS idx_spine_type      ON spine_items(type);
		CREATE INDEX IF NOT EXISTS idx_spine_created   ON spine_items(created_at);

		CREATE VIRTUAL TABLE IF NOT EXISTS spine_fts USING fts5(
			content_original,
			content_neutral,
			counterpart,
			title,
			tags,
			content='spine_items',
			content_rowid='rowid'
		);

		CREATE TABLE IF NOT EXISTS timeline_events (
			id          TEXT PRIMARY KEY,
			date        TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			lane        TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'asserted',
			spine_refs  TEXT NOT NULL DEFAULT '[]',
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_timeline_date   ON timeline_events(date);
		CREATE INDEX IF NOT EXISTS idx_timeline_lane   ON timeline_events(lane);
		CREATE INDEX IF NOT EXISTS idx_timeline_status ON timeline_events(status);

		CREATE TABLE IF NOT EXISTS sticky_notes (
			id          TEXT PRIMARY KEY,
			target_type TEXT    NOT NULL,
			target_id   TEXT    NOT NULL DEFAULT '',
			text        TEXT    NOT NULL DEFAULT '',
			color       TEXT    NOT NULL DEFAULT 'yellow',
			is_private  INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT    NOT NULL,
			x           REAL,
			y           REAL
		);

		CREATE INDEX IF NOT EXISTS idx_notes_target  ON sticky_notes(target_type, target_id);
		CREATE INDEX IF NOT EXISTS idx_notes_private ON sticky_notes(is_private);
	`
	if _, err := s.execHook(s.db, schema); err != nil {
		return err
	}

	// Triggers are created with IF NOT EXISTS so reopening an existing
	// database is a no-op.
	triggers := `
		CREATE TRIGGER IF NOT EXISTS spine_fts_insert AFTER INSERT ON spine_items BEGIN
			INSERT INTO spine_fts(rowid, content_original, content_neutral, counterpart, title, tags)
			VALUES (new.rowid, new.content_original, new.content_neutral, new.counterpart, new.title, new.tags);
		END;

		CREATE TRIGGER IF NOT EXISTS spine_fts_delete AFTER DELETE ON spine_items BEGIN
			INSERT INTO spine_fts(spine_fts, rowid, content_original, content_neutral, counterpart, title, tags)
			VALUES ('delete', old.rowid, old.content_original, old.content_neutral, old.counterpart, old.title, old.tags);
		END;

		CREATE TRIGGER IF NOT EXISTS spine_fts_update AFTER UPDATE ON spine_items BEGIN
			INSERT INTO spine_fts(spine_fts, rowid, content_original, content_neutral, counterpart, title, tags)
			VALUES ('delete', old.rowid, old.content_original, old.content_neutral, old.counterpart, old.title, old.tags);
			INSERT INTO spine_fts(rowid, content_original, content_neutral, counterpart, title, tags)
			VALUES (new.rowid, new.content_original, new.content_neutral, new.counterpart, new.title, new.tags);
		END;

		CREATE TRIGGER IF NOT EXISTS spine_original_immutable
		BEFORE UPDATE OF content_original, sha256_fingerprint ON spine_items
		WHEN new.content_original IS NOT old.content_original
		  OR new.sha256_fingerprint IS NOT old.sha256_fingerprint
		BEGIN
			SELECT RAISE(ABORT, 'content_original is write-once');
		END;
	`
	_, err := s.execHook(s.db, triggers)
	return err
}
