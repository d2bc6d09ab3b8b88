package spine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// SnapshotVersion is written into every export.
const SnapshotVersion = "1.0"

// ErrInvalidSnapshot is returned when a backup lacks its version or
// export timestamp.
var ErrInvalidSnapshot = errors.New("spine: invalid export format - missing version or timestamp")

// Snapshot is the full serializable dump of the case database.
type Snapshot struct {
	Version     string          `json:"version"`
	Sources     []SourceFile    `json:"sources"`
	Spine       []SpineItem     `json:"spine"`
	Timeline    []TimelineEvent `json:"timeline"`
	StickyNotes []StickyNote    `json:"stickyNotes"`
	ExportedAt  string          `json:"exportedAt"`
}

// ExportOptions controls what Export includes.
type ExportOptions struct {
	IncludePrivate bool
}

// Export dumps the case database. Private sticky notes are left out unless
// opts.IncludePrivate is set.
func (s *Store) Export(opts ExportOptions) (*Snapshot, error) {
	snap := &Snapshot{Version: SnapshotVersion, ExportedAt: Now()}

	var err error
	if snap.Sources, err = s.ListSources(); err != nil {
		return nil, err
	}
	if snap.Spine, err = s.ListSpineItems(SpineFilter{}); err != nil {
		return nil, err
	}
	if snap.Timeline, err = s.ListTimelineEvents(""); err != nil {
		return nil, err
	}
	if snap.StickyNotes, err = s.ListStickyNotes(NoteFilter{IncludePrivate: opts.IncludePrivate}); err != nil {
		return nil, err
	}
	return snap, nil
}

// WriteJSON writes the snapshot as indented JSON.
func (snap *Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// DecodeSnapshot parses and validates a JSON backup.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("spine: parse export: %w", err)
	}
	if snap.Version == "" || snap.ExportedAt == "" {
		return nil, ErrInvalidSnapshot
	}
	return &snap, nil
}

// RestoreMode selects how Restore treats existing data.
type RestoreMode string

const (
	// RestoreMerge keeps existing records and skips incoming ones whose
	// identity (or fingerprint) is already present.
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace clears all four tables first.
	RestoreReplace RestoreMode = "replace"
)

// ParseRestoreMode defaults to RestoreMerge for an empty string.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch RestoreMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RestoreMerge:
		return RestoreMerge, nil
	case RestoreReplace:
		return RestoreReplace, nil
	}
	return "", fmt.Errorf("invalid restore mode %q: must be merge or replace", s)
}

// TableCounts reports what happened to one table during a restore.
type TableCounts struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// RestoreResult holds per-table counts and per-record problems.
type RestoreResult struct {
	Mode        RestoreMode `json:"mode"`
	Sources     TableCounts `json:"sources"`
	Spine       TableCounts `json:"spine"`
	Timeline    TableCounts `json:"timeline"`
	StickyNotes TableCounts `json:"stickyNotes"`
	Errors      []string    `json:"errors"`
}

// Restore loads a snapshot. Invalid records are skipped and reported in
// Errors; a storage failure aborts the restore. In replace mode the clear
// and the bulk put share one transaction, so a failure leaves the previous
// data in place.
func (s *Store) Restore(snap *Snapshot, mode RestoreMode) (*RestoreResult, error) {
	if snap == nil || snap.Version == "" || snap.ExportedAt == "" {
		return nil, ErrInvalidSnapshot
	}
	if mode == RestoreReplace {
		return s.replaceAll(snap)
	}

	result := &RestoreResult{Mode: RestoreMerge, Errors: []string{}}

	for i := range snap.Sources {
		sf := snap.Sources[i]
		out, err := s.AddSource(&sf)
		if err := tally(&result.Sources, result, out, err); err != nil {
			return nil, err
		}
	}
	for i := range snap.Spine {
		it := snap.Spine[i]
		out, err := s.AddSpineItem(&it)
		if err := tally(&result.Spine, result, out, err); err != nil {
			return nil, err
		}
	}
	for i := range snap.Timeline {
		ev := snap.Timeline[i]
		out, err := s.AddTimelineEvent(&ev)
		if err := tally(&result.Timeline, result, out, err); err != nil {
			return nil, err
		}
	}
	for i := range snap.StickyNotes {
		n := snap.StickyNotes[i]
		out, err := s.AddStickyNote(&n)
		if err := tally(&result.StickyNotes, result, out, err); err != nil {
			return nil, err
		}
	}

	s.log.Info("restore complete",
		zap.String("mode", string(RestoreMerge)),
		zap.Int("spine_imported", result.Spine.Imported),
		zap.Int("spine_skipped", result.Spine.Skipped),
	)
	return result, nil
}

// tally folds one insert outcome into the counts. Validation failures are
// recorded and skipped; anything else is returned.
func tally(tc *TableCounts, result *RestoreResult, out Outcome, err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		tc.Skipped++
		result.Errors = append(result.Errors, err.Error())
	case err != nil:
		return err
	case out == Duplicate:
		tc.Skipped++
	default:
		tc.Imported++
	}
	return nil
}

// PutAll bulk-writes a snapshot, overwriting records that share an id.
// The original content and fingerprint of an existing spine item are never
// replaced. Incoming records whose fingerprint belongs to a different id
// are skipped.
func (s *Store) PutAll(snap *Snapshot) (*RestoreResult, error) {
	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("put all: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := s.putAll(tx, snap)
	if err != nil {
		return nil, err
	}
	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("put all: commit", err)
	}
	return result, nil
}

func (s *Store) replaceAll(snap *Snapshot) (*RestoreResult, error) {
	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("replace: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.clear(tx); err != nil {
		return nil, err
	}
	result, err := s.putAll(tx, snap)
	if err != nil {
		return nil, err
	}
	result.Mode = RestoreReplace

	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("replace: commit", err)
	}

	s.log.Info("restore complete",
		zap.String("mode", string(RestoreReplace)),
		zap.Int("spine_imported", result.Spine.Imported),
	)
	return result, nil
}

const (
	upsertSourceSQL = insertSourceSQL + `
		ON CONFLICT(id) DO UPDATE SET
			file_name    = excluded.file_name,
			imported_at  = excluded.imported_at,
			file_type    = excluded.file_type,
			record_count = excluded.record_count
		ON CONFLICT DO NOTHING`

	upsertSpineSQL = insertSpineSQL + `
		ON CONFLICT(id) DO UPDATE SET
			source_id       = excluded.source_id,
			timestamp       = excluded.timestamp,
			counterpart     = excluded.counterpart,
			platform        = excluded.platform,
			category        = excluded.category,
			content_neutral = excluded.content_neutral,
			created_at      = excluded.created_at,
			file_name       = excluded.file_name,
			last_modified   = excluded.last_modified,
			type            = excluded.type,
			verified        = excluded.verified,
			confidence      = excluded.confidence,
			lane            = excluded.lane,
			tags            = excluded.tags,
			exhibit_code    = excluded.exhibit_code,
			reliability     = excluded.reliability,
			source          = excluded.source,
			title           = excluded.title,
			notes           = excluded.notes
		ON CONFLICT DO NOTHING`

	upsertTimelineSQL = insertTimelineSQL + `
		ON CONFLICT(id) DO UPDATE SET
			date        = excluded.date,
			title       = excluded.title,
			description = excluded.description,
			lane        = excluded.lane,
			status      = excluded.status,
			spine_refs  = excluded.spine_refs,
			created_at  = excluded.created_at`

	upsertNoteSQL = insertNoteSQL + `
		ON CONFLICT(id) DO UPDATE SET
			target_type = excluded.target_type,
			target_id   = excluded.target_id,
			text        = excluded.text,
			color       = excluded.color,
			is_private  = excluded.is_private,
			created_at  = excluded.created_at,
			x           = excluded.x,
			y           = excluded.y`
)

func (s *Store) putAll(db execer, snap *Snapshot) (*RestoreResult, error) {
	result := &RestoreResult{Mode: RestoreReplace, Errors: []string{}}

	put := func(tc *TableCounts, op, query string, validate func() error, args func() []any) error {
		if err := validate(); err != nil {
			tc.Skipped++
			result.Errors = append(result.Errors, err.Error())
			return nil
		}
		res, err := s.execHook(db, query, args()...)
		if err != nil {
			return storageErr(op, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			tc.Skipped++
			return nil
		}
		tc.Imported++
		return nil
	}

	for i := range snap.Sources {
		sf := &snap.Sources[i]
		if err := put(&result.Sources, "put source", upsertSourceSQL, sf.validate, func() []any { return sourceArgs(sf) }); err != nil {
			return nil, err
		}
	}
	for i := range snap.Spine {
		it := snap.Spine[i]
		it.applyDefaults()
		if err := put(&result.Spine, "put spine item", upsertSpineSQL, it.validate, func() []any { return spineArgs(&it) }); err != nil {
			return nil, err
		}
	}
	for i := range snap.Timeline {
		ev := snap.Timeline[i]
		ev.applyDefaults()
		if err := put(&result.Timeline, "put timeline event", upsertTimelineSQL, ev.validate, func() []any { return timelineArgs(&ev) }); err != nil {
			return nil, err
		}
	}
	for i := range snap.StickyNotes {
		n := snap.StickyNotes[i]
		n.applyDefaults()
		if err := put(&result.StickyNotes, "put sticky note", upsertNoteSQL, n.validate, func() []any { return noteArgs(&n) }); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Clear deletes every record from all four tables.
func (s *Store) Clear() error {
	tx, err := s.beginTxHook()
	if err != nil {
		return storageErr("clear: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.clear(tx); err != nil {
		return err
	}
	return storageErr("clear: commit", s.commitHook(tx))
}

func (s *Store) clear(db execer) error {
	for _, table := range []string{"sources", "spine_items", "timeline_events", "sticky_notes"} {
		if _, err := s.execHook(db, `DELETE FROM `+table); err != nil {
			return storageErr("clear "+table, err)
		}
	}
	return nil
}

// ─── Master text export ──────────────────────────────────────────────────────

// MasterText renders every spine item as a single plain-text document
// suitable for loading into an external notebook or reading tool. Sticky
// notes are never included.
func (s *Store) MasterText() (string, error) {
	sources, err := s.ListSources()
	if err != nil {
		return "", err
	}
	items, err := s.ListSpineItems(SpineFilter{})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	RenderMasterText(&b, Now(), len(sources), items)
	return b.String(), nil
}

// RenderMasterText writes the master text layout for items to w.
func RenderMasterText(w io.Writer, genDate string, sourceCount int, items []SpineItem) {
	fmt.Fprintf(w, "--- CASESPINE MASTER CASE SPINE ---\n")
	fmt.Fprintf(w, "GEN_DATE: %s\n", genDate)
	fmt.Fprintf(w, "SOURCE_FILES: %d\n", sourceCount)
	fmt.Fprintf(w, "SPINE_ITEMS: %d\n", len(items))
	fmt.Fprintf(w, "----------------------------------\n\n")

	for i, it := range items {
		fmt.Fprintf(w, "[SPINE ITEM #%d]\n", i+1)
		fmt.Fprintf(w, "ID: %s\n", it.ID)
		fmt.Fprintf(w, "TIMESTAMP: %s\n", it.Timestamp)
		fmt.Fprintf(w, "HASH: %s\n", it.Fingerprint)
		if it.Counterpart != "" {
			fmt.Fprintf(w, "COUNTERPART: %s\n", it.Counterpart)
		}
		if it.Platform != "" {
			fmt.Fprintf(w, "PLATFORM: %s\n", it.Platform)
		}
		if it.Category != "" {
			fmt.Fprintf(w, "CATEGORY: %s\n", it.Category)
		}
		fmt.Fprintf(w, "---\n%s\n", it.ContentOriginal)
		if it.ContentNeutral != nil {
			fmt.Fprintf(w, "\n[NEUTRAL SUMMARY]\n%s\n", *it.ContentNeutral)
		}
		fmt.Fprintln(w)
	}
}
