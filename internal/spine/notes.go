package spine

// ─── Sticky notes ────────────────────────────────────────────────────────────

const noteColumns = `id, target_type, target_id, text, color, is_private, created_at, x, y`

const insertNoteSQL = `INSERT INTO sticky_notes (` + noteColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func scanStickyNote(sc scanner) (StickyNote, error) {
	var n StickyNote
	err := sc.Scan(&n.ID, &n.TargetType, &n.TargetID, &n.Text, &n.Color, &n.IsPrivate, &n.CreatedAt, &n.X, &n.Y)
	return n, err
}

func noteArgs(n *StickyNote) []any {
	return []any{n.ID, string(n.TargetType), n.TargetID, n.Text, string(n.Color), boolInt(n.IsPrivate), n.CreatedAt, n.X, n.Y}
}

// AddStickyNote inserts n unless a note with the same id exists.
func (s *Store) AddStickyNote(n *StickyNote) (Outcome, error) {
	n.applyDefaults()
	if err := n.validate(); err != nil {
		return 0, err
	}
	return s.insertIfAbsent(s.db, "add sticky note", insertNoteSQL, noteArgs(n)...)
}

// SaveStickyNote creates or overwrites a note. Notes are user-owned side
// records, so unlike evidence they may be edited freely.
func (s *Store) SaveStickyNote(n *StickyNote) error {
	n.applyDefaults()
	if err := n.validate(); err != nil {
		return err
	}
	_, err := s.execHook(s.db, insertNoteSQL+`
		ON CONFLICT(id) DO UPDATE SET
			target_type = excluded.target_type,
			target_id   = excluded.target_id,
			text        = excluded.text,
			color       = excluded.color,
			is_private  = excluded.is_private,
			x           = excluded.x,
			y           = excluded.y`,
		noteArgs(n)...,
	)
	return storageErr("save sticky note", err)
}

// GetStickyNote retrieves a note by id.
func (s *Store) GetStickyNote(id string) (*StickyNote, error) {
	row := s.db.QueryRow(`SELECT `+noteColumns+` FROM sticky_notes WHERE id = ?`, id)
	n, err := scanStickyNote(row)
	if err != nil {
		return nil, lookupErr("get sticky note", err)
	}
	return &n, nil
}

// DeleteStickyNote permanently removes a note.
func (s *Store) DeleteStickyNote(id string) error {
	res, err := s.execHook(s.db, `DELETE FROM sticky_notes WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete sticky note", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NoteFilter narrows ListStickyNotes.
type NoteFilter struct {
	TargetType     TargetType
	TargetID       string
	IncludePrivate bool
}

// ListStickyNotes returns notes oldest first. Private notes are only
// returned when f.IncludePrivate is set.
func (s *Store) ListStickyNotes(f NoteFilter) ([]StickyNote, error) {
	query := `SELECT ` + noteColumns + ` FROM sticky_notes WHERE 1=1`
	args := []any{}
	if f.TargetType != "" {
		query += ` AND target_type = ?`
		args = append(args, string(f.TargetType))
	}
	if f.TargetID != "" {
		query += ` AND target_id = ?`
		args = append(args, f.TargetID)
	}
	if !f.IncludePrivate {
		query += ` AND is_private = 0`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.queryItHook(s.db, query, args...)
	if err != nil {
		return nil, storageErr("list sticky notes", err)
	}
	defer func() { _ = rows.Close() }()

	results := []StickyNote{}
	for rows.Next() {
		n, err := scanStickyNote(rows)
		if err != nil {
			return nil, storageErr("list sticky notes", err)
		}
		results = append(results, n)
	}
	return results, storageErr("list sticky notes", rows.Err())
}
