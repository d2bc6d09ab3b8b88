package spine

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
)

type scanner interface {
	Scan(dest ...any) error
}

// ─── Sources ─────────────────────────────────────────────────────────────────

const sourceColumns = `id, file_name, file_hash, imported_at, file_type, record_count`

const insertSourceSQL = `INSERT INTO sources (` + sourceColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

func scanSource(sc scanner) (SourceFile, error) {
	var sf SourceFile
	err := sc.Scan(&sf.ID, &sf.FileName, &sf.FileHash, &sf.ImportedAt, &sf.FileType, &sf.RecordCount)
	return sf, err
}

func sourceArgs(sf *SourceFile) []any {
	return []any{sf.ID, sf.FileName, sf.FileHash, sf.ImportedAt, string(sf.FileType), sf.RecordCount}
}

// AddSource inserts sf unless a source with the same id or file hash
// already exists, in which case the outcome is Duplicate.
func (s *Store) AddSource(sf *SourceFile) (Outcome, error) {
	if sf.ID == "" {
		sf.ID = NewID("source")
	}
	if sf.ImportedAt == "" {
		sf.ImportedAt = Now()
	}
	if err := sf.validate(); err != nil {
		return 0, err
	}
	return s.insertIfAbsent(s.db, "add source", insertSourceSQL, sourceArgs(sf)...)
}

// GetSource retrieves a source file by id.
func (s *Store) GetSource(id string) (*SourceFile, error) {
	row := s.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	sf, err := scanSource(row)
	if err != nil {
		return nil, lookupErr("get source", err)
	}
	return &sf, nil
}

// SourceByHash retrieves the source file whose whole-content fingerprint is hash.
func (s *Store) SourceByHash(hash string) (*SourceFile, error) {
	row := s.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE file_hash = ?`, hash)
	sf, err := scanSource(row)
	if err != nil {
		return nil, lookupErr("source by hash", err)
	}
	return &sf, nil
}

// ListSources returns every source file, oldest import first.
func (s *Store) ListSources() ([]SourceFile, error) {
	rows, err := s.queryItHook(s.db, `SELECT `+sourceColumns+` FROM sources ORDER BY imported_at, id`)
	if err != nil {
		return nil, storageErr("list sources", err)
	}
	defer func() { _ = rows.Close() }()

	results := []SourceFile{}
	for rows.Next() {
		sf, err := scanSource(rows)
		if err != nil {
			return nil, storageErr("list sources", err)
		}
		results = append(results, sf)
	}
	return results, storageErr("list sources", rows.Err())
}

// ─── Spine items ─────────────────────────────────────────────────────────────

const spineColumns = `id, source_id, timestamp, counterpart, platform, category, content_original,
	content_neutral, sha256_fingerprint, created_at, file_name, last_modified, type, verified,
	confidence, lane, tags, exhibit_code, reliability, source, title, notes`

const insertSpineSQL = `INSERT INTO spine_items (` + spineColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func scanSpineItem(sc scanner) (SpineItem, error) {
	var it SpineItem
	var tags string
	err := sc.Scan(
		&it.ID, &it.SourceID, &it.Timestamp, &it.Counterpart, &it.Platform, &it.Category, &it.ContentOriginal,
		&it.ContentNeutral, &it.Fingerprint, &it.CreatedAt, &it.FileName, &it.LastModified, &it.Type, &it.Verified,
		&it.Confidence, &it.Lane, &tags, &it.ExhibitCode, &it.Reliability, &it.Source, &it.Title, &it.Notes,
	)
	if err != nil {
		return it, err
	}
	it.Tags = decodeStrings(tags)
	return it, nil
}

func spineArgs(it *SpineItem) []any {
	return []any{
		it.ID, it.SourceID, it.Timestamp, it.Counterpart, string(it.Platform), string(it.Category), it.ContentOriginal,
		it.ContentNeutral, it.Fingerprint, it.CreatedAt, it.FileName, it.LastModified, string(it.Type), boolInt(it.Verified),
		it.Confidence, string(it.Lane), encodeStrings(it.Tags), it.ExhibitCode, it.Reliability, it.Source, it.Title, it.Notes,
	}
}

// AddSpineItem inserts it unless a spine item with the same id or content
// fingerprint already exists. Defaults are applied to it in place, so the
// caller sees the final id and fingerprint.
func (s *Store) AddSpineItem(it *SpineItem) (Outcome, error) {
	it.applyDefaults()
	if err := it.validate(); err != nil {
		return 0, err
	}
	return s.insertIfAbsent(s.db, "add spine item", insertSpineSQL, spineArgs(it)...)
}

// GetSpineItem retrieves a spine item by id.
func (s *Store) GetSpineItem(id string) (*SpineItem, error) {
	row := s.db.QueryRow(`SELECT `+spineColumns+` FROM spine_items WHERE id = ?`, id)
	it, err := scanSpineItem(row)
	if err != nil {
		return nil, lookupErr("get spine item", err)
	}
	return &it, nil
}

// SpineItemByFingerprint retrieves the spine item whose content fingerprint is fp.
func (s *Store) SpineItemByFingerprint(fp string) (*SpineItem, error) {
	row := s.db.QueryRow(`SELECT `+spineColumns+` FROM spine_items WHERE sha256_fingerprint = ?`, fp)
	it, err := scanSpineItem(row)
	if err != nil {
		return nil, lookupErr("spine item by fingerprint", err)
	}
	return &it, nil
}

// SpineFilter narrows ListSpineItems. Zero values mean "any".
type SpineFilter struct {
	SourceID string
	FileName string
	Lane     Lane
	Category Category
	Type     EvidenceType
	Verified *bool
	Limit    int
}

// ListSpineItems returns spine items in chronological order.
func (s *Store) ListSpineItems(f SpineFilter) ([]SpineItem, error) {
	query := `SELECT ` + spineColumns + ` FROM spine_items WHERE 1=1`
	args := []any{}

	if f.SourceID != "" {
		query += " AND source_id = ?"
		args = append(args, f.SourceID)
	}
	if f.FileName != "" {
		query += " AND file_name = ?"
		args = append(args, f.FileName)
	}
	if f.Lane != "" {
		query += " AND lane = ?"
		args = append(args, string(f.Lane))
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, string(f.Category))
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Verified != nil {
		query += " AND verified = ?"
		args = append(args, boolInt(*f.Verified))
	}

	query += " ORDER BY timestamp, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return s.querySpine("list spine items", query, args...)
}

// SetNeutral stores a neutral paraphrase for a spine item. An empty text
// clears it. The original content is untouched.
func (s *Store) SetNeutral(id, text string) (*SpineItem, error) {
	var v *string
	if t := strings.TrimSpace(text); t != "" {
		v = &t
	}
	return s.updateSpine("set neutral", id, `content_neutral = ?`, v)
}

// SetVerified marks a spine item verified or unverified.
func (s *Store) SetVerified(id string, verified bool) (*SpineItem, error) {
	return s.updateSpine("set verified", id, `verified = ?`, boolInt(verified))
}

// SetTags replaces a spine item's tags.
func (s *Store) SetTags(id string, tags []string) (*SpineItem, error) {
	return s.updateSpine("set tags", id, `tags = ?`, encodeStrings(cleanTags(tags)))
}

// Classify sets a spine item's category and lane. Empty values clear them.
func (s *Store) Classify(id string, category Category, lane Lane) (*SpineItem, error) {
	if category != "" && !validCategories[category] {
		return nil, invalidf("spine item %s: unknown category %q", id, category)
	}
	if lane != "" && !validLanes[lane] {
		return nil, invalidf("spine item %s: unknown lane %q", id, lane)
	}
	return s.updateSpine("classify", id, `category = ?, lane = ?`, string(category), string(lane))
}

func (s *Store) updateSpine(op, id, set string, args ...any) (*SpineItem, error) {
	args = append(args, id)
	res, err := s.execHook(s.db, `UPDATE spine_items SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetSpineItem(id)
}

func (s *Store) querySpine(op, query string, args ...any) ([]SpineItem, error) {
	rows, err := s.queryItHook(s.db, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	results := []SpineItem{}
	for rows.Next() {
		it, err := scanSpineItem(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		results = append(results, it)
	}
	return results, storageErr(op, rows.Err())
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// insertIfAbsent runs an INSERT that swallows uniqueness conflicts only and
// reports them as Duplicate.
func (s *Store) insertIfAbsent(db execer, op, insert string, args ...any) (Outcome, error) {
	res, err := s.execHook(db, insert+` ON CONFLICT DO NOTHING`, args...)
	if err != nil {
		return 0, storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr(op, err)
	}
	if n == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

func lookupErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return storageErr(op, err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeStrings(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out) // best-effort: a corrupt column reads as no tags
	if out == nil {
		out = []string{}
	}
	return out
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
