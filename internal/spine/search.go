package spine

import (
	"strings"
)

// SearchSpine runs a full-text query over original content, neutral
// content, counterpart, title and tags, best match first. An empty query
// returns the most recent items instead.
func (s *Store) SearchSpine(query string, limit int) ([]SpineItem, error) {
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.querySpine("search recent",
			`SELECT `+spineColumns+` FROM spine_items ORDER BY timestamp DESC, id LIMIT ?`, limit)
	}

	sqlStr := `
		SELECT ` + prefixColumns(spineColumns, "si.") + `
		FROM spine_fts
		JOIN spine_items si ON si.rowid = spine_fts.rowid
		WHERE spine_fts MATCH ?
		ORDER BY spine_fts.rank
		LIMIT ?`
	return s.querySpine("search", sqlStr, ftsQuery, limit)
}

// Stats holds aggregate counts across the case tables.
type Stats struct {
	Sources        int            `json:"sources"`
	SpineItems     int            `json:"spineItems"`
	TimelineEvents int            `json:"timelineEvents"`
	StickyNotes    int            `json:"stickyNotes"`
	Unverified     int            `json:"unverified"`
	Neutralized    int            `json:"neutralized"`
	ByLane         map[string]int `json:"byLane"`
	ByCategory     map[string]int `json:"byCategory"`
}

// Stats returns aggregate counts.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByLane: map[string]int{}, ByCategory: map[string]int{}}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM sources", &stats.Sources},
		{"SELECT COUNT(*) FROM spine_items", &stats.SpineItems},
		{"SELECT COUNT(*) FROM timeline_events", &stats.TimelineEvents},
		{"SELECT COUNT(*) FROM sticky_notes", &stats.StickyNotes},
		{"SELECT COUNT(*) FROM spine_items WHERE verified = 0", &stats.Unverified},
		{"SELECT COUNT(*) FROM spine_items WHERE content_neutral IS NOT NULL", &stats.Neutralized},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, storageErr("stats", err)
		}
	}

	if err := s.groupCounts(`SELECT lane, COUNT(*) FROM spine_items WHERE lane <> '' GROUP BY lane`, stats.ByLane); err != nil {
		return nil, err
	}
	if err := s.groupCounts(`SELECT category, COUNT(*) FROM spine_items WHERE category <> '' GROUP BY category`, stats.ByCategory); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) groupCounts(query string, into map[string]int) error {
	rows, err := s.queryItHook(s.db, query)
	if err != nil {
		return storageErr("stats", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return storageErr("stats", err)
		}
		into[key] = n
	}
	return storageErr("stats", rows.Err())
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "custody exchange" → `"custody" "exchange"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " ")
}

func prefixColumns(cols, prefix string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
