package spine

import (
	"strings"
)

// ─── Timeline events ─────────────────────────────────────────────────────────

const timelineColumns = `id, date, title, description, lane, status, spine_refs, created_at`

const insertTimelineSQL = `INSERT INTO timeline_events (` + timelineColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func scanTimelineEvent(sc scanner) (TimelineEvent, error) {
	var ev TimelineEvent
	var refs string
	if err := sc.Scan(&ev.ID, &ev.Date, &ev.Title, &ev.Description, &ev.Lane, &ev.Status, &refs, &ev.CreatedAt); err != nil {
		return ev, err
	}
	ev.SpineRefs = decodeStrings(refs)
	return ev, nil
}

func timelineArgs(ev *TimelineEvent) []any {
	return []any{ev.ID, ev.Date, ev.Title, ev.Description, string(ev.Lane), string(ev.Status), encodeStrings(ev.SpineRefs), ev.CreatedAt}
}

// AddTimelineEvent inserts ev unless an event with the same id exists.
func (s *Store) AddTimelineEvent(ev *TimelineEvent) (Outcome, error) {
	ev.applyDefaults()
	if err := ev.validate(); err != nil {
		return 0, err
	}
	return s.insertIfAbsent(s.db, "add timeline event", insertTimelineSQL, timelineArgs(ev)...)
}

// GetTimelineEvent retrieves a timeline event by id.
func (s *Store) GetTimelineEvent(id string) (*TimelineEvent, error) {
	row := s.db.QueryRow(`SELECT `+timelineColumns+` FROM timeline_events WHERE id = ?`, id)
	ev, err := scanTimelineEvent(row)
	if err != nil {
		return nil, lookupErr("get timeline event", err)
	}
	return &ev, nil
}

// ListTimelineEvents returns timeline events in date order, optionally
// restricted to one lane.
func (s *Store) ListTimelineEvents(lane Lane) ([]TimelineEvent, error) {
	query := `SELECT ` + timelineColumns + ` FROM timeline_events`
	args := []any{}
	if lane != "" {
		query += ` WHERE lane = ?`
		args = append(args, string(lane))
	}
	query += ` ORDER BY date, id`

	rows, err := s.queryItHook(s.db, query, args...)
	if err != nil {
		return nil, storageErr("list timeline events", err)
	}
	defer func() { _ = rows.Close() }()

	results := []TimelineEvent{}
	for rows.Next() {
		ev, err := scanTimelineEvent(rows)
		if err != nil {
			return nil, storageErr("list timeline events", err)
		}
		results = append(results, ev)
	}
	return results, storageErr("list timeline events", rows.Err())
}

// SetTimelineStatus changes the status of a timeline event.
func (s *Store) SetTimelineStatus(id string, status EventStatus) (*TimelineEvent, error) {
	if !validStatuses[status] {
		return nil, invalidf("timeline event %s: unknown status %q", id, status)
	}
	res, err := s.execHook(s.db, `UPDATE timeline_events SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return nil, storageErr("set timeline status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTimelineEvent(id)
}

// PromoteParams holds the input for promoting spine items to the timeline.
type PromoteParams struct {
	SpineIDs    []string    `json:"spineIds"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Lane        Lane        `json:"lane,omitempty"`
	Status      EventStatus `json:"status,omitempty"`
}

// Promote creates a timeline event from one or more spine items. The event
// date is the earliest timestamp among the selected items. Every id must
// exist; an unknown id fails with ErrNotFound before anything is written.
func (s *Store) Promote(p PromoteParams) (*TimelineEvent, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, invalidf("promote: title is required")
	}
	if len(p.SpineIDs) == 0 {
		return nil, invalidf("promote: at least one spine item is required")
	}

	items := make([]SpineItem, 0, len(p.SpineIDs))
	for _, id := range p.SpineIDs {
		it, err := s.GetSpineItem(id)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}

	ev := NewTimelineEvent(p.Title, items)
	ev.Description = strings.TrimSpace(p.Description)
	if p.Lane != "" {
		ev.Lane = p.Lane
	}
	if p.Status != "" {
		ev.Status = p.Status
	}

	if _, err := s.AddTimelineEvent(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
