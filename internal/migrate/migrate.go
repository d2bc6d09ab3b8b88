// Package migrate upgrades data left behind by the earlier browser builds.
//
// Two legacy layouts are read: the CaseCraft flat snapshot (evidence, sticky
// notes and narrative events under one key) and the TruthDock note array.
// Every legacy record is looked up by id first. Records already present are
// skipped and never overwritten, so running the migration again is a no-op.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HendryAvila/casespine/internal/fingerprint"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Source ids stamped on migrated spine items.
const (
	CaseCraftSourceID = "legacy-migration"
	TruthDockSourceID = "truthdock-migration"
)

// legacyConfidence is what CaseCraft evidence carried implicitly.
const legacyConfidence = 0.9

// Store is the subset of the record store the migration needs.
type Store interface {
	GetSpineItem(id string) (*spine.SpineItem, error)
	AddSpineItem(it *spine.SpineItem) (spine.Outcome, error)
	GetStickyNote(id string) (*spine.StickyNote, error)
	AddStickyNote(n *spine.StickyNote) (spine.Outcome, error)
	GetTimelineEvent(id string) (*spine.TimelineEvent, error)
	AddTimelineEvent(ev *spine.TimelineEvent) (spine.Outcome, error)
}

// Result counts what a run did.
type Result struct {
	Migrated int      `json:"migrated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Run migrates every legacy record src holds into store. Malformed records
// are reported in Result.Errors; a storage failure stops the run.
func Run(ctx context.Context, store Store, src Source, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &migration{ctx: ctx, store: store, log: logger, res: &Result{Errors: []string{}}}

	if err := m.caseCraft(src); err != nil {
		return m.res, err
	}
	if err := m.truthDock(src); err != nil {
		return m.res, err
	}

	logger.Info("legacy migration complete",
		zap.Int("migrated", m.res.Migrated),
		zap.Int("skipped", m.res.Skipped),
		zap.Int("errors", len(m.res.Errors)),
	)
	return m.res, nil
}

type migration struct {
	ctx   context.Context
	store Store
	log   *zap.Logger
	res   *Result
}

func (m *migration) caseCraft(src Source) error {
	raw, ok, err := src.Get(KeyCaseCraft)
	if err != nil || !ok {
		return err
	}
	var state caseCraftState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		m.fail(KeyCaseCraft, fmt.Errorf("parse: %w", err))
		return nil
	}

	for _, e := range state.Evidence {
		it := evidenceToSpine(e)
		m.checkHash(e.ID, e.Hash, it.Fingerprint)
		if err := m.put(e.ID, func(id string) error { _, err := m.store.GetSpineItem(id); return err },
			func() (spine.Outcome, error) { return m.store.AddSpineItem(&it) }); err != nil {
			return err
		}
	}
	for _, n := range state.Notes {
		note := noteToSticky(n)
		if err := m.put(n.ID, func(id string) error { _, err := m.store.GetStickyNote(id); return err },
			func() (spine.Outcome, error) { return m.store.AddStickyNote(&note) }); err != nil {
			return err
		}
	}
	for _, ev := range state.Narrative {
		te := narrativeToTimeline(ev)
		if err := m.put(ev.ID, func(id string) error { _, err := m.store.GetTimelineEvent(id); return err },
			func() (spine.Outcome, error) { return m.store.AddTimelineEvent(&te) }); err != nil {
			return err
		}
	}
	return nil
}

func (m *migration) truthDock(src Source) error {
	raw, ok, err := src.Get(KeyTruthDock)
	if err != nil || !ok {
		return err
	}
	var notes []truthDockNote
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		m.fail(KeyTruthDock, fmt.Errorf("parse: %w", err))
		return nil
	}

	for _, n := range notes {
		it := truthDockToSpine(n)
		m.checkHash(n.ID, n.Hash, it.Fingerprint)
		if err := m.put(n.ID, func(id string) error { _, err := m.store.GetSpineItem(id); return err },
			func() (spine.Outcome, error) { return m.store.AddSpineItem(&it) }); err != nil {
			return err
		}
	}
	return nil
}

// checkHash logs a legacy hash that disagrees with the recomputed one.
func (m *migration) checkHash(id, legacy, computed string) {
	if legacy == "" || legacy == computed {
		return
	}
	m.log.Warn("legacy hash does not match content, recomputed",
		zap.String("record", id),
		zap.Bool("wellFormed", fingerprint.Valid(legacy)))
}

// put inserts one record unless its id is already stored.
func (m *migration) put(id string, lookup func(id string) error, add func() (spine.Outcome, error)) error {
	if err := m.ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		m.fail("record", errors.New("missing id"))
		return nil
	}

	err := lookup(id)
	switch {
	case err == nil:
		m.res.Skipped++
		return nil
	case !errors.Is(err, spine.ErrNotFound):
		return err
	}

	out, err := add()
	switch {
	case errors.Is(err, spine.ErrInvalid):
		m.fail(id, err)
	case err != nil:
		return err
	case out == spine.Duplicate:
		// Same content already stored under another id.
		m.res.Skipped++
	default:
		m.res.Migrated++
	}
	return nil
}

func (m *migration) fail(what string, err error) {
	m.log.Warn("legacy record not migrated", zap.String("record", what), zap.Error(err))
	m.res.Errors = append(m.res.Errors, fmt.Sprintf("%s: %v", what, err))
}

// ─── Remapping ───────────────────────────────────────────────────────────────

func evidenceToSpine(e legacyEvidence) spine.SpineItem {
	it := spine.SpineItem{
		ID:              e.ID,
		SourceID:        CaseCraftSourceID,
		Timestamp:       legacyTime(e.Timestamp),
		Counterpart:     e.Sender,
		ContentOriginal: e.Content,
		ContentNeutral:  e.ContentNeutral,
		Fingerprint:     fingerprint.Of(e.Content),
		FileName:        e.ExhibitCode,
		Type:            legacyType(e.Type),
		Verified:        e.Verified,
		Confidence:      legacyConfidence,
		Lane:            legacyLane(e.Lane),
		Tags:            e.Tags,
		ExhibitCode:     e.ExhibitCode,
		Reliability:     e.Reliability,
		Source:          e.Source,
		Notes:           e.Notes,
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}
	return it
}

func noteToSticky(n legacyNote) spine.StickyNote {
	target := spine.TargetEvidence
	if n.TargetID != "" {
		target = spine.TargetSpine
	}
	note := spine.NewStickyNote(target, n.TargetID, n.Text)
	note.ID = n.ID
	note.X, note.Y = n.X, n.Y
	return note
}

func narrativeToTimeline(ev legacyNarrative) spine.TimelineEvent {
	return spine.TimelineEvent{
		ID:          ev.ID,
		Date:        legacyTime(ev.Timestamp),
		Title:       ev.Title,
		Description: ev.Description,
		Lane:        legacyLane(ev.Lane),
		Status:      spine.StatusAsserted,
		SpineRefs:   ev.LinkedEvidenceIDs,
	}
}

func truthDockToSpine(n truthDockNote) spine.SpineItem {
	original := n.RawContent
	if original == "" {
		original = n.Content
	}
	it := spine.SpineItem{
		ID:              n.ID,
		SourceID:        TruthDockSourceID,
		Timestamp:       legacyTime(n.Timestamp),
		ContentOriginal: original,
		Fingerprint:     fingerprint.Of(original),
		FileName:        n.FileName,
		LastModified:    n.LastModified,
		Type:            legacyType(n.Type),
		Verified:        n.IsVerified,
		// TruthDock lanes (Plaintiff, Defendant, ...) have no counterpart here.
		Lane: legacyLane(n.Lane),
		Tags: []string{},
	}
	if n.Content != "" && n.Content != original {
		neutral := n.Content
		it.ContentNeutral = &neutral
	}
	if n.Confidence != nil {
		it.Confidence = *n.Confidence
	}
	return it
}

// legacyTime accepts ISO strings and epoch milliseconds. Unreadable values
// become the migration time.
func legacyTime(v any) string {
	switch t := v.(type) {
	case nil:
		return spine.Now()
	case float64:
		return spine.FormatTime(time.UnixMilli(int64(t)))
	case string:
		if parsed, err := cast.ToTimeInDefaultLocationE(t, time.UTC); err == nil {
			return spine.FormatTime(parsed)
		}
	}
	return spine.Now()
}

func legacyType(v string) spine.EvidenceType {
	if t, ok := spine.ParseEvidenceType(v); ok {
		return t
	}
	return spine.TypeDocument
}

func legacyLane(v string) spine.Lane {
	if l, ok := spine.ParseLane(v); ok {
		return l
	}
	return ""
}
