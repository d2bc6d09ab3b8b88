package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/casespine/internal/fingerprint"
	"github.com/HendryAvila/casespine/internal/migrate"
	"github.com/HendryAvila/casespine/internal/spine"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *spine.Store {
	t.Helper()
	s, err := spine.New(spine.Config{DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const caseCraftJSON = `{
  "evidence": [
    {"id": "ev-1", "type": "MESSAGE", "sender": "Jordan", "content": "You can't see them this week",
     "contentNeutral": "Parent stated the visit would not happen.", "timestamp": "2024-01-10T08:30:00.000Z",
     "hash": "not-a-real-hash", "verified": true, "exhibitCode": "EX-4", "lane": "CUSTODY",
     "tags": ["access"], "reliability": "High", "source": "Text"},
    {"id": "ev-2", "type": "PHOTO", "sender": "Me", "content": "Photo of the note on the door",
     "timestamp": "2024-01-11T09:00:00.000Z", "lane": "SAFETY", "tags": null}
  ],
  "notes": [
    {"id": "n-1", "text": "Ask about this", "x": 10, "y": 20, "targetId": "ev-1"},
    {"id": "n-2", "text": "Loose note", "x": 0, "y": 0}
  ],
  "narrative": [
    {"id": "nar-1", "title": "Visit refused", "description": "January visit did not happen",
     "lane": "CUSTODY", "timestamp": "2024-01-10T08:30:00.000Z", "linkedEvidenceIds": ["ev-1"]}
  ]
}`

const truthDockJSON = `[
  {"id": "td-1", "content": "Neutral rewrite", "rawContent": "Raw angry text", "timestamp": 1704067200000,
   "lastModified": 1704067200000, "type": "file", "fileName": "note.txt", "isVerified": true,
   "lane": "Plaintiff", "confidence": 0.7},
  {"id": "td-2", "content": "Same as raw", "rawContent": "Same as raw", "timestamp": 1704153600000,
   "lastModified": 1704153600000, "type": "spine", "confidence": 0.9}
]`

func legacySource() migrate.MapSource {
	return migrate.MapSource{
		migrate.KeyCaseCraft: caseCraftJSON,
		migrate.KeyTruthDock: truthDockJSON,
	}
}

func TestRun_MigratesAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := migrate.Run(ctx, s, legacySource(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Migrated != 7 || first.Skipped != 0 || len(first.Errors) != 0 {
		t.Fatalf("first Run = %+v, want 7 migrated", first)
	}

	second, err := migrate.Run(ctx, s, legacySource(), nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Migrated != 0 || second.Skipped != 7 {
		t.Errorf("second Run = %+v, want migrated=0 skipped=7", second)
	}

	st, _ := s.Stats()
	if st.SpineItems != 4 || st.StickyNotes != 2 || st.TimelineEvents != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestRun_CaseCraftMapping(t *testing.T) {
	s := newTestStore(t)
	if _, err := migrate.Run(context.Background(), s, legacySource(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ev1, err := s.GetSpineItem("ev-1")
	if err != nil {
		t.Fatalf("GetSpineItem(ev-1): %v", err)
	}
	if ev1.SourceID != migrate.CaseCraftSourceID || ev1.Counterpart != "Jordan" || ev1.Type != spine.TypeMessage {
		t.Errorf("ev-1 = %+v", ev1)
	}
	if ev1.ContentNeutral == nil || *ev1.ContentNeutral != "Parent stated the visit would not happen." {
		t.Errorf("ContentNeutral = %v", ev1.ContentNeutral)
	}
	if ev1.Fingerprint != fingerprint.Of("You can't see them this week") {
		t.Errorf("malformed legacy hash should be recomputed, got %q", ev1.Fingerprint)
	}
	if ev1.FileName != "EX-4" || ev1.ExhibitCode != "EX-4" || !ev1.Verified || ev1.Confidence != 0.9 {
		t.Errorf("ev-1 metadata = %+v", ev1)
	}
	if ev1.Timestamp != "2024-01-10T08:30:00.000Z" || ev1.Lane != spine.LaneCustody {
		t.Errorf("ev-1 timestamp/lane = %q/%q", ev1.Timestamp, ev1.Lane)
	}

	ev2, _ := s.GetSpineItem("ev-2")
	if ev2.Type != spine.TypeDocument || len(ev2.Tags) != 0 {
		t.Errorf("ev-2 = type %q tags %v", ev2.Type, ev2.Tags)
	}

	n1, err := s.GetStickyNote("n-1")
	if err != nil {
		t.Fatalf("GetStickyNote: %v", err)
	}
	if n1.TargetType != spine.TargetSpine || n1.TargetID != "ev-1" || !n1.IsPrivate || n1.Color != spine.ColorYellow {
		t.Errorf("n-1 = %+v", n1)
	}
	if n1.X == nil || *n1.X != 10 {
		t.Errorf("n-1 position = %v", n1.X)
	}
	n2, _ := s.GetStickyNote("n-2")
	if n2.TargetType != spine.TargetEvidence {
		t.Errorf("n-2 TargetType = %q", n2.TargetType)
	}

	ev, err := s.GetTimelineEvent("nar-1")
	if err != nil {
		t.Fatalf("GetTimelineEvent: %v", err)
	}
	if ev.Status != spine.StatusAsserted || ev.Date != "2024-01-10T08:30:00.000Z" || len(ev.SpineRefs) != 1 {
		t.Errorf("nar-1 = %+v", ev)
	}
}

func TestRun_TruthDockMapping(t *testing.T) {
	s := newTestStore(t)
	if _, err := migrate.Run(context.Background(), s, legacySource(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	td1, err := s.GetSpineItem("td-1")
	if err != nil {
		t.Fatalf("GetSpineItem(td-1): %v", err)
	}
	if td1.ContentOriginal != "Raw angry text" {
		t.Errorf("ContentOriginal = %q", td1.ContentOriginal)
	}
	if td1.ContentNeutral == nil || *td1.ContentNeutral != "Neutral rewrite" {
		t.Errorf("ContentNeutral = %v", td1.ContentNeutral)
	}
	if td1.Timestamp != "2024-01-01T00:00:00.000Z" {
		t.Errorf("Timestamp = %q", td1.Timestamp)
	}
	if td1.Lane != "" {
		t.Errorf("TruthDock lane should be dropped, got %q", td1.Lane)
	}
	if td1.Type != spine.TypeFile || !td1.Verified || td1.Confidence != 0.7 || td1.SourceID != migrate.TruthDockSourceID {
		t.Errorf("td-1 = %+v", td1)
	}
	if td1.LastModified == nil || *td1.LastModified != 1704067200000 {
		t.Errorf("LastModified = %v", td1.LastModified)
	}

	td2, _ := s.GetSpineItem("td-2")
	if td2.ContentNeutral != nil {
		t.Errorf("identical content should not produce a neutral version, got %q", *td2.ContentNeutral)
	}
	if td2.Type != spine.TypeDocument {
		t.Errorf("td-2 Type = %q", td2.Type)
	}
}

func TestRun_FingerprintCollisionCountsAsSkipped(t *testing.T) {
	s := newTestStore(t)
	existing := spine.NewSpineItem("csv", "Same as raw")
	if _, err := s.AddSpineItem(&existing); err != nil {
		t.Fatal(err)
	}

	res, err := migrate.Run(context.Background(), s, migrate.MapSource{migrate.KeyTruthDock: truthDockJSON}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 1 || res.Skipped != 1 {
		t.Errorf("Run = %+v, want 1 migrated 1 skipped", res)
	}
	if _, err := s.GetSpineItem("td-2"); err == nil {
		t.Error("colliding record should not be stored")
	}
}

func TestRun_WellFormedButWrongHashIsRecomputed(t *testing.T) {
	s := newTestStore(t)
	wrong := strings.Repeat("a", 64)
	src := migrate.MapSource{
		migrate.KeyTruthDock: `[{"id": "td-7", "content": "Pickup at 6pm", "hash": "` + wrong + `", "timestamp": 0}]`,
	}
	if _, err := migrate.Run(context.Background(), s, src, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := s.GetSpineItem("td-7")
	if err != nil {
		t.Fatalf("GetSpineItem: %v", err)
	}
	if got.Fingerprint != fingerprint.Of("Pickup at 6pm") {
		t.Errorf("Fingerprint = %q, want hash of content", got.Fingerprint)
	}

	// The same text arriving later must be recognised as already stored.
	again := spine.NewSpineItem("csv", "Pickup at 6pm")
	out, err := s.AddSpineItem(&again)
	if err != nil {
		t.Fatal(err)
	}
	if out != spine.Duplicate {
		t.Errorf("AddSpineItem = %v, want Duplicate", out)
	}
}

func TestRun_NoLegacyData(t *testing.T) {
	s := newTestStore(t)
	res, err := migrate.Run(context.Background(), s, &migrate.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 0 || res.Skipped != 0 {
		t.Errorf("Run = %+v", res)
	}
}

func TestRun_MalformedLegacyJSON(t *testing.T) {
	s := newTestStore(t)
	res, err := migrate.Run(context.Background(), s, migrate.MapSource{migrate.KeyCaseCraft: "{not json"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Errors) != 1 || res.Migrated != 0 {
		t.Errorf("Run = %+v", res)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localStorage.json")
	dump := `{"truthdock_spine": "[{\"id\":\"td-9\",\"content\":\"from file\",\"timestamp\":0}]",
	          "CASE_CRAFT_STATE_V3": {"evidence": [{"id": "ev-9", "content": "inline object"}]}}`
	if err := os.WriteFile(path, []byte(dump), 0o600); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t)
	res, err := migrate.Run(context.Background(), s, &migrate.FileSource{Path: path}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 2 {
		t.Errorf("Run = %+v, want 2 migrated", res)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := migrate.Run(ctx, s, legacySource(), nil); err == nil {
		t.Error("expected context error")
	}
}
