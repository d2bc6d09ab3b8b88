package ingest_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/casespine/internal/csvparse"
	"github.com/HendryAvila/casespine/internal/ingest"
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

func newImporter(t *testing.T, s ingest.Store) *ingest.Importer {
	t.Helper()
	return ingest.New(s, csvparse.BestEffort{}, zaptest.NewLogger(t), ingest.Options{})
}

const evidenceLog = `event_id,date,event_type,short_title,description,source,exhibit_refs,reliability,notes
M-001,2024-01-15,INCIDENT,Custody Conflict,"Refused exchange at the mall.",Parent Log,CL-01,High,Witness present`

func TestImportGenericCSV_EvidenceLog(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	res, err := im.ImportGenericCSV(context.Background(), evidenceLog, "log.csv")
	if err != nil {
		t.Fatalf("ImportGenericCSV: %v", err)
	}
	if res.Imported != 1 || res.Duplicates != 0 || res.Errors != 0 {
		t.Fatalf("counts = %d/%d/%d, want 1/0/0 (%v)", res.Imported, res.Duplicates, res.Errors, res.ErrorMessages)
	}
	if res.SourceFile == nil || res.SourceFile.RecordCount != 1 || res.SourceFile.FileType != spine.KindCSV {
		t.Errorf("SourceFile = %+v", res.SourceFile)
	}

	it, err := s.GetSpineItem("M-001")
	if err != nil {
		t.Fatalf("GetSpineItem: %v", err)
	}
	checks := []struct{ name, got, want string }{
		{"type", string(it.Type), string(spine.TypeIncident)},
		{"timestamp", it.Timestamp, "2024-01-15T00:00:00.000Z"},
		{"exhibitCode", it.ExhibitCode, "CL-01"},
		{"reliability", it.Reliability, "High"},
		{"title", it.Title, "Custody Conflict"},
		{"source", it.Source, "Parent Log"},
		{"notes", it.Notes, "Witness present"},
		{"content", it.ContentOriginal, "Refused exchange at the mall."},
		{"category", string(it.Category), string(spine.CategoryAccessDenied)},
		{"fileName", it.FileName, "log.csv"},
		{"sourceId", it.SourceID, res.SourceFile.ID},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestImportGenericCSV_PositionalFallback(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	csv := "id,when,what\n1,2024-02-01,Doctor appointment was cancelled\n"
	res, err := im.ImportGenericCSV(context.Background(), csv, "nodesc.csv")
	if err != nil {
		t.Fatalf("ImportGenericCSV: %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("Imported = %d, want 1 (%v)", res.Imported, res.ErrorMessages)
	}

	items, _ := s.ListSpineItems(spine.SpineFilter{})
	if len(items) != 1 || items[0].ContentOriginal != "Doctor appointment was cancelled" {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Category != spine.CategoryMedicalConcern {
		t.Errorf("Category = %q, want medical-concern", items[0].Category)
	}
	if items[0].Type != spine.TypeDocument {
		t.Errorf("Type = %q, want document", items[0].Type)
	}
}

func TestImportGenericCSV_HeaderOnly(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	_, err := im.ImportGenericCSV(context.Background(), "event_id,date,description\n\n", "empty.csv")
	if !ingest.IsValidationError(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	st, _ := s.Stats()
	if st.Sources != 0 || st.SpineItems != 0 {
		t.Errorf("store touched: %+v", st)
	}
}

func TestImportGenericCSV_SecondImportAllDuplicates(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)
	csv := "description,date\nfirst,2024-01-01\nsecond,2024-01-02\nthird,2024-01-03\n"

	if _, err := im.ImportGenericCSV(context.Background(), csv, "a.csv"); err != nil {
		t.Fatalf("first import: %v", err)
	}
	before, _ := s.Stats()

	res, err := im.ImportGenericCSV(context.Background(), csv, "a.csv")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if res.Imported != 0 || res.Duplicates != 3 || res.Errors != 0 {
		t.Errorf("counts = %d/%d/%d, want 0/3/0", res.Imported, res.Duplicates, res.Errors)
	}
	if !res.AlreadyImported {
		t.Error("AlreadyImported = false")
	}

	after, _ := s.Stats()
	if after.SpineItems != before.SpineItems || after.Sources != before.Sources {
		t.Errorf("stored counts changed: %+v -> %+v", before, after)
	}
}

func TestImportGenericCSV_RowLevelDuplicatesAcrossFiles(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	if _, err := im.ImportGenericCSV(context.Background(), "description\nshared line\n", "a.csv"); err != nil {
		t.Fatal(err)
	}
	res, err := im.ImportGenericCSV(context.Background(), "description\nshared line\nnew line\n", "b.csv")
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 || res.Duplicates != 1 || res.AlreadyImported {
		t.Errorf("result = %+v", res)
	}
}

func TestImportGenericCSV_ReusedIDWithDifferentContent(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)
	ctx := context.Background()

	if _, err := im.ImportGenericCSV(ctx, evidenceLog, "a.csv"); err != nil {
		t.Fatalf("first import: %v", err)
	}
	second := `event_id,date,event_type,description
M-001,2024-02-01,MEDICAL,"Doctor visit was cancelled by the other parent."`
	res, err := im.ImportGenericCSV(ctx, second, "b.csv")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if res.Imported != 0 || res.Duplicates != 0 || res.Errors != 1 {
		t.Fatalf("counts = %d/%d/%d, want 0/0/1", res.Imported, res.Duplicates, res.Errors)
	}
	if want := "Row 2: id M-001 already used by different content"; len(res.ErrorMessages) != 1 || res.ErrorMessages[0] != want {
		t.Errorf("ErrorMessages = %v, want [%q]", res.ErrorMessages, want)
	}

	it, err := s.GetSpineItem("M-001")
	if err != nil {
		t.Fatalf("GetSpineItem: %v", err)
	}
	if it.ContentOriginal != "Refused exchange at the mall." {
		t.Errorf("ContentOriginal = %q, first import should be kept", it.ContentOriginal)
	}
	if st, _ := s.Stats(); st.SpineItems != 1 {
		t.Errorf("SpineItems = %d, want 1", st.SpineItems)
	}
}

func TestImportGenericCSV_DateFormats(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-01-15", "2024-01-15T00:00:00.000Z"},
		{"1/15/2024", "2024-01-15T00:00:00.000Z"},
		{"01/05/2024", "2024-01-05T00:00:00.000Z"},
		{"1/15/2024 14:30", "2024-01-15T14:30:00.000Z"},
		{"1/15/2024 2:30 PM", "2024-01-15T14:30:00.000Z"},
		{"Jan 15, 2024", "2024-01-15T00:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			s := newTestStore(t)
			im := newImporter(t, s)
			csv := "event_id,date,description\nD-1,\"" + tt.date + "\",Pickup was late\n"
			if _, err := im.ImportGenericCSV(context.Background(), csv, "dates.csv"); err != nil {
				t.Fatalf("ImportGenericCSV: %v", err)
			}
			it, err := s.GetSpineItem("D-1")
			if err != nil {
				t.Fatalf("GetSpineItem: %v", err)
			}
			if it.Timestamp != tt.want {
				t.Errorf("Timestamp = %q, want %q", it.Timestamp, tt.want)
			}
		})
	}
}

func TestImportGenericCSV_PartialBatch(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	csv := "date,event_type,description\n2024-01-01,EMAIL,first\n2024-01-02,EMAIL,\n2024-01-03,EMAIL,third\n"
	res, err := im.ImportGenericCSV(context.Background(), csv, "partial.csv")
	if err != nil {
		t.Fatalf("ImportGenericCSV: %v", err)
	}
	if res.Imported != 2 || res.Errors != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if len(res.ErrorMessages) != 1 || res.ErrorMessages[0] != "Row 3: Empty content" {
		t.Errorf("ErrorMessages = %v", res.ErrorMessages)
	}

	items, _ := s.ListSpineItems(spine.SpineFilter{})
	if len(items) != 2 || items[1].ContentOriginal != "third" || items[1].Type != spine.TypeEmail {
		t.Errorf("items = %+v", items)
	}
}

func TestImportGenericCSV_LaneAndTags(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	csv := "description,lane,tags\nschool pickup,custody,\"school, pickup\"\nother note,Plaintiff,\n"
	if _, err := im.ImportGenericCSV(context.Background(), csv, "lanes.csv"); err != nil {
		t.Fatal(err)
	}

	items, _ := s.ListSpineItems(spine.SpineFilter{})
	byContent := map[string]spine.SpineItem{}
	for _, it := range items {
		byContent[it.ContentOriginal] = it
	}
	pickup := byContent["school pickup"]
	if pickup.Lane != spine.LaneCustody || strings.Join(pickup.Tags, "|") != "school|pickup" {
		t.Errorf("pickup = lane %q tags %v", pickup.Lane, pickup.Tags)
	}
	other := byContent["other note"]
	if other.Lane != "" {
		t.Errorf("unknown lane should be dropped, got %q", other.Lane)
	}
	if len(other.Tags) != 1 || other.Tags[0] != string(spine.CategoryOther) {
		t.Errorf("default tags = %v", other.Tags)
	}
}

func TestImportGenericCSV_UnparseableDateFallsBackToNow(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)
	before := time.Now().Add(-time.Second)

	if _, err := im.ImportGenericCSV(context.Background(), "date,x,description\nsometime last week,,late payment\n", "d.csv"); err != nil {
		t.Fatal(err)
	}
	items, _ := s.ListSpineItems(spine.SpineFilter{})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	ts, err := spine.ParseTime(items[0].Timestamp)
	if err != nil {
		t.Fatalf("ParseTime(%q): %v", items[0].Timestamp, err)
	}
	if ts.Before(before) {
		t.Errorf("Timestamp = %q, want the import time", items[0].Timestamp)
	}
}

// ─── Platform export ────────────────────────────────────────────────────────

func TestImportPlatformCSV(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	csv := strings.Join([]string{
		"Date,From,To,Body,Call_Log",
		"2024-03-01 10:00:00,You,Jordan,Can I have the kids for the weekend?,",
		"2024-03-02 11:00:00,Jordan,You,No. Court order says otherwise.,",
		"2024-03-03 12:00:00,Jordan,You,,Missed call (0:00)",
		"2024-03-04 12:00:00,,,,",
	}, "\n")

	res, err := im.ImportPlatformCSV(context.Background(), csv, "appclose.csv")
	if err != nil {
		t.Fatalf("ImportPlatformCSV: %v", err)
	}
	if res.Imported != 3 || res.Errors != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.ErrorMessages[0] != "Row 5: Empty content" {
		t.Errorf("ErrorMessages = %v", res.ErrorMessages)
	}

	items, _ := s.ListSpineItems(spine.SpineFilter{})
	if len(items) != 3 {
		t.Fatalf("items = %d", len(items))
	}
	if items[0].Counterpart != "Jordan" || items[0].Platform != spine.PlatformAppClose || items[0].Type != spine.TypeMessage {
		t.Errorf("outgoing message = %+v", items[0])
	}
	if items[0].Timestamp != "2024-03-01T10:00:00.000Z" {
		t.Errorf("Timestamp = %q", items[0].Timestamp)
	}
	if items[1].Counterpart != "Jordan" || items[1].Category != spine.CategoryProcedural {
		t.Errorf("incoming message = %+v", items[1])
	}
	if items[2].Type != spine.TypeVoice || items[2].ContentOriginal != "Missed call (0:00)" {
		t.Errorf("call log = %+v", items[2])
	}
	if items[2].Confidence != spine.DefaultConfidence || items[2].Tags[0] != string(items[2].Category) {
		t.Errorf("defaults = %+v", items[2])
	}
}

func TestImportCSV_Dispatch(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	res, err := im.ImportCSV(context.Background(), "platform", "message,sender\nhello,Sam\n", "p.csv")
	if err != nil || res.Imported != 1 {
		t.Fatalf("platform dispatch = %+v, %v", res, err)
	}
	if _, err := im.ImportCSV(context.Background(), "xml", "a\nb\n", "x.csv"); !ingest.IsValidationError(err) {
		t.Errorf("unknown schema err = %v", err)
	}
}

// ─── Cancellation and storage failure ───────────────────────────────────────

func TestImport_CancelledContextStopsBatch(t *testing.T) {
	s := newTestStore(t)
	im := ingest.New(s, nil, nil, ingest.Options{YieldEvery: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := im.ImportGenericCSV(ctx, "description\none\ntwo\nthree\n", "c.csv")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || res.Imported != 1 {
		t.Errorf("partial result = %+v, want the first row imported", res)
	}
}

type failingStore struct {
	*spine.Store
	err error
}

func (f failingStore) AddSpineItem(*spine.SpineItem) (spine.Outcome, error) {
	return 0, &spine.StorageError{Op: "add spine item", Err: f.err}
}

func TestImport_StorageErrorAborts(t *testing.T) {
	s := newTestStore(t)
	quota := errors.New("quota exceeded")
	im := newImporter(t, failingStore{Store: s, err: quota})

	_, err := im.ImportGenericCSV(context.Background(), "description\none\ntwo\n", "f.csv")
	if !spine.IsStorageError(err) || !errors.Is(err, quota) {
		t.Fatalf("err = %v, want StorageError wrapping quota", err)
	}
}

// ─── Categorize ─────────────────────────────────────────────────────────────

func TestCategorize(t *testing.T) {
	tests := []struct {
		content string
		want    spine.Category
	}{
		{"She won't let me talk to them", spine.CategoryAccessDenied},
		{"Payment is late again", spine.CategoryFinancialStrain},
		{"Visitation moved to Sunday", spine.CategoryCustodyDispute},
		{"My number is BLOCKED", spine.CategoryCommunicationBlocked},
		{"The doctor called", spine.CategoryMedicalConcern},
		{"I called the police", spine.CategorySafetyIssue},
		{"Hearing is on Monday", spine.CategoryProcedural},
		{"See you at five", spine.CategoryOther},
		// first match wins
		{"denied the payment", spine.CategoryAccessDenied},
	}
	for _, tt := range tests {
		if got := ingest.Categorize(tt.content); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}
