package ingest_test

import (
	"context"
	"testing"

	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/spine"
)

func ms(v int64) *int64 { return &v }

func TestImportText_Stores(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	res, err := im.ImportText(context.Background(), ingest.TextDocument{
		Content:      "Police were called during the exchange.",
		FileName:     "incident.txt",
		LastModified: ms(1_700_000_000_000),
	})
	if err != nil {
		t.Fatalf("ImportText: %v", err)
	}
	if res.Rejection != "" || res.Item == nil {
		t.Fatalf("result = %+v", res)
	}

	got, err := s.GetSpineItem(res.Item.ID)
	if err != nil {
		t.Fatalf("GetSpineItem: %v", err)
	}
	if got.Type != spine.TypeFile || got.Category != spine.CategorySafetyIssue {
		t.Errorf("Type = %q, Category = %q", got.Type, got.Category)
	}
	if got.Confidence != ingest.TextConfidence {
		t.Errorf("Confidence = %v", got.Confidence)
	}
	if got.LastModified == nil || *got.LastModified != 1_700_000_000_000 {
		t.Errorf("LastModified = %v", got.LastModified)
	}
	if res.SourceFile == nil || res.SourceFile.FileType != spine.KindTXT || got.SourceID != res.SourceFile.ID {
		t.Errorf("SourceFile = %+v", res.SourceFile)
	}
}

func TestImportText_PastedTextHasNoFile(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)

	res, err := im.ImportText(context.Background(), ingest.TextDocument{Content: "typed by hand"})
	if err != nil || res.Item == nil {
		t.Fatalf("ImportText = %+v, %v", res, err)
	}
	if res.Item.Type != spine.TypeText || res.SourceFile.FileName != "pasted-text" {
		t.Errorf("result = %+v / %+v", res.Item, res.SourceFile)
	}
}

func TestImportText_Rejections(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)
	ctx := context.Background()

	first, err := im.ImportText(ctx, ingest.TextDocument{Content: "same text", FileName: "v2.txt", LastModified: ms(2000)})
	if err != nil || first.Item == nil {
		t.Fatalf("seed ImportText = %+v, %v", first, err)
	}

	tests := []struct {
		name string
		doc  ingest.TextDocument
		want ingest.Rejection
	}{
		{"empty", ingest.TextDocument{Content: "  \n\t", FileName: "blank.txt"}, ingest.RejectEmpty},
		{"newer copy", ingest.TextDocument{Content: "same text", FileName: "v3.txt", LastModified: ms(3000)}, ingest.RejectDuplicate},
		{"older copy", ingest.TextDocument{Content: "same text", FileName: "v1.txt", LastModified: ms(1000)}, ingest.RejectStale},
		{"bad extension", ingest.TextDocument{Content: "MZ", FileName: "setup.exe"}, ingest.RejectInvalidFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := im.ImportText(ctx, tt.doc)
			if err != nil {
				t.Fatalf("ImportText: %v", err)
			}
			if res.Rejection != tt.want {
				t.Errorf("Rejection = %q, want %q", res.Rejection, tt.want)
			}
			if res.Item != nil {
				t.Error("rejected document produced an item")
			}
		})
	}

	st, _ := s.Stats()
	if st.SpineItems != 1 {
		t.Errorf("SpineItems = %d, want 1", st.SpineItems)
	}
}

func TestImportText_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	im := newImporter(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := im.ImportText(ctx, ingest.TextDocument{Content: "x"}); err == nil {
		t.Error("expected context error")
	}
}
