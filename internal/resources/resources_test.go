package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/mark3labs/mcp-go/mcp"
)

func newTestStore(t *testing.T) *spine.Store {
	t.Helper()
	store, err := spine.New(spine.Config{DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func readReq(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func contentText(t *testing.T, contents []mcp.ResourceContents) mcp.TextResourceContents {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}
	return tc
}

func TestHandleStats(t *testing.T) {
	store := newTestStore(t)
	sf := spine.NewSourceFile("log.csv", "a,b\n1,2", spine.KindCSV, 1)
	if _, err := store.AddSource(&sf); err != nil {
		t.Fatal(err)
	}
	it := spine.NewSpineItem(sf.ID, "Exchange refused")
	if _, err := store.AddSpineItem(&it); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(store)
	if h.StatsResource().URI != StatsURI {
		t.Errorf("URI = %q", h.StatsResource().URI)
	}
	contents, err := h.HandleStats(context.Background(), readReq(StatsURI))
	if err != nil {
		t.Fatalf("HandleStats: %v", err)
	}
	tc := contentText(t, contents)
	if tc.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q", tc.MIMEType)
	}

	var st spine.Stats
	if err := json.Unmarshal([]byte(tc.Text), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Sources != 1 || st.SpineItems != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestHandleSourcesAndTimeline(t *testing.T) {
	store := newTestStore(t)
	h := NewHandler(store)

	contents, err := h.HandleSources(context.Background(), readReq(SourcesURI))
	if err != nil {
		t.Fatalf("HandleSources: %v", err)
	}
	if got := contentText(t, contents).Text; got != "[]" {
		t.Errorf("empty sources = %q, want []", got)
	}

	contents, err = h.HandleTimeline(context.Background(), readReq(TimelineURI))
	if err != nil {
		t.Fatalf("HandleTimeline: %v", err)
	}
	if got := contentText(t, contents).Text; got != "[]" {
		t.Errorf("empty timeline = %q, want []", got)
	}
}

func TestHandleStats_ClosedStore(t *testing.T) {
	store := newTestStore(t)
	_ = store.Close()

	contents, err := NewHandler(store).HandleStats(context.Background(), readReq(StatsURI))
	if err != nil {
		t.Fatalf("HandleStats: %v", err)
	}
	if tc := contentText(t, contents); tc.MIMEType != "text/plain" {
		t.Errorf("expected error resource, got %+v", tc)
	}
}
