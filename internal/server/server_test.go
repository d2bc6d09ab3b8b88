package server

import (
	"strings"
	"testing"

	"github.com/HendryAvila/casespine/internal/config"
	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/spine"
	"go.uber.org/zap/zaptest"
)

func TestNew(t *testing.T) {
	store, err := spine.New(spine.Config{DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("spine.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := zaptest.NewLogger(t)
	s := New(Deps{
		Config:   config.Default(),
		Store:    store,
		Importer: ingest.New(store, nil, logger, ingest.Options{}),
		Logger:   logger,
	})
	if s == nil {
		t.Fatal("New returned nil")
	}

	tools := s.ListTools()
	for _, name := range []string{"spine_import_csv", "spine_search", "timeline_promote", "note_save", "case_export", "case_migrate"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
	if len(tools) != 18 {
		t.Errorf("registered %d tools, want 18", len(tools))
	}
}

func TestServerInstructions(t *testing.T) {
	text := serverInstructions()
	for _, want := range []string{"spine_import_csv", "spine_neutralize", "case_master_text", "casespine://case/stats"} {
		if !strings.Contains(text, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}
