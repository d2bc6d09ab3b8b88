package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasSuffix(cfg.DataDir, ".casespine") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Import.Parser != "best-effort" || cfg.Import.YieldEvery != 200 {
		t.Errorf("Import = %+v", cfg.Import)
	}
	if cfg.HTTP.Addr != "127.0.0.1:8765" || cfg.LogLevel != "info" || cfg.Search.MaxResults != 50 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LegacySnapshot != filepath.Join(cfg.DataDir, "legacy-storage.json") {
		t.Errorf("LegacySnapshot = %q", cfg.LegacySnapshot)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Import.Parser != "best-effort" {
		t.Errorf("Parser = %q", cfg.Import.Parser)
	}
}

func TestLoad_ValuesAndEnvExpansion(t *testing.T) {
	t.Setenv("CASE_ROOT", "/srv/case")
	path := writeConfig(t, `
data_dir: ${CASE_ROOT}/data
legacy_snapshot: $CASE_ROOT/old.json
log_level: debug
import:
  yield_every: 10
  parser: strict
http:
  addr: ":9000"
export:
  include_private: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/case/data" || cfg.LegacySnapshot != "/srv/case/old.json" {
		t.Errorf("paths = %q, %q", cfg.DataDir, cfg.LegacySnapshot)
	}
	if cfg.LogLevel != "debug" || cfg.Import.YieldEvery != 10 || cfg.Import.Parser != "strict" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTP.Addr != ":9000" || !cfg.Export.IncludePrivate {
		t.Errorf("HTTP/Export = %+v / %+v", cfg.HTTP, cfg.Export)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad parser", "import:\n  parser: regex\n"},
		{"negative yield", "import:\n  yield_every: -1\n"},
		{"unknown key", "colour: blue\n"},
		{"not yaml", "data_dir: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPath_Env(t *testing.T) {
	t.Setenv(EnvPath, "/etc/casespine.yml")
	if got := Path(); got != "/etc/casespine.yml" {
		t.Errorf("Path() = %q", got)
	}
}
