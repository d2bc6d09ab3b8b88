package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Keys under which the earlier browser builds kept their state.
const (
	KeyCaseCraft = "CASE_CRAFT_STATE_V3"
	KeyTruthDock = "truthdock_spine"
)

// Source yields the raw JSON stored under a legacy key. ok is false when the
// key was never written.
type Source interface {
	Get(key string) (value string, ok bool, err error)
}

// MapSource is an in-memory Source.
type MapSource map[string]string

func (m MapSource) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

// FileSource reads a key/value dump of the old browser storage: a JSON object
// whose values are the JSON strings that were stored under each key. A
// missing file means there is nothing to migrate.
type FileSource struct {
	Path string

	loaded bool
	data   map[string]string
}

func (f *FileSource) Get(key string) (string, bool, error) {
	if !f.loaded {
		if err := f.load(); err != nil {
			return "", false, err
		}
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileSource) load() error {
	f.loaded = true
	if f.Path == "" {
		return nil
	}
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: read legacy snapshot: %w", err)
	}

	// Values may be stored either as JSON strings (the storage API only
	// holds strings) or inline as objects and arrays.
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("migrate: parse legacy snapshot %s: %w", f.Path, err)
	}
	f.data = make(map[string]string, len(entries))
	for k, v := range entries {
		var s string
		if json.Unmarshal(v, &s) == nil {
			f.data[k] = s
			continue
		}
		f.data[k] = string(v)
	}
	return nil
}

// ─── Legacy record shapes ────────────────────────────────────────────────────

type caseCraftState struct {
	Evidence  []legacyEvidence  `json:"evidence"`
	Notes     []legacyNote      `json:"notes"`
	Narrative []legacyNarrative `json:"narrative"`
}

type legacyEvidence struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Sender         string   `json:"sender"`
	Content        string   `json:"content"`
	ContentNeutral *string  `json:"contentNeutral"`
	Timestamp      any      `json:"timestamp"`
	Hash           string   `json:"hash"`
	Verified       bool     `json:"verified"`
	ExhibitCode    string   `json:"exhibitCode"`
	Lane           string   `json:"lane"`
	Tags           []string `json:"tags"`
	Reliability    string   `json:"reliability"`
	Source         string   `json:"source"`
	Notes          string   `json:"notes"`
}

type legacyNote struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	TargetID string   `json:"targetId"`
}

type legacyNarrative struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Lane              string   `json:"lane"`
	Timestamp         any      `json:"timestamp"`
	LinkedEvidenceIDs []string `json:"linkedEvidenceIds"`
}

type truthDockNote struct {
	ID           string   `json:"id"`
	Content      string   `json:"content"`
	RawContent   string   `json:"rawContent"`
	Timestamp    any      `json:"timestamp"`
	LastModified *int64   `json:"lastModified"`
	Type         string   `json:"type"`
	FileName     string   `json:"fileName"`
	Hash         string   `json:"hash"`
	IsVerified   bool     `json:"isVerified"`
	Lane         string   `json:"lane"`
	Confidence   *float64 `json:"confidence"`
}
