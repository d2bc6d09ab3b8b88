package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/HendryAvila/casespine/internal/csvparse"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/spf13/cast"
)

// Schema names accepted by ImportCSV.
const (
	SchemaGeneric  = "generic"
	SchemaPlatform = "platform"
)

// ImportCSV dispatches on schema. An empty schema means generic.
func (im *Importer) ImportCSV(ctx context.Context, schema, content, fileName string) (*ImportResult, error) {
	switch strings.ToLower(strings.TrimSpace(schema)) {
	case "", SchemaGeneric:
		return im.ImportGenericCSV(ctx, content, fileName)
	case SchemaPlatform, "appclose":
		return im.ImportPlatformCSV(ctx, content, fileName)
	}
	return nil, &ValidationError{FileName: fileName, Reason: "unknown CSV schema " + schema}
}

// ─── Generic evidence log ────────────────────────────────────────────────────

// ImportGenericCSV imports an evidence log with the columns event_id, date,
// event_type, short_title, description, source, exhibit_refs, reliability,
// notes, lane and tags. Content comes from description, or from the third
// field when there is no description column.
func (im *Importer) ImportGenericCSV(ctx context.Context, content, fileName string) (*ImportResult, error) {
	return im.importCSV(ctx, content, fileName, SchemaGeneric, func(h header) rowMapper {
		col := h.resolve(map[string][]string{
			"id":          {"event_id"},
			"date":        {"date"},
			"type":        {"event_type"},
			"title":       {"short_title"},
			"content":     {"description"},
			"source":      {"source"},
			"exhibit":     {"exhibit_refs"},
			"reliability": {"reliability"},
			"notes":       {"notes"},
			"lane":        {"lane"},
			"tags":        {"tags"},
		})
		contentIdx, ok := col["content"]
		if !ok {
			contentIdx = 2
		}

		return func(row csvparse.Row) (spine.SpineItem, string) {
			text := row.Field(contentIdx)
			if text == "" {
				return spine.SpineItem{}, "Empty content"
			}

			cat := Categorize(text)
			it := spine.SpineItem{
				ID:              row.Field(col.index("id")),
				ContentOriginal: text,
				Timestamp:       parseTimestamp(row.Field(col.index("date"))),
				Category:        cat,
				Type:            genericType(row.Field(col.index("type"))),
				Confidence:      spine.DefaultConfidence,
				Title:           row.Field(col.index("title")),
				Source:          row.Field(col.index("source")),
				ExhibitCode:     row.Field(col.index("exhibit")),
				Reliability:     row.Field(col.index("reliability")),
				Notes:           row.Field(col.index("notes")),
				Tags:            splitTags(row.Field(col.index("tags"))),
			}
			if lane, ok := spine.ParseLane(row.Field(col.index("lane"))); ok {
				it.Lane = lane
			}
			if len(it.Tags) == 0 {
				it.Tags = []string{string(cat)}
			}
			return it, ""
		}
	})
}

// genericType maps the event_type column. Anything outside the four known
// values becomes a document.
func genericType(v string) spine.EvidenceType {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "MESSAGE":
		return spine.TypeMessage
	case "INCIDENT":
		return spine.TypeIncident
	case "EMAIL":
		return spine.TypeEmail
	}
	return spine.TypeDocument
}

// ─── Messaging platform export ───────────────────────────────────────────────

// ImportPlatformCSV imports a co-parenting app message export. Messages become
// message items; rows with only a call log entry become voice items.
func (im *Importer) ImportPlatformCSV(ctx context.Context, content, fileName string) (*ImportResult, error) {
	return im.importCSV(ctx, content, fileName, SchemaPlatform, func(h header) rowMapper {
		col := h.resolve(map[string][]string{
			"timestamp": {"timestamp", "date", "time", "datetime"},
			"sender":    {"sender", "from", "author"},
			"recipient": {"recipient", "to", "receiver"},
			"message":   {"message", "content", "text", "body"},
			"call":      {"call_log", "call", "calllog"},
		})

		return func(row csvparse.Row) (spine.SpineItem, string) {
			typ := spine.TypeMessage
			text := row.Field(col.index("message"))
			if text == "" {
				text = row.Field(col.index("call"))
				typ = spine.TypeVoice
			}
			if text == "" {
				return spine.SpineItem{}, "Empty content"
			}

			sender := row.Field(col.index("sender"))
			if sender == "" {
				sender = "Unknown"
			}
			counterpart := sender
			if s := strings.ToLower(sender); s == "you" || s == "me" {
				counterpart = row.Field(col.index("recipient"))
			}

			cat := Categorize(text)
			return spine.SpineItem{
				ContentOriginal: text,
				Timestamp:       parseTimestamp(row.Field(col.index("timestamp"))),
				Counterpart:     counterpart,
				Platform:        spine.PlatformAppClose,
				Category:        cat,
				Type:            typ,
				Confidence:      spine.DefaultConfidence,
				Tags:            []string{string(cat)},
			}, ""
		}
	})
}

// ─── Header mapping ──────────────────────────────────────────────────────────

// header maps lowercased column names to their first index.
type header map[string]int

func newHeader(row csvparse.Row) header {
	h := make(header, len(row))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

// columns maps a logical field to its resolved index.
type columns map[string]int

// index returns the column for field, or -1 when the header lacks it.
// Row.Field treats -1 as missing.
func (c columns) index(field string) int {
	if i, ok := c[field]; ok {
		return i
	}
	return -1
}

// resolve picks, per logical field, the first synonym present in the header.
func (h header) resolve(synonyms map[string][]string) columns {
	out := make(columns, len(synonyms))
	for field, names := range synonyms {
		for _, name := range names {
			if i, ok := h[name]; ok {
				out[field] = i
				break
			}
		}
	}
	return out
}

// ─── Field helpers ───────────────────────────────────────────────────────────

// usDateLayouts covers the month-first dates spreadsheet exports produce,
// which cast does not recognise.
var usDateLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// parseTimestamp parses a date cell, falling back to now on failure.
func parseTimestamp(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return spine.Now()
	}
	if t, err := cast.ToTimeInDefaultLocationE(v, time.UTC); err == nil {
		return spine.FormatTime(t)
	}
	for _, layout := range usDateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return spine.FormatTime(t)
		}
	}
	return spine.Now()
}

func splitTags(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var tags []string
	seen := map[string]bool{}
	for _, t := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
