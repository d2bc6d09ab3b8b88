// Package csvparse splits delimited text into rows of fields.
//
// Parsers in this package never fail. Malformed input degrades to a
// best-effort split: a batch import depends on getting *some* rows back so
// that one bad line does not sink the rest of the file.
package csvparse

import (
	"encoding/csv"
	"io"
	"regexp"
	"strings"
)

// Row is an ordered list of trimmed fields.
type Row []string

// Field returns the field at idx, or "" when idx is out of range.
func (r Row) Field(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Parser turns raw text into rows. Implementations must not panic and must
// skip blank lines rather than emit empty rows.
type Parser interface {
	Parse(text string) []Row
}

// Named parsers accepted by ByName.
const (
	NameBestEffort = "best-effort"
	NameStrict     = "strict"
)

// ByName returns the parser registered under name, defaulting to BestEffort.
func ByName(name string) Parser {
	if strings.EqualFold(strings.TrimSpace(name), NameStrict) {
		return Strict{}
	}
	return BestEffort{}
}

// Anomalous reports whether row's field count differs from the header's.
func Anomalous(header, row Row) bool {
	return len(header) != len(row)
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// ─── BestEffort ─────────────────────────────────────────────────────────────

// BestEffort splits each line on commas, honoring fields wrapped in single
// or double quotes on the same line. Quotes never span lines.
//
// A quoted field only counts as quoted when its closing quote is followed by
// optional whitespace and then a comma or end of line; otherwise the raw text
// up to the next comma is taken as-is. Empty fields (including a trailing one
// after a final comma) are kept as "".
type BestEffort struct{}

// Parse implements Parser.
func (BestEffort) Parse(text string) []Row {
	var rows []Row
	for _, line := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitLine(line))
	}
	return rows
}

func splitLine(line string) Row {
	var row Row
	pos := 0
	for {
		field, next, more := scanField(line, pos)
		row = append(row, field)
		if !more {
			return row
		}
		pos = next
	}
}

// scanField reads one field starting at pos. It returns the field, the
// position after the separating comma, and whether another field follows.
func scanField(line string, pos int) (string, int, bool) {
	start := skipSpace(line, pos)
	if start < len(line) && (line[start] == '"' || line[start] == '\'') {
		if field, next, more, ok := scanQuoted(line, start); ok {
			return field, next, more
		}
	}

	end := strings.IndexByte(line[start:], ',')
	if end < 0 {
		return strings.TrimSpace(line[start:]), len(line), false
	}
	return strings.TrimSpace(line[start : start+end]), start + end + 1, true
}

// scanQuoted looks for the first matching quote that is followed by
// whitespace and a comma or end of line.
func scanQuoted(line string, start int) (string, int, bool, bool) {
	quote := line[start]
	for i := start + 1; i < len(line); i++ {
		if line[i] != quote {
			continue
		}
		after := skipSpace(line, i+1)
		if after == len(line) {
			return unquote(line[start+1:i], quote), len(line), false, true
		}
		if line[after] == ',' {
			return unquote(line[start+1:i], quote), after + 1, true, true
		}
	}
	return "", 0, false, false
}

func unquote(s string, quote byte) string {
	if quote == '"' {
		s = strings.ReplaceAll(s, `""`, `"`)
	}
	return strings.TrimSpace(s)
}

func skipSpace(line string, pos int) int {
	for pos < len(line) && (line[pos] == ' ' || line[pos] == '\t') {
		pos++
	}
	return pos
}

// ─── Strict ─────────────────────────────────────────────────────────────────

// Strict parses RFC 4180 CSV (double quotes only, quoted newlines allowed).
// Lines are grouped into records by balancing double quotes. A record the
// reader rejects falls back to BestEffort line by line, so one bad record
// does not change how the rest of the file is read.
type Strict struct{}

// Parse implements Parser.
func (Strict) Parse(text string) []Row {
	var rows []Row
	var pending []string
	quotes := 0
	for _, line := range lineBreak.Split(text, -1) {
		if len(pending) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		pending = append(pending, line)
		quotes += strings.Count(line, `"`)
		if quotes%2 == 0 {
			rows = append(rows, parseRecord(pending)...)
			pending, quotes = pending[:0], 0
		}
	}
	if len(pending) > 0 {
		rows = append(rows, parseRecord(pending)...)
	}
	return rows
}

// parseRecord reads lines as exactly one RFC 4180 record, or splits each
// line with BestEffort when that fails.
func parseRecord(lines []string) []Row {
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rec, err := r.Read()
	if err == nil {
		if _, err = r.Read(); err == io.EOF {
			row := make(Row, len(rec))
			blank := true
			for i, f := range rec {
				row[i] = strings.TrimSpace(f)
				if row[i] != "" {
					blank = false
				}
			}
			if blank {
				return nil
			}
			return []Row{row}
		}
	}

	var rows []Row
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitLine(line))
	}
	return rows
}
