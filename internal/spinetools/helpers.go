// Package spinetools provides MCP tool handlers for the case spine.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies (spine.Store, ingest.Importer) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Failures are reported as tool errors, never as Go errors, so the host can
// show them to the user.
package spinetools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// listArg accepts either a JSON array of strings or a comma-separated string.
func listArg(req mcp.CallToolRequest, key string) []string {
	var out []string
	switch v := req.GetArguments()[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// failure turns err into a tool error, naming the failed action.
func failure(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, spine.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s: not found", action))
	case errors.Is(err, spine.ErrInvalid), ingest.IsValidationError(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
	case spine.IsStorageError(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s: storage failure: %v", action, err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}

// count renders n with thousands separators.
func count(n int) string {
	return humanize.Comma(int64(n))
}

// age renders a stored timestamp relative to now, or the raw value when it
// does not parse.
func age(ts string) string {
	t, err := spine.ParseTime(ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

// preview shortens content for list output.
func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// writeItem renders one spine item in full.
func writeItem(b *strings.Builder, it *spine.SpineItem) {
	fmt.Fprintf(b, "## %s\n\n", it.ID)
	fmt.Fprintf(b, "- **Timestamp**: %s (%s)\n", it.Timestamp, age(it.Timestamp))
	fmt.Fprintf(b, "- **Type**: %s\n", it.Type)
	if it.Counterpart != "" {
		fmt.Fprintf(b, "- **Counterpart**: %s\n", it.Counterpart)
	}
	if it.Platform != "" {
		fmt.Fprintf(b, "- **Platform**: %s\n", it.Platform)
	}
	if it.Category != "" {
		fmt.Fprintf(b, "- **Category**: %s\n", it.Category)
	}
	if it.Lane != "" {
		fmt.Fprintf(b, "- **Lane**: %s\n", it.Lane)
	}
	if len(it.Tags) > 0 {
		fmt.Fprintf(b, "- **Tags**: %s\n", strings.Join(it.Tags, ", "))
	}
	if it.ExhibitCode != "" {
		fmt.Fprintf(b, "- **Exhibit**: %s\n", it.ExhibitCode)
	}
	fmt.Fprintf(b, "- **Verified**: %t (confidence %.2f)\n", it.Verified, it.Confidence)
	fmt.Fprintf(b, "- **Fingerprint**: %s\n", it.Fingerprint)
	fmt.Fprintf(b, "- **Source**: %s\n\n", it.SourceID)
	fmt.Fprintf(b, "### Original\n\n%s\n", it.ContentOriginal)
	if it.ContentNeutral != nil {
		fmt.Fprintf(b, "\n### Neutral\n\n%s\n", *it.ContentNeutral)
	}
}

// writeItemLine renders one spine item as a list entry.
func writeItemLine(b *strings.Builder, i int, it spine.SpineItem) {
	who := ""
	if it.Counterpart != "" {
		who = " · " + it.Counterpart
	}
	fmt.Fprintf(b, "%d. **%s** [%s]%s (%s)\n   %s\n", i+1, it.ID, it.Category, who, it.Timestamp, preview(it.ContentOriginal, 160))
}
