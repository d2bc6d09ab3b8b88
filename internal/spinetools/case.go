package spinetools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/HendryAvila/casespine/internal/migrate"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// ExportTool handles the case_export MCP tool.
type ExportTool struct {
	store          *spine.Store
	includePrivate bool
}

// NewExportTool creates an ExportTool. includePrivate is the default used
// when the caller does not say.
func NewExportTool(store *spine.Store, includePrivate bool) *ExportTool {
	return &ExportTool{store: store, includePrivate: includePrivate}
}

// Definition returns the MCP tool definition for case_export.
func (t *ExportTool) Definition() mcp.Tool {
	return mcp.NewTool("case_export",
		mcp.WithDescription(
			"Export the whole case (sources, evidence, timeline, notes) as a versioned JSON backup. "+
				"Private notes are left out unless include_private is true.",
		),
		mcp.WithString("path",
			mcp.Description("Write the backup to this file instead of returning it"),
		),
		mcp.WithBoolean("include_private",
			mcp.Description("Include private sticky notes"),
		),
	)
}

// Handle processes the case_export tool call.
func (t *ExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := t.store.Export(spine.ExportOptions{IncludePrivate: boolArg(req, "include_private", t.includePrivate)})
	if err != nil {
		return failure("export", err), nil
	}

	var buf bytes.Buffer
	if err := snap.WriteJSON(&buf); err != nil {
		return failure("export", err), nil
	}

	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultText(buf.String()), nil
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("writing %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Backup written to %s (%s)\nSources: %s\nEvidence: %s\nTimeline: %s\nNotes: %s",
		path, humanize.Bytes(uint64(buf.Len())),
		count(len(snap.Sources)), count(len(snap.Spine)), count(len(snap.Timeline)), count(len(snap.StickyNotes)),
	)), nil
}

// ─── RestoreTool ────────────────────────────────────────────────────────────

// RestoreTool handles the case_restore MCP tool.
type RestoreTool struct {
	store *spine.Store
}

// NewRestoreTool creates a RestoreTool.
func NewRestoreTool(store *spine.Store) *RestoreTool {
	return &RestoreTool{store: store}
}

// Definition returns the MCP tool definition for case_restore.
func (t *RestoreTool) Definition() mcp.Tool {
	return mcp.NewTool("case_restore",
		mcp.WithDescription(
			"Restore a JSON backup. merge keeps existing records and skips incoming ones already present; "+
				"replace clears the case first. Original evidence text is never rewritten.",
		),
		mcp.WithString("path",
			mcp.Description("Backup file. Either path or json is required."),
		),
		mcp.WithString("json",
			mcp.Description("Backup document, used when no path is given"),
		),
		mcp.WithString("mode",
			mcp.Description("merge or replace (default: merge)"),
		),
	)
}

// Handle processes the case_restore tool call.
func (t *RestoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := spine.ParseRestoreMode(req.GetString("mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	if path := req.GetString("path", ""); path != "" {
		if data, err = os.ReadFile(path); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", path, err)), nil
		}
	} else if raw := req.GetString("json", ""); raw != "" {
		data = []byte(raw)
	} else {
		return mcp.NewToolResultError("either 'path' or 'json' is required"), nil
	}

	snap, err := spine.DecodeSnapshot(data)
	if err != nil {
		return failure("restore", err), nil
	}
	res, err := t.store.Restore(snap, mode)
	if err != nil {
		return failure("restore", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Restore (%s)\n\n", res.Mode)
	b.WriteString("| Table | Imported | Skipped |\n|---|---|---|\n")
	for _, row := range []struct {
		name string
		tc   spine.TableCounts
	}{
		{"sources", res.Sources},
		{"spine", res.Spine},
		{"timeline", res.Timeline},
		{"sticky notes", res.StickyNotes},
	} {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", row.name, count(row.tc.Imported), count(row.tc.Skipped))
	}
	if len(res.Errors) > 0 {
		b.WriteString("\n### Skipped records\n\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── MigrateTool ────────────────────────────────────────────────────────────

// MigrateTool handles the case_migrate MCP tool.
type MigrateTool struct {
	store  *spine.Store
	source migrate.Source
	logger *zap.Logger
}

// NewMigrateTool creates a MigrateTool reading legacy data from source.
func NewMigrateTool(store *spine.Store, source migrate.Source, logger *zap.Logger) *MigrateTool {
	return &MigrateTool{store: store, source: source, logger: logger}
}

// Definition returns the MCP tool definition for case_migrate.
func (t *MigrateTool) Definition() mcp.Tool {
	return mcp.NewTool("case_migrate",
		mcp.WithDescription(
			"Import data saved by the earlier browser builds (CaseCraft and TruthDock). "+
				"Records already present are skipped, so running this twice is harmless.",
		),
		mcp.WithString("path",
			mcp.Description("Legacy storage dump (default: the configured legacy snapshot)"),
		),
	)
}

// Handle processes the case_migrate tool call.
func (t *MigrateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := t.source
	if path := req.GetString("path", ""); path != "" {
		src = &migrate.FileSource{Path: path}
	}
	if src == nil {
		return mcp.NewToolResultError("no legacy data source configured; pass 'path'"), nil
	}

	res, err := migrate.Run(ctx, t.store, src, t.logger)
	if err != nil {
		return failure("migrate", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Migrated: %s\nSkipped: %s\n", count(res.Migrated), count(res.Skipped))
	if len(res.Errors) > 0 {
		b.WriteString("\nProblems:\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── StatsTool ──────────────────────────────────────────────────────────────

// StatsTool handles the case_stats MCP tool.
type StatsTool struct {
	store *spine.Store
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(store *spine.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for case_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("case_stats",
		mcp.WithDescription("Summarize the case: record counts, verification progress and per-lane and per-category totals."),
	)
}

// Handle processes the case_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.store.Stats()
	if err != nil {
		return failure("stats", err), nil
	}
	return mcp.NewToolResultText(renderStats(st)), nil
}

func renderStats(st *spine.Stats) string {
	var b strings.Builder
	b.WriteString("## Case summary\n\n")
	fmt.Fprintf(&b, "- **Sources**: %s\n", count(st.Sources))
	fmt.Fprintf(&b, "- **Evidence records**: %s (%s unverified, %s neutralized)\n",
		count(st.SpineItems), count(st.Unverified), count(st.Neutralized))
	fmt.Fprintf(&b, "- **Timeline events**: %s\n", count(st.TimelineEvents))
	fmt.Fprintf(&b, "- **Sticky notes**: %s\n", count(st.StickyNotes))
	writeCounts(&b, "By lane", st.ByLane)
	writeCounts(&b, "By category", st.ByCategory)
	return b.String()
}

func writeCounts(b *strings.Builder, title string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, count(m[k]))
	}
}

// ─── MasterTextTool ─────────────────────────────────────────────────────────

// MasterTextTool handles the case_master_text MCP tool.
type MasterTextTool struct {
	store *spine.Store
}

// NewMasterTextTool creates a MasterTextTool.
func NewMasterTextTool(store *spine.Store) *MasterTextTool {
	return &MasterTextTool{store: store}
}

// Definition returns the MCP tool definition for case_master_text.
func (t *MasterTextTool) Definition() mcp.Tool {
	return mcp.NewTool("case_master_text",
		mcp.WithDescription(
			"Render every evidence record as one plain-text document for loading into a reading or notebook tool. "+
				"Sticky notes are never included.",
		),
		mcp.WithString("path",
			mcp.Description("Write the document to this file instead of returning it"),
		),
	)
}

// Handle processes the case_master_text tool call.
func (t *MasterTextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := t.store.MasterText()
	if err != nil {
		return failure("master text", err), nil
	}
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultText(text), nil
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("writing %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Master text written to %s (%s)", path, humanize.Bytes(uint64(len(text))))), nil
}
