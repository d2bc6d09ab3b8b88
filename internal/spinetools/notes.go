package spinetools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/mark3labs/mcp-go/mcp"
)

// NoteSaveTool handles the note_save MCP tool.
type NoteSaveTool struct {
	store *spine.Store
}

// NewNoteSaveTool creates a NoteSaveTool.
func NewNoteSaveTool(store *spine.Store) *NoteSaveTool {
	return &NoteSaveTool{store: store}
}

// Definition returns the MCP tool definition for note_save.
func (t *NoteSaveTool) Definition() mcp.Tool {
	return mcp.NewTool("note_save",
		mcp.WithDescription(
			"Attach a sticky note to an evidence record or timeline event. Notes are private by default "+
				"and are left out of exports unless private notes are requested. Passing an existing id overwrites that note.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Note text"),
		),
		mcp.WithString("target_type",
			mcp.Description("spine, timeline or evidence (default: spine)"),
		),
		mcp.WithString("target_id",
			mcp.Description("Id of the annotated record"),
		),
		mcp.WithString("color",
			mcp.Description("yellow, pink, blue or green (default: yellow)"),
		),
		mcp.WithBoolean("private",
			mcp.Description("Keep the note out of exports (default: true)"),
		),
		mcp.WithString("id",
			mcp.Description("Existing note id to overwrite"),
		),
	)
}

// Handle processes the note_save tool call.
func (t *NoteSaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := strings.TrimSpace(req.GetString("text", ""))
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	target := spine.TargetType(strings.ToLower(req.GetString("target_type", string(spine.TargetSpine))))
	n := spine.NewStickyNote(target, req.GetString("target_id", ""), text)
	if id := req.GetString("id", ""); id != "" {
		if existing, err := t.store.GetStickyNote(id); err == nil {
			n.CreatedAt = existing.CreatedAt
			n.X, n.Y = existing.X, existing.Y
		}
		n.ID = id
	}
	if v := req.GetString("color", ""); v != "" {
		n.Color = spine.NoteColor(strings.ToLower(v))
	}
	n.IsPrivate = boolArg(req, "private", true)

	if err := t.store.SaveStickyNote(&n); err != nil {
		return failure("save note", err), nil
	}

	visibility := "private"
	if !n.IsPrivate {
		visibility = "shared"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Note saved\nID: %s\nTarget: %s %s\nVisibility: %s", n.ID, n.TargetType, n.TargetID, visibility)), nil
}

// ─── NoteDeleteTool ─────────────────────────────────────────────────────────

// NoteDeleteTool handles the note_delete MCP tool.
type NoteDeleteTool struct {
	store *spine.Store
}

// NewNoteDeleteTool creates a NoteDeleteTool.
func NewNoteDeleteTool(store *spine.Store) *NoteDeleteTool {
	return &NoteDeleteTool{store: store}
}

// Definition returns the MCP tool definition for note_delete.
func (t *NoteDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("note_delete",
		mcp.WithDescription("Delete a sticky note. Evidence records cannot be deleted; notes can."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Note id"),
		),
	)
}

// Handle processes the note_delete tool call.
func (t *NoteDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if err := t.store.DeleteStickyNote(id); err != nil {
		return failure("delete note "+id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Note %s deleted", id)), nil
}

// ─── NoteListTool ───────────────────────────────────────────────────────────

// NoteListTool handles the note_list MCP tool.
type NoteListTool struct {
	store *spine.Store
}

// NewNoteListTool creates a NoteListTool.
func NewNoteListTool(store *spine.Store) *NoteListTool {
	return &NoteListTool{store: store}
}

// Definition returns the MCP tool definition for note_list.
func (t *NoteListTool) Definition() mcp.Tool {
	return mcp.NewTool("note_list",
		mcp.WithDescription("List sticky notes, optionally only those on one record."),
		mcp.WithString("target_type",
			mcp.Description("spine, timeline or evidence"),
		),
		mcp.WithString("target_id",
			mcp.Description("Only notes on this record"),
		),
		mcp.WithBoolean("include_private",
			mcp.Description("Include private notes (default: true)"),
		),
	)
}

// Handle processes the note_list tool call.
func (t *NoteListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := t.store.ListStickyNotes(spine.NoteFilter{
		TargetType:     spine.TargetType(strings.ToLower(req.GetString("target_type", ""))),
		TargetID:       req.GetString("target_id", ""),
		IncludePrivate: boolArg(req, "include_private", true),
	})
	if err != nil {
		return failure("list notes", err), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("No notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %s notes:\n\n", count(len(notes)))
	for _, n := range notes {
		lock := ""
		if n.IsPrivate {
			lock = " (private)"
		}
		fmt.Fprintf(&b, "- **%s** on %s %s [%s]%s: %s\n", n.ID, n.TargetType, n.TargetID, n.Color, lock, preview(n.Text, 160))
	}
	return mcp.NewToolResultText(b.String()), nil
}
