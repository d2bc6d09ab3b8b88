package spinetools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchTool handles the spine_search MCP tool.
type SearchTool struct {
	store    *spine.Store
	maxLimit int
}

// NewSearchTool creates a SearchTool. Requested limits are capped at
// maxLimit when it is positive.
func NewSearchTool(store *spine.Store, maxLimit int) *SearchTool {
	return &SearchTool{store: store, maxLimit: maxLimit}
}

// Definition returns the MCP tool definition for spine_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("spine_search",
		mcp.WithDescription(
			"Search evidence records by keyword across original text, neutral text, counterpart, title and tags. "+
				"Without a query, lists records filtered by lane, category or verification state.",
		),
		mcp.WithString("query",
			mcp.Description("Keywords; omit to list"),
		),
		mcp.WithString("lane",
			mcp.Description("Filter: CUSTODY, FINANCIAL, SAFETY or PROCEDURAL"),
		),
		mcp.WithString("category",
			mcp.Description("Filter: access-denied, financial-strain, custody-dispute, communication-blocked, medical-concern, safety-issue, procedural, other"),
		),
		mcp.WithBoolean("unverified_only",
			mcp.Description("Only list records not yet verified"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

// Handle processes the spine_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	limit := intArg(req, "limit", 20)
	if t.maxLimit > 0 && (limit <= 0 || limit > t.maxLimit) {
		limit = t.maxLimit
	}

	var (
		items []spine.SpineItem
		err   error
	)
	if query != "" {
		items, err = t.store.SearchSpine(query, limit)
	} else {
		f := spine.SpineFilter{Limit: limit}
		if v := req.GetString("lane", ""); v != "" {
			lane, ok := spine.ParseLane(v)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("unknown lane %q", v)), nil
			}
			f.Lane = lane
		}
		if v := req.GetString("category", ""); v != "" {
			cat, ok := spine.ParseCategory(v)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", v)), nil
			}
			f.Category = cat
		}
		if boolArg(req, "unverified_only", false) {
			no := false
			f.Verified = &no
		}
		items, err = t.store.ListSpineItems(f)
	}
	if err != nil {
		return failure("search failed", err), nil
	}

	if len(items) == 0 {
		return mcp.NewToolResultText("No evidence records found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %s records:\n\n", count(len(items)))
	for i, it := range items {
		writeItemLine(&b, i, it)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── GetTool ────────────────────────────────────────────────────────────────

// GetTool handles the spine_get MCP tool.
type GetTool struct {
	store *spine.Store
}

// NewGetTool creates a GetTool.
func NewGetTool(store *spine.Store) *GetTool {
	return &GetTool{store: store}
}

// Definition returns the MCP tool definition for spine_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("spine_get",
		mcp.WithDescription("Show one evidence record in full, including its original and neutral text."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Spine item id"),
		),
	)
}

// Handle processes the spine_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	it, err := t.store.GetSpineItem(id)
	if err != nil {
		return failure("get "+id, err), nil
	}

	var b strings.Builder
	writeItem(&b, it)

	notes, err := t.store.ListStickyNotes(spine.NoteFilter{TargetType: spine.TargetSpine, TargetID: id, IncludePrivate: true})
	if err == nil && len(notes) > 0 {
		b.WriteString("\n### Notes\n\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- [%s] %s (%s)\n", n.Color, n.Text, n.ID)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── NeutralizeTool ─────────────────────────────────────────────────────────

// NeutralizeTool handles the spine_neutralize MCP tool.
type NeutralizeTool struct {
	store *spine.Store
}

// NewNeutralizeTool creates a NeutralizeTool.
func NewNeutralizeTool(store *spine.Store) *NeutralizeTool {
	return &NeutralizeTool{store: store}
}

// Definition returns the MCP tool definition for spine_neutralize.
func (t *NeutralizeTool) Definition() mcp.Tool {
	return mcp.NewTool("spine_neutralize",
		mcp.WithDescription(
			"Save a neutral, non-emotional paraphrase of an evidence record. "+
				"YOU write the paraphrase; the tool stores it next to the original, which is never changed.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Spine item id"),
		),
		mcp.WithString("neutral",
			mcp.Required(),
			mcp.Description("Neutral paraphrase. An empty string removes the stored paraphrase."),
		),
	)
}

// Handle processes the spine_neutralize tool call.
func (t *NeutralizeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	it, err := t.store.SetNeutral(id, req.GetString("neutral", ""))
	if err != nil {
		return failure("neutralize "+id, err), nil
	}
	if it.ContentNeutral == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Neutral text removed from %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Neutral text saved for %s", id)), nil
}

// ─── VerifyTool ─────────────────────────────────────────────────────────────

// VerifyTool handles the spine_verify MCP tool.
type VerifyTool struct {
	store *spine.Store
}

// NewVerifyTool creates a VerifyTool.
func NewVerifyTool(store *spine.Store) *VerifyTool {
	return &VerifyTool{store: store}
}

// Definition returns the MCP tool definition for spine_verify.
func (t *VerifyTool) Definition() mcp.Tool {
	return mcp.NewTool("spine_verify",
		mcp.WithDescription("Mark an evidence record as verified (checked against the original artifact) or unverified."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Spine item id"),
		),
		mcp.WithBoolean("verified",
			mcp.Description("Verification state (default: true)"),
		),
	)
}

// Handle processes the spine_verify tool call.
func (t *VerifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	it, err := t.store.SetVerified(id, boolArg(req, "verified", true))
	if err != nil {
		return failure("verify "+id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s verified: %t", id, it.Verified)), nil
}

// ─── ClassifyTool ───────────────────────────────────────────────────────────

// ClassifyTool handles the spine_classify MCP tool.
type ClassifyTool struct {
	store *spine.Store
}

// NewClassifyTool creates a ClassifyTool.
func NewClassifyTool(store *spine.Store) *ClassifyTool {
	return &ClassifyTool{store: store}
}

// Definition returns the MCP tool definition for spine_classify.
func (t *ClassifyTool) Definition() mcp.Tool {
	return mcp.NewTool("spine_classify",
		mcp.WithDescription("Set the category, lane and tags of an evidence record. Omitted fields keep their current value."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Spine item id"),
		),
		mcp.WithString("category",
			mcp.Description("access-denied, financial-strain, custody-dispute, communication-blocked, medical-concern, safety-issue, procedural, other"),
		),
		mcp.WithString("lane",
			mcp.Description("CUSTODY, FINANCIAL, SAFETY or PROCEDURAL"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags; replaces the existing tags"),
		),
	)
}

// Handle processes the spine_classify tool call.
func (t *ClassifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	it, err := t.store.GetSpineItem(id)
	if err != nil {
		return failure("classify "+id, err), nil
	}

	category, lane := it.Category, it.Lane
	if v := req.GetString("category", ""); v != "" {
		c, ok := spine.ParseCategory(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", v)), nil
		}
		category = c
	}
	if v := req.GetString("lane", ""); v != "" {
		l, ok := spine.ParseLane(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown lane %q", v)), nil
		}
		lane = l
	}

	if it, err = t.store.Classify(id, category, lane); err != nil {
		return failure("classify "+id, err), nil
	}
	if _, ok := req.GetArguments()["tags"]; ok {
		if it, err = t.store.SetTags(id, listArg(req, "tags")); err != nil {
			return failure("tag "+id, err), nil
		}
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"%s classified\nCategory: %s\nLane: %s\nTags: %s",
		id, categoryOrOther(it.Category), it.Lane, strings.Join(it.Tags, ", "),
	)), nil
}
