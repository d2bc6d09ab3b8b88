package spinetools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/mark3labs/mcp-go/mcp"
)

// PromoteTool handles the timeline_promote MCP tool.
type PromoteTool struct {
	store *spine.Store
}

// NewPromoteTool creates a PromoteTool.
func NewPromoteTool(store *spine.Store) *PromoteTool {
	return &PromoteTool{store: store}
}

// Definition returns the MCP tool definition for timeline_promote.
func (t *PromoteTool) Definition() mcp.Tool {
	return mcp.NewTool("timeline_promote",
		mcp.WithDescription(
			"Promote one or more evidence records to a timeline event. "+
				"The event is dated at the earliest selected record and links back to every record.",
		),
		mcp.WithString("spine_ids",
			mcp.Required(),
			mcp.Description("Comma-separated spine item ids"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short event title"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("lane",
			mcp.Description("CUSTODY, FINANCIAL, SAFETY or PROCEDURAL (default: lane of the first record)"),
		),
		mcp.WithString("status",
			mcp.Description("asserted, denied, withdrawn, pending, resolved or fact (default: asserted)"),
		),
	)
}

// Handle processes the timeline_promote tool call.
func (t *PromoteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := spine.PromoteParams{
		SpineIDs:    listArg(req, "spine_ids"),
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
	}
	if v := req.GetString("lane", ""); v != "" {
		lane, ok := spine.ParseLane(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown lane %q", v)), nil
		}
		p.Lane = lane
	}
	if v := req.GetString("status", ""); v != "" {
		st, ok := spine.ParseEventStatus(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", v)), nil
		}
		p.Status = st
	}

	ev, err := t.store.Promote(p)
	if err != nil {
		return failure("promote", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Timeline event created\nID: %s\nDate: %s\nLane: %s\nStatus: %s\nLinked records: %s",
		ev.ID, ev.Date, ev.Lane, ev.Status, strings.Join(ev.SpineRefs, ", "),
	)), nil
}

// ─── TimelineStatusTool ─────────────────────────────────────────────────────

// TimelineStatusTool handles the timeline_status MCP tool.
type TimelineStatusTool struct {
	store *spine.Store
}

// NewTimelineStatusTool creates a TimelineStatusTool.
func NewTimelineStatusTool(store *spine.Store) *TimelineStatusTool {
	return &TimelineStatusTool{store: store}
}

// Definition returns the MCP tool definition for timeline_status.
func (t *TimelineStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("timeline_status",
		mcp.WithDescription("Change the assertion status of a timeline event."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Timeline event id"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("asserted, denied, withdrawn, pending, resolved or fact"),
		),
	)
}

// Handle processes the timeline_status tool call.
func (t *TimelineStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	ev, err := t.store.SetTimelineStatus(id, spine.EventStatus(strings.ToLower(req.GetString("status", ""))))
	if err != nil {
		return failure("set status of "+id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is now %s", ev.ID, ev.Status)), nil
}

// ─── TimelineListTool ───────────────────────────────────────────────────────

// TimelineListTool handles the timeline_list MCP tool.
type TimelineListTool struct {
	store *spine.Store
}

// NewTimelineListTool creates a TimelineListTool.
func NewTimelineListTool(store *spine.Store) *TimelineListTool {
	return &TimelineListTool{store: store}
}

// Definition returns the MCP tool definition for timeline_list.
func (t *TimelineListTool) Definition() mcp.Tool {
	return mcp.NewTool("timeline_list",
		mcp.WithDescription("List timeline events in date order."),
		mcp.WithString("lane",
			mcp.Description("Only events in this lane"),
		),
	)
}

// Handle processes the timeline_list tool call.
func (t *TimelineListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lane spine.Lane
	if v := req.GetString("lane", ""); v != "" {
		l, ok := spine.ParseLane(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown lane %q", v)), nil
		}
		lane = l
	}

	events, err := t.store.ListTimelineEvents(lane)
	if err != nil {
		return failure("list timeline", err), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("The timeline is empty."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Timeline (%s events)\n\n", count(len(events)))
	for _, ev := range events {
		fmt.Fprintf(&b, "- **%s** %s [%s, %s] (%s)\n", ev.Date, ev.Title, ev.Lane, ev.Status, ev.ID)
		if ev.Description != "" {
			fmt.Fprintf(&b, "  %s\n", preview(ev.Description, 200))
		}
		fmt.Fprintf(&b, "  Records: %s\n", strings.Join(ev.SpineRefs, ", "))
	}
	return mcp.NewToolResultText(b.String()), nil
}
