// Package resources implements MCP resource handlers for the case database.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (casespine://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	StatsURI    = "casespine://case/stats"
	SourcesURI  = "casespine://case/sources"
	TimelineURI = "casespine://case/timeline"
)

// Handler manages case resource endpoints.
type Handler struct {
	store *spine.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *spine.Store) *Handler {
	return &Handler{store: store}
}

// StatsResource returns the MCP resource definition for case statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Case Statistics",
		mcp.WithResourceDescription("Record counts, verification progress and per-lane and per-category totals"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the case statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := h.store.Stats()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, st)
}

// SourcesResource returns the MCP resource definition for imported files.
func (h *Handler) SourcesResource() mcp.Resource {
	return mcp.NewResource(
		SourcesURI,
		"Imported Sources",
		mcp.WithResourceDescription("Provenance records of every imported file, oldest first"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSources returns every source file record as JSON.
func (h *Handler) HandleSources(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sources, err := h.store.ListSources()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, sources)
}

// TimelineResource returns the MCP resource definition for the timeline.
func (h *Handler) TimelineResource() mcp.Resource {
	return mcp.NewResource(
		TimelineURI,
		"Case Timeline",
		mcp.WithResourceDescription("Timeline events in date order"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleTimeline returns every timeline event as JSON.
func (h *Handler) HandleTimeline(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	events, err := h.store.ListTimelineEvents("")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, events)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
