package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the case-review MCP prompt.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("case-review",
		mcp.WithPromptDescription(
			"Review where the case stands: record counts, what still needs verifying "+
				"and which records are not yet on the timeline.",
		),
	)
}

// Handle processes the case-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Case review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `case_stats` and `timeline_list`.\n\n" +
						"Then:\n" +
						"1. Summarize the case in a short table (sources, records, timeline events, notes)\n" +
						"2. Point out lanes with records but no timeline events\n" +
						"3. List the unverified records I should check against the originals first\n" +
						"4. Suggest groups of records that could be promoted together with `timeline_promote`",
				),
			},
		},
	}, nil
}
