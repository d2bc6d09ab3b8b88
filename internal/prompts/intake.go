// Package prompts implements MCP prompt handlers for case work.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// IntakePrompt handles the case-intake MCP prompt.
// It walks the AI through importing a file and triaging the new records.
type IntakePrompt struct{}

// NewIntakePrompt creates an IntakePrompt.
func NewIntakePrompt() *IntakePrompt {
	return &IntakePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *IntakePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("case-intake",
		mcp.WithPromptDescription(
			"Import an evidence file into the case spine and triage what came in: "+
				"check the categories, write neutral summaries and flag records to verify.",
		),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("Path of the CSV export or text document to import"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("schema",
			mcp.ArgumentDescription("CSV layout: 'generic' (evidence log) or 'platform' (messaging-app export). Default: generic"),
		),
	)
}

// Handle processes the case-intake prompt request.
func (p *IntakePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	path := req.Params.Arguments["path"]
	if path == "" {
		return nil, fmt.Errorf("case-intake: 'path' is required")
	}
	schema := req.Params.Arguments["schema"]
	if schema == "" {
		schema = "generic"
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Import and triage %s", path),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please add %q to my case.\n\n"+
						"1. If it is a .csv file run `spine_import_csv` with path=%q and schema=%q; otherwise run `spine_ingest_text` with path=%q\n"+
						"2. Report how many records were imported, skipped as duplicates, or failed, and list every row error\n"+
						"3. Run `spine_search` with unverified_only=true and go through the new records with me one at a time\n"+
						"4. For each record, propose a neutral paraphrase and save it with `spine_neutralize` once I agree\n"+
						"5. Fix the category or lane with `spine_classify` when the automatic one is wrong\n\n"+
						"Never change or paraphrase the original wording in your report. Quote it exactly.",
					path, path, schema, path,
				)),
			},
		},
	}, nil
}
