package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	if r == nil || len(r.Messages) == 0 {
		t.Fatal("expected at least one message")
	}
	tc, ok := r.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", r.Messages[0].Content)
	}
	return tc.Text
}

func TestIntakePrompt(t *testing.T) {
	p := NewIntakePrompt()
	if p.Definition().Name != "case-intake" {
		t.Errorf("Name = %q", p.Definition().Name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"path": "/tmp/export.csv", "schema": "platform"}
	r, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, r)
	for _, want := range []string{"spine_import_csv", `schema="platform"`, "/tmp/export.csv"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in prompt: %s", want, text)
		}
	}
}

func TestIntakePrompt_RequiresPath(t *testing.T) {
	if _, err := NewIntakePrompt().Handle(context.Background(), mcp.GetPromptRequest{}); err == nil {
		t.Error("expected error without path")
	}
}

func TestReviewPrompt(t *testing.T) {
	p := NewReviewPrompt()
	if p.Definition().Name != "case-review" {
		t.Errorf("Name = %q", p.Definition().Name)
	}
	r, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(promptText(t, r), "case_stats") {
		t.Error("review prompt should run case_stats")
	}
}
