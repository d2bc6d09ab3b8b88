package spinetools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/mark3labs/mcp-go/mcp"
)

// ImportCSVTool handles the spine_import_csv MCP tool.
type ImportCSVTool struct {
	importer *ingest.Importer
}

// NewImportCSVTool creates an ImportCSVTool.
func NewImportCSVTool(importer *ingest.Importer) *ImportCSVTool {
	return &ImportCSVTool{importer: importer}
}

// Definition returns the MCP tool definition for spine_import_csv.
func (t *ImportCSVTool) Definition() mcp.Tool {
	return mcp.NewTool("spine_import_csv",
		mcp.WithDescription(
			"Import a CSV evidence log or messaging-app export into the case spine. "+
				"Each row becomes one evidence record. Rows whose content is already stored are skipped as duplicates, "+
				"and re-importing the same file is a no-op.",
		),
		mcp.WithString("path",
			mcp.Description("Path to the CSV file. Either path or content is required."),
		),
		mcp.WithString("content",
			mcp.Description("Raw CSV text, used when no path is given"),
		),
		mcp.WithString("file_name",
			mcp.Description("Provenance label for the import (default: base name of path)"),
		),
		mcp.WithString("schema",
			mcp.Description("generic (event_id, date, event_type, description, ...) or platform (timestamp, sender, recipient, message, call_log). Default: generic"),
		),
	)
}

// Handle processes the spine_import_csv tool call.
func (t *ImportCSVTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, fileName, errResult := readInput(req)
	if errResult != nil {
		return errResult, nil
	}

	res, err := t.importer.ImportCSV(ctx, req.GetString("schema", ingest.SchemaGeneric), content, fileName)
	if err != nil && res == nil {
		return failure("import failed", err), nil
	}

	var b strings.Builder
	if res.AlreadyImported {
		fmt.Fprintf(&b, "File already imported as %s. All %s records skipped as duplicates.\n", res.SourceFile.ID, count(res.Duplicates))
		return mcp.NewToolResultText(b.String()), nil
	}

	fmt.Fprintf(&b, "## Import: %s\n\n", fileName)
	fmt.Fprintf(&b, "- **Source**: %s\n", res.SourceFile.ID)
	fmt.Fprintf(&b, "- **Imported**: %s\n", count(res.Imported))
	fmt.Fprintf(&b, "- **Duplicates**: %s\n", count(res.Duplicates))
	fmt.Fprintf(&b, "- **Errors**: %s\n", count(res.Errors))
	if len(res.ErrorMessages) > 0 {
		b.WriteString("\n### Row errors\n\n")
		for _, msg := range res.ErrorMessages {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
	}
	if err != nil {
		// Partial import: rows before the failure are kept.
		fmt.Fprintf(&b, "\n**Import stopped early**: %v\n", err)
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

// readInput resolves the path/content/file_name triple shared by import tools.
func readInput(req mcp.CallToolRequest) (content, fileName string, errResult *mcp.CallToolResult) {
	path := req.GetString("path", "")
	content = req.GetString("content", "")
	fileName = req.GetString("file_name", "")

	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", path, err))
		}
		content = string(data)
		if fileName == "" {
			fileName = filepath.Base(path)
		}
	case content == "":
		return "", "", mcp.NewToolResultError("either 'path' or 'content' is required")
	}
	return content, fileName, nil
}

// ─── IngestTextTool ─────────────────────────────────────────────────────────

// IngestTextTool handles the spine_ingest_text MCP tool.
type IngestTextTool struct {
	importer *ingest.Importer
}

// NewIngestTextTool creates an IngestTextTool.
func NewIngestTextTool(importer *ingest.Importer) *IngestTextTool {
	return &IngestTextTool{importer: importer}
}

// Definition returns the MCP tool definition for spine_ingest_text.
func (t *IngestTextTool) Definition() mcp.Tool {
	return mcp.NewTool("spine_ingest_text",
		mcp.WithDescription(
			"Store one document (pasted text, or text extracted from a file) as a single evidence record. "+
				"Empty documents, unsupported file types, already stored content and older copies of stored content are rejected.",
		),
		mcp.WithString("path",
			mcp.Description("Path to a .txt, .pdf (extracted text), .docx, .csv, .json or .msg file"),
		),
		mcp.WithString("content",
			mcp.Description("Document text, used when no path is given"),
		),
		mcp.WithString("file_name",
			mcp.Description("Original file name; omit for pasted text"),
		),
		mcp.WithNumber("last_modified",
			mcp.Description("Modification time of the document in epoch milliseconds (default: file mtime or now)"),
		),
	)
}

// Handle processes the spine_ingest_text tool call.
func (t *IngestTextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := ingest.TextDocument{
		Content:  req.GetString("content", ""),
		FileName: req.GetString("file_name", ""),
	}
	if path := req.GetString("path", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", path, err)), nil
		}
		doc.Content = string(data)
		if doc.FileName == "" {
			doc.FileName = filepath.Base(path)
		}
		if info, err := os.Stat(path); err == nil {
			ms := info.ModTime().UnixMilli()
			doc.LastModified = &ms
		}
	}
	if v, ok := req.GetArguments()["last_modified"].(float64); ok {
		ms := int64(v)
		doc.LastModified = &ms
	}

	res, err := t.importer.ImportText(ctx, doc)
	if err != nil {
		return failure("ingest failed", err), nil
	}

	name := doc.FileName
	if name == "" {
		name = "pasted text"
	}
	if res.Rejection != "" {
		msg := fmt.Sprintf("Rejected %s: %s", name, res.Rejection)
		if res.Existing != nil {
			msg += fmt.Sprintf(" (matches %s)", res.Existing.ID)
		}
		return mcp.NewToolResultError(msg), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Ingested %s as %s\nCategory: %s\nFingerprint: %s",
		name, res.Item.ID, categoryOrOther(res.Item.Category), res.Item.Fingerprint,
	)), nil
}

func categoryOrOther(c spine.Category) spine.Category {
	if c == "" {
		return spine.CategoryOther
	}
	return c
}
