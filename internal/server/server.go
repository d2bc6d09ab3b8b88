// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it receives the concrete store and importer
// and injects them into the tools, prompts and resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"github.com/HendryAvila/casespine/internal/config"
	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/migrate"
	"github.com/HendryAvila/casespine/internal/prompts"
	"github.com/HendryAvila/casespine/internal/resources"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/HendryAvila/casespine/internal/spinetools"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the MCP server name reported to hosts.
const Name = "casespine"

// Deps holds everything the server hands to its handlers.
type Deps struct {
	Config   *config.Config
	Store    *spine.Store
	Importer *ingest.Importer
	Logger   *zap.Logger
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
func New(d Deps) *server.MCPServer {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Config == nil {
		d.Config = config.Default()
	}

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerImportTools(s, d.Importer)
	registerSpineTools(s, d.Store, d.Config.Search.MaxResults)
	registerCaseTools(s, d)

	// --- Register prompts ---

	intake := prompts.NewIntakePrompt()
	s.AddPrompt(intake.Definition(), intake.Handle)

	review := prompts.NewReviewPrompt()
	s.AddPrompt(review.Definition(), review.Handle)

	// --- Register resources ---

	rh := resources.NewHandler(d.Store)
	s.AddResource(rh.StatsResource(), rh.HandleStats)
	s.AddResource(rh.SourcesResource(), rh.HandleSources)
	s.AddResource(rh.TimelineResource(), rh.HandleTimeline)

	d.Logger.Debug("mcp server configured", zap.String("version", Version), zap.String("db", d.Store.Path()))
	return s
}

func registerImportTools(s *server.MCPServer, im *ingest.Importer) {
	importCSV := spinetools.NewImportCSVTool(im)
	s.AddTool(importCSV.Definition(), importCSV.Handle)

	ingestText := spinetools.NewIngestTextTool(im)
	s.AddTool(ingestText.Definition(), ingestText.Handle)
}

func registerSpineTools(s *server.MCPServer, store *spine.Store, maxResults int) {
	// --- Evidence records ---
	search := spinetools.NewSearchTool(store, maxResults)
	s.AddTool(search.Definition(), search.Handle)

	get := spinetools.NewGetTool(store)
	s.AddTool(get.Definition(), get.Handle)

	neutralize := spinetools.NewNeutralizeTool(store)
	s.AddTool(neutralize.Definition(), neutralize.Handle)

	verify := spinetools.NewVerifyTool(store)
	s.AddTool(verify.Definition(), verify.Handle)

	classify := spinetools.NewClassifyTool(store)
	s.AddTool(classify.Definition(), classify.Handle)

	// --- Timeline ---
	promote := spinetools.NewPromoteTool(store)
	s.AddTool(promote.Definition(), promote.Handle)

	status := spinetools.NewTimelineStatusTool(store)
	s.AddTool(status.Definition(), status.Handle)

	timeline := spinetools.NewTimelineListTool(store)
	s.AddTool(timeline.Definition(), timeline.Handle)

	// --- Sticky notes ---
	noteSave := spinetools.NewNoteSaveTool(store)
	s.AddTool(noteSave.Definition(), noteSave.Handle)

	noteDelete := spinetools.NewNoteDeleteTool(store)
	s.AddTool(noteDelete.Definition(), noteDelete.Handle)

	noteList := spinetools.NewNoteListTool(store)
	s.AddTool(noteList.Definition(), noteList.Handle)
}

func registerCaseTools(s *server.MCPServer, d Deps) {
	export := spinetools.NewExportTool(d.Store, d.Config.Export.IncludePrivate)
	s.AddTool(export.Definition(), export.Handle)

	restore := spinetools.NewRestoreTool(d.Store)
	s.AddTool(restore.Definition(), restore.Handle)

	var legacy migrate.Source
	if d.Config.LegacySnapshot != "" {
		legacy = &migrate.FileSource{Path: d.Config.LegacySnapshot}
	}
	mig := spinetools.NewMigrateTool(d.Store, legacy, d.Logger)
	s.AddTool(mig.Definition(), mig.Handle)

	stats := spinetools.NewStatsTool(d.Store)
	s.AddTool(stats.Definition(), stats.Handle)

	master := spinetools.NewMasterTextTool(d.Store)
	s.AddTool(master.Definition(), master.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use CaseSpine.
func serverInstructions() string {
	return `You have access to CaseSpine, an evidence organizer for people representing themselves in family court.

## WHAT IS STORED

- Sources: one provenance record per imported file (name, SHA-256 of the file, import time).
- Spine items: one evidence record each. The original wording (contentOriginal) and its
  SHA-256 fingerprint can NEVER be changed. A neutral paraphrase is stored separately.
- Timeline events: narrative beats built by promoting one or more spine items.
- Sticky notes: the user's own annotations. They are private by default.

## IMPORTING

- CSV evidence logs and messaging-app exports: spine_import_csv (schema generic or platform).
- Single documents and pasted text: spine_ingest_text.
- Data from the earlier browser builds: case_migrate.
Importing the same file twice is harmless. Rows whose content is already stored are counted
as duplicates and skipped. Always report imported / duplicate / error counts back to the user.

## WORKING WITH RECORDS

1. Use spine_search to find records (keywords, or filters without a query).
2. Use spine_get to read one record in full before describing it.
3. Write neutral paraphrases yourself and save them with spine_neutralize. Remove emotional
   language, keep every fact, never add facts.
4. Mark records verified with spine_verify only after the user confirms the original artifact.
5. Promote related records to the timeline with timeline_promote.

## RULES

- Quote original wording exactly. Never "clean up" an original.
- Never reveal private sticky notes in text meant for the other party or the court.
- case_export leaves private notes out unless the user asks for them.
- Use case_master_text when the user wants one document containing every record.

## RESOURCES

- casespine://case/stats for counts
- casespine://case/sources for imported files
- casespine://case/timeline for the timeline`
}
