package main

import (
	"fmt"
	"os"

	"github.com/HendryAvila/casespine/internal/config"
	"github.com/HendryAvila/casespine/internal/csvparse"
	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/logging"
	casespineserver "github.com/HendryAvila/casespine/internal/server"
	"github.com/HendryAvila/casespine/internal/spine"
)

// openApp loads the config, builds the logger and opens the record store.
func openApp() (*app, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := spine.New(spine.Config{
		DataDir:          cfg.DataDir,
		MaxSearchResults: cfg.Search.MaxResults,
	}, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("opening case database: %w", err)
	}

	importer := ingest.New(store, csvparse.ByName(cfg.Import.Parser), logger, ingest.Options{YieldEvery: cfg.Import.YieldEvery})
	return &app{cfg: cfg, log: logger, store: store, importer: importer}, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `CaseSpine v%s - evidence organizer for family court

Usage:
  casespine serve                         Start the MCP server (stdio transport)
  casespine http [--addr=host:port]       Start the local HTTP API
  casespine import [flags] <file>         Import a CSV export or a document
      --schema=generic|platform           CSV layout (default: generic)
      --name=<label>                      Provenance file name
  casespine migrate [--from=<dump.json>]  Migrate data from the browser builds
  casespine export [flags]                Write a JSON backup to stdout
      -o <file>                           Write to a file instead
      --include-private                   Include private sticky notes
      --master                            Write the plain-text master document
  casespine restore [--mode=merge|replace] <backup.json>
  casespine version                       Print the version

Configuration:
  %s (override with %s)

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "casespine": {
        "command": "casespine",
        "args": ["serve"]
      }
    }
  }
`, casespineserver.Version, config.Path(), config.EnvPath)
}
