// CaseSpine: evidence organizer for self-represented family court litigants.
//
// Imports message exports, evidence logs and documents into one local
// database, keeps every original wording untouched, and serves the case to
// AI tools over MCP and to browser front ends over a local HTTP API.
//
// Usage:
//
//	casespine serve                      # Start MCP server (stdio transport)
//	casespine http                       # Start the local HTTP API
//	casespine import [flags] <file>      # Import a CSV export or document
//	casespine migrate [flags]            # Migrate data from the browser builds
//	casespine export [flags]             # Write a JSON backup
//	casespine restore [flags] <file>     # Restore a JSON backup
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/HendryAvila/casespine/internal/config"
	"github.com/HendryAvila/casespine/internal/httpapi"
	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/migrate"
	casespineserver "github.com/HendryAvila/casespine/internal/server"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "http":
		err = runHTTP(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("casespine v%s\n", casespineserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	a.migrateAtStartup(ctx)

	s := casespineserver.New(casespineserver.Deps{
		Config:   a.cfg,
		Store:    a.store,
		Importer: a.importer,
		Logger:   a.log,
	})
	return server.ServeStdio(s)
}

func runHTTP(args []string) error {
	fs := flag.NewFlagSet("http", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (default: http.addr from config)")
	_ = fs.Parse(args)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	a.migrateAtStartup(ctx)

	listen := a.cfg.HTTP.Addr
	if *addr != "" {
		listen = *addr
	}
	srv := httpapi.NewServer(a.store, a.importer, a.log, httpapi.Options{IncludePrivate: a.cfg.Export.IncludePrivate})
	return srv.Run(ctx, listen)
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	schema := fs.String("schema", ingest.SchemaGeneric, "CSV layout: generic or platform")
	name := fs.String("name", "", "Provenance file name (default: base name of the file)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: casespine import [--schema=generic|platform] [--name=<label>] <file>")
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fileName := *name
	if fileName == "" {
		fileName = filepath.Base(path)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		info, statErr := os.Stat(path)
		doc := ingest.TextDocument{Content: string(data), FileName: fileName}
		if statErr == nil {
			ms := info.ModTime().UnixMilli()
			doc.LastModified = &ms
		}
		res, err := a.importer.ImportText(ctx, doc)
		if err != nil {
			return err
		}
		if res.Rejection != "" {
			return fmt.Errorf("%s rejected: %s", fileName, res.Rejection)
		}
		fmt.Printf("Stored %s as %s\n", fileName, res.Item.ID)
		return nil
	}

	res, err := a.importer.ImportCSV(ctx, *schema, string(data), fileName)
	if res != nil {
		printImport(fileName, res)
	}
	return err
}

func printImport(fileName string, res *ingest.ImportResult) {
	if res.AlreadyImported {
		fmt.Printf("%s was already imported; %s rows skipped\n", fileName, humanize.Comma(int64(res.Duplicates)))
		return
	}
	fmt.Printf("%s: %s imported, %s duplicates, %s errors\n", fileName,
		humanize.Comma(int64(res.Imported)), humanize.Comma(int64(res.Duplicates)), humanize.Comma(int64(res.Errors)))
	for _, msg := range res.ErrorMessages {
		fmt.Printf("  %s\n", msg)
	}
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	from := fs.String("from", "", "Legacy storage dump (default: legacy_snapshot from config)")
	_ = fs.Parse(args)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	path := a.cfg.LegacySnapshot
	if *from != "" {
		path = *from
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := migrate.Run(ctx, a.store, &migrate.FileSource{Path: path}, a.log)
	if err != nil {
		return err
	}
	fmt.Printf("Migrated %s records, skipped %s\n", humanize.Comma(int64(res.Migrated)), humanize.Comma(int64(res.Skipped)))
	for _, e := range res.Errors {
		fmt.Printf("  %s\n", e)
	}
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default: stdout)")
	private := fs.Bool("include-private", false, "Include private sticky notes")
	master := fs.Bool("master", false, "Write the plain-text master document instead of a JSON backup")
	_ = fs.Parse(args)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w := os.Stdout
	if *out != "" {
		f, err := os.OpenFile(*out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if *master {
		text, err := a.store.MasterText()
		if err != nil {
			return err
		}
		_, err = w.WriteString(text)
		return err
	}

	snap, err := a.store.Export(spine.ExportOptions{IncludePrivate: *private || a.cfg.Export.IncludePrivate})
	if err != nil {
		return err
	}
	return snap.WriteJSON(w)
}

func runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	modeFlag := fs.String("mode", "merge", "merge or replace")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: casespine restore [--mode=merge|replace] <backup.json>")
	}
	mode, err := spine.ParseRestoreMode(*modeFlag)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	snap, err := spine.DecodeSnapshot(data)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.store.Restore(snap, mode)
	if err != nil {
		return err
	}
	fmt.Printf("Restore (%s)\n", res.Mode)
	for _, row := range []struct {
		name string
		tc   spine.TableCounts
	}{
		{"sources", res.Sources}, {"spine", res.Spine}, {"timeline", res.Timeline}, {"sticky notes", res.StickyNotes},
	} {
		fmt.Printf("  %-13s %s imported, %s skipped\n", row.name, humanize.Comma(int64(row.tc.Imported)), humanize.Comma(int64(row.tc.Skipped)))
	}
	for _, e := range res.Errors {
		fmt.Printf("  %s\n", e)
	}
	return nil
}

// app bundles the dependencies every subcommand opens.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *spine.Store
	importer *ingest.Importer
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing record store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// migrateAtStartup upgrades legacy browser data before serving. Failures are
// logged and never stop the server.
func (a *app) migrateAtStartup(ctx context.Context) {
	res, err := migrate.Run(ctx, a.store, &migrate.FileSource{Path: a.cfg.LegacySnapshot}, a.log)
	if err != nil {
		a.log.Warn("legacy migration failed", zap.Error(err))
		return
	}
	if res.Migrated > 0 {
		a.log.Info("legacy data migrated", zap.Int("migrated", res.Migrated), zap.Int("skipped", res.Skipped))
	}
}
