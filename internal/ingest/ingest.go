// Package ingest turns raw imported text into spine records.
//
// A CSV import is fingerprinted as a whole first. A file that was already
// imported short-circuits to an all-duplicates result. Otherwise the rows are
// parsed, one SourceFile is recorded for provenance, and each data row becomes
// a SpineItem unless its content fingerprint is already stored. Row problems
// are collected in the result; only validation and storage failures abort.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/HendryAvila/casespine/internal/csvparse"
	"github.com/HendryAvila/casespine/internal/fingerprint"
	"github.com/HendryAvila/casespine/internal/spine"
	"go.uber.org/zap"
)

// DefaultYieldEvery is how many rows are processed between cooperative
// yields when Options.YieldEvery is unset.
const DefaultYieldEvery = 200

// Store is the subset of the record store the importer writes to.
type Store interface {
	SourceByHash(hash string) (*spine.SourceFile, error)
	AddSource(sf *spine.SourceFile) (spine.Outcome, error)
	SpineItemByFingerprint(fp string) (*spine.SpineItem, error)
	AddSpineItem(it *spine.SpineItem) (spine.Outcome, error)
}

// Options tunes an Importer.
type Options struct {
	YieldEvery int
}

// Importer runs imports against one store.
type Importer struct {
	store  Store
	parser csvparse.Parser
	log    *zap.Logger
	opts   Options
}

// New creates an Importer. A nil parser selects the best-effort parser and a
// nil logger is replaced with a no-op logger.
func New(store Store, parser csvparse.Parser, logger *zap.Logger, opts Options) *Importer {
	if parser == nil {
		parser = csvparse.BestEffort{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.YieldEvery <= 0 {
		opts.YieldEvery = DefaultYieldEvery
	}
	return &Importer{store: store, parser: parser, log: logger, opts: opts}
}

// ImportResult is the outcome of one import call.
type ImportResult struct {
	SourceFile      *spine.SourceFile `json:"sourceFile"`
	Imported        int               `json:"imported"`
	Duplicates      int               `json:"duplicates"`
	Errors          int               `json:"errors"`
	ErrorMessages   []string          `json:"errorMessages"`
	AlreadyImported bool              `json:"alreadyImported,omitempty"`
}

func (r *ImportResult) rowError(row int, reason string) {
	r.Errors++
	r.ErrorMessages = append(r.ErrorMessages, fmt.Sprintf("Row %d: %s", row, reason))
}

// ValidationError reports input that cannot be imported at all.
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.FileName == "" {
		return "ingest: " + e.Reason
	}
	return fmt.Sprintf("ingest: %s: %s", e.FileName, e.Reason)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// rowMapper builds a spine item from one data row. It returns an empty
// reason on success.
type rowMapper func(row csvparse.Row) (item spine.SpineItem, reason string)

// importCSV runs the shared CSV steps. newMapper receives the header index
// once the header has been read.
func (im *Importer) importCSV(ctx context.Context, content, fileName, schema string, newMapper func(h header) rowMapper) (*ImportResult, error) {
	log := im.log.With(zap.String("file", fileName), zap.String("schema", schema))
	fileHash := fingerprint.Of(content)

	existing, err := im.store.SourceByHash(fileHash)
	switch {
	case err == nil:
		rows := im.parser.Parse(content)
		n := len(rows) - 1
		if n < 0 {
			n = 0
		}
		log.Info("file already imported", zap.String("source_id", existing.ID), zap.Int("rows", n))
		return &ImportResult{
			SourceFile:      existing,
			Duplicates:      n,
			ErrorMessages:   []string{},
			AlreadyImported: true,
		}, nil
	case !errors.Is(err, spine.ErrNotFound):
		return nil, err
	}

	rows := im.parser.Parse(content)
	if len(rows) < 2 {
		return nil, &ValidationError{FileName: fileName, Reason: "CSV must have a header row and at least one data row"}
	}

	sf := spine.NewSourceFile(fileName, content, spine.KindCSV, len(rows)-1)
	if _, err := im.store.AddSource(&sf); err != nil {
		return nil, err
	}

	hdr := newHeader(rows[0])
	mapRow := newMapper(hdr)
	result := &ImportResult{SourceFile: &sf, ErrorMessages: []string{}}

	for i, row := range rows[1:] {
		if i > 0 && i%im.opts.YieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				log.Warn("import cancelled", zap.Int("processed", i), zap.Error(err))
				return result, err
			}
			runtime.Gosched()
		}

		// Row numbers are 1-based and count the header line.
		rowNum := i + 2
		if csvparse.Anomalous(rows[0], row) {
			log.Warn("anomalous field count",
				zap.Int("row", rowNum),
				zap.Int("fields", len(row)),
				zap.Int("header_fields", len(rows[0])),
			)
		}

		item, reason := mapRow(row)
		if reason != "" {
			result.rowError(rowNum, reason)
			continue
		}
		item.SourceID = sf.ID
		item.FileName = fileName

		if err := im.insert(&item, rowNum, result); err != nil {
			return result, err
		}
	}

	log.Info("import complete",
		zap.String("source_id", sf.ID),
		zap.Int("imported", result.Imported),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// insert stores item unless its fingerprint is already known. A row whose
// explicit id is held by different content is a row error, not a duplicate.
func (im *Importer) insert(item *spine.SpineItem, rowNum int, result *ImportResult) error {
	item.Fingerprint = fingerprint.Of(item.ContentOriginal)
	if _, err := im.store.SpineItemByFingerprint(item.Fingerprint); err == nil {
		result.Duplicates++
		return nil
	} else if !errors.Is(err, spine.ErrNotFound) {
		return err
	}
	out, err := im.store.AddSpineItem(item)
	switch {
	case errors.Is(err, spine.ErrInvalid):
		result.rowError(rowNum, err.Error())
		return nil
	case err != nil:
		return err
	case out == spine.Duplicate:
		if _, err := im.store.SpineItemByFingerprint(item.Fingerprint); err == nil {
			result.Duplicates++
			return nil
		} else if !errors.Is(err, spine.ErrNotFound) {
			return err
		}
		result.rowError(rowNum, fmt.Sprintf("id %s already used by different content", item.ID))
	default:
		result.Imported++
	}
	return nil
}
