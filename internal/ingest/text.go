package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/casespine/internal/fingerprint"
	"github.com/HendryAvila/casespine/internal/spine"
	"go.uber.org/zap"
)

// Rejection explains why a text document was not ingested.
type Rejection string

const (
	RejectEmpty           Rejection = "Empty"
	RejectDuplicate       Rejection = "Duplicate Content"
	RejectStale           Rejection = "Stale Version"
	RejectInvalidFileType Rejection = "Invalid File Type"
)

// TextConfidence is assigned to single-document ingests.
const TextConfidence = 0.9

// TextDocument is one pasted or uploaded document.
type TextDocument struct {
	Content  string `json:"content"`
	FileName string `json:"fileName,omitempty"`
	// Kind defaults to the file extension, or txt when there is no file name.
	Kind spine.FileKind `json:"kind,omitempty"`
	// LastModified is the document's modification time in epoch milliseconds.
	LastModified *int64 `json:"lastModified,omitempty"`
}

// TextResult is the outcome of ImportText. Exactly one of Item and
// Rejection is set.
type TextResult struct {
	SourceFile *spine.SourceFile `json:"sourceFile,omitempty"`
	Item       *spine.SpineItem  `json:"item,omitempty"`
	Rejection  Rejection         `json:"rejection,omitempty"`
	// Existing is the stored item that caused a duplicate or stale rejection.
	Existing *spine.SpineItem `json:"existing,omitempty"`
}

// ImportText stores doc as a single spine item. Empty documents, unsupported
// file types and content that is already stored are rejected rather than
// returned as errors. Content seen before is rejected as a stale version when
// the incoming copy is older than the stored one.
func (im *Importer) ImportText(ctx context.Context, doc TextDocument) (*TextResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := im.log.With(zap.String("file", doc.FileName))

	kind, ok := resolveKind(doc)
	if !ok {
		log.Info("text rejected", zap.String("reason", string(RejectInvalidFileType)))
		return &TextResult{Rejection: RejectInvalidFileType}, nil
	}
	if strings.TrimSpace(doc.Content) == "" {
		log.Info("text rejected", zap.String("reason", string(RejectEmpty)))
		return &TextResult{Rejection: RejectEmpty}, nil
	}

	incoming := doc.LastModified
	if incoming == nil {
		ms := spine.NowMillis()
		incoming = &ms
	}

	fp := fingerprint.Of(doc.Content)
	existing, err := im.store.SpineItemByFingerprint(fp)
	switch {
	case err == nil:
		reason := RejectDuplicate
		if existing.LastModified != nil && *incoming < *existing.LastModified {
			reason = RejectStale
		}
		log.Info("text rejected", zap.String("reason", string(reason)), zap.String("existing_id", existing.ID))
		return &TextResult{Rejection: reason, Existing: existing}, nil
	case !errors.Is(err, spine.ErrNotFound):
		return nil, err
	}

	sf, err := im.sourceFor(doc, kind)
	if err != nil {
		return nil, err
	}

	typ := spine.TypeText
	if doc.FileName != "" {
		typ = spine.TypeFile
	}
	cat := Categorize(doc.Content)
	item := spine.SpineItem{
		SourceID:        sf.ID,
		ContentOriginal: doc.Content,
		Fingerprint:     fp,
		FileName:        doc.FileName,
		LastModified:    incoming,
		Type:            typ,
		Category:        cat,
		Confidence:      TextConfidence,
		Tags:            []string{string(cat)},
	}
	out, err := im.store.AddSpineItem(&item)
	if err != nil {
		return nil, err
	}
	if out == spine.Duplicate {
		return &TextResult{SourceFile: sf, Rejection: RejectDuplicate}, nil
	}

	log.Info("text ingested", zap.String("id", item.ID), zap.String("category", string(cat)))
	return &TextResult{SourceFile: sf, Item: &item}, nil
}

// sourceFor records provenance for doc, reusing the source row when the same
// bytes were recorded before.
func (im *Importer) sourceFor(doc TextDocument, kind spine.FileKind) (*spine.SourceFile, error) {
	name := doc.FileName
	if name == "" {
		name = "pasted-text"
	}
	sf := spine.NewSourceFile(name, doc.Content, kind, 1)
	out, err := im.store.AddSource(&sf)
	if err != nil {
		return nil, err
	}
	if out == spine.Duplicate {
		return im.store.SourceByHash(sf.FileHash)
	}
	return &sf, nil
}

func resolveKind(doc TextDocument) (spine.FileKind, bool) {
	if doc.Kind != "" {
		return spine.ParseFileKind(string(doc.Kind))
	}
	if doc.FileName == "" {
		return spine.KindTXT, true
	}
	ext := strings.TrimPrefix(filepath.Ext(doc.FileName), ".")
	return spine.ParseFileKind(ext)
}
