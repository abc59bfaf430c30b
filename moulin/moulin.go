// CLAUDE:SUMMARY Extraction dispatcher: extension routing, per-format strategies, single normalization point.
// Package moulin converts staged documents into normalized Markdown.
//
// Supported formats:
//   - .pdf         — native text via pdfcpu; whole-document OCR fallback for scans
//   - .doc, .docx  — Word body paragraphs (legacy .doc converted first)
//   - .pptx        — slides as "## Slide <n>" blocks
//   - .xlsx        — sheets as "## Sheet: <name>" Markdown tables
//
// Usage:
//
//	pipe := moulin.New(moulin.Config{
//		OCRLang: "vie+eng",
//		OCR:     ocr.NewTesseract(),
//		Raster:  raster.NewPoppler(0),
//		Doc:     soffice.NewConverter(""),
//	})
//	md, err := pipe.Extract(ctx, moulin.Document{Path: staged, Filename: "report.pdf"})
package moulin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

type extractFunc func(ctx context.Context, doc Document) (string, error)

// Pipeline is the document extraction engine.
type Pipeline struct {
	cfg        Config
	logger     *slog.Logger
	strategies map[Format]extractFunc
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	p := &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
	// One stateless strategy per format. Completeness over Formats() is a
	// construction invariant, never re-checked at dispatch time.
	p.strategies = map[Format]extractFunc{
		FormatPDF:    p.extractPDF,
		FormatWord:   p.extractWord,
		FormatSlides: p.extractSlides,
		FormatSheet:  p.extractSheet,
	}
	return p
}

// Extract converts one staged document to normalized Markdown. An empty
// string with a nil error is a valid outcome (blank pages, unreadable
// scans). Failures are classified: ErrUnsupportedFormat before any file
// access, ErrExtraction for everything after. No partial text is ever
// returned alongside an error.
func (p *Pipeline) Extract(ctx context.Context, doc Document) (string, error) {
	format, err := Detect(doc.Filename)
	if err != nil {
		return "", err
	}
	extract := p.strategies[format]

	info, err := os.Stat(doc.Path)
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %w", ErrExtraction, doc.Path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return "", fmt.Errorf("%w: file too large: %d bytes (max %d)", ErrExtraction, info.Size(), p.cfg.MaxFileSize)
	}

	p.logger.Debug("extracting document", "filename", doc.Filename, "format", format, "size", info.Size())

	raw, err := extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("%w: %s (%s): %w", ErrExtraction, doc.Filename, format, err)
	}

	// The single normalization point: every strategy's raw output passes
	// through here and nowhere else.
	return Normalize(raw), nil
}

// Detect reports the format Extract would route a filename to.
func (p *Pipeline) Detect(filename string) (Format, error) {
	return Detect(filename)
}
