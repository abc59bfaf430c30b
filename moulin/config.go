// CLAUDE:SUMMARY Configuration struct, capability interfaces and defaults for the moulin extraction pipeline.
package moulin

import (
	"context"
	"log/slog"
)

// Engine recognizes text in a rasterized page image. The configured
// language spec is passed on every call; implementations must be safe for
// concurrent use across documents.
type Engine interface {
	Recognize(ctx context.Context, imagePath, lang string) (string, error)
}

// Rasterizer renders a single 1-based PDF page to an image file inside
// dir and returns the image path.
type Rasterizer interface {
	Page(ctx context.Context, pdfPath string, page int, dir string) (string, error)
}

// DocConverter converts a legacy .doc file to .docx inside outDir and
// returns the produced path.
type DocConverter interface {
	ToDocx(ctx context.Context, docPath, outDir string) (string, error)
}

// Config configures the extraction pipeline. Capabilities are supplied at
// construction time only; strategies keep no other state between calls.
type Config struct {
	// OCRLang is the tesseract language spec for scanned PDFs, languages
	// joined with '+' (e.g. "vie+eng"). Empty means the engine's default.
	OCRLang string `json:"ocr_lang" yaml:"ocr_lang"`

	// MaxFileSize is the maximum staged file size to process (default: 50 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// OCR recognizes text in rasterized pages. Nil disables the scanned-PDF
	// fallback: such documents fail with a classified extraction error.
	OCR Engine `json:"-" yaml:"-"`

	// Raster renders PDF pages for OCR. Nil disables the fallback like OCR.
	Raster Rasterizer `json:"-" yaml:"-"`

	// Doc converts legacy .doc files. Nil makes .doc uploads fail classified.
	Doc DocConverter `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 50 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
