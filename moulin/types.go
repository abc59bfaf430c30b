package moulin

import (
	"errors"
	"fmt"
)

// Format identifies a supported document family.
type Format string

const (
	FormatPDF    Format = "pdf"    // native or scanned PDF
	FormatWord   Format = "word"   // .doc / .docx
	FormatSlides Format = "slides" // .pptx
	FormatSheet  Format = "sheet"  // .xlsx
)

// Document is one staged upload: a local path to the raw bytes plus the
// caller-declared metadata. Dispatch reads Filename only; ContentType is
// carried for the caller's benefit and never inspected.
type Document struct {
	Path        string
	Filename    string
	ContentType string
}

// Sentinel errors, matched with errors.Is at the service boundary so the
// two failure kinds map to distinct client responses.
var (
	// ErrUnsupportedFormat marks filenames whose extension resolves to no
	// known format. Not retryable; reject the request outright.
	ErrUnsupportedFormat = errors.New("moulin: unsupported format")

	// ErrExtraction marks documents that resolved to a format but could not
	// be converted: corrupt input, a missing backend, or a failed OCR run.
	ErrExtraction = errors.New("moulin: extraction failed")
)

// UnsupportedFormatError carries the raw extension as uploaded (original
// casing, no dot; empty when the filename has no extension).
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %q", e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }
