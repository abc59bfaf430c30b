// Package raster renders PDF pages to images with poppler's pdftoppm.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/hazyhaar/moulinette/idgen"
)

// DefaultDPI is the render resolution used when none is configured.
// 300 keeps small print legible for OCR without ballooning image size.
const DefaultDPI = 300

// Poppler shells out to pdftoppm, one page per call.
type Poppler struct {
	dpi int
	id  idgen.Generator
}

// NewPoppler creates a Poppler rasterizer. dpi <= 0 selects DefaultDPI.
func NewPoppler(dpi int) *Poppler {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Poppler{dpi: dpi, id: idgen.Prefixed("pg-", idgen.NanoID(8))}
}

// Page renders one 1-based page of pdfPath into dir and returns the PNG
// path. The output prefix is unique per call, so concurrent renders into
// a shared directory cannot collide.
func (p *Poppler) Page(ctx context.Context, pdfPath string, page int, dir string) (string, error) {
	prefix := filepath.Join(dir, p.id())

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-png",
		"-r", strconv.Itoa(p.dpi),
		pdfPath,
		prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, bytes.TrimSpace(out))
	}

	// pdftoppm appends -<page number> with document-width zero padding;
	// glob instead of reconstructing the padding.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("pdftoppm page %d: expected one output image, found %d", page, len(matches))
	}
	return matches[0], nil
}
