// Package soffice converts legacy Word documents through LibreOffice in
// headless mode.
package soffice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Converter shells out to the LibreOffice binary.
type Converter struct {
	bin string
}

// NewConverter creates a Converter. bin overrides the binary name; empty
// resolves "soffice" from PATH.
func NewConverter(bin string) *Converter {
	if bin == "" {
		bin = "soffice"
	}
	return &Converter{bin: bin}
}

// ToDocx converts docPath into outDir and returns the produced .docx
// path. LibreOffice names its output after the input's base name; a run
// that exits zero without producing that file still fails.
func (c *Converter) ToDocx(ctx context.Context, docPath, outDir string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin,
		"--headless",
		"--convert-to", "docx",
		"--outdir", outDir,
		docPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s convert: %w (%s)", c.bin, err, bytes.TrimSpace(out))
	}

	base := docPath[:len(docPath)-len(filepath.Ext(docPath))]
	produced := filepath.Join(outDir, filepath.Base(base)+".docx")
	if _, err := os.Stat(produced); err != nil {
		return "", fmt.Errorf("%s convert: expected output %s: %w", c.bin, produced, err)
	}
	return produced, nil
}
