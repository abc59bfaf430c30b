package moulin

import (
	"path/filepath"
	"sort"
	"strings"
)

// extToFormat is the closed extension table. Routing reads this table and
// nothing else — neither content-type nor file contents influence it.
var extToFormat = map[string]Format{
	"pdf":  FormatPDF,
	"doc":  FormatWord,
	"docx": FormatWord,
	"pptx": FormatSlides,
	"xlsx": FormatSheet,
}

// Detect resolves a declared filename to its Format from the final
// extension, case-insensitively. Compound names resolve on the last
// segment only ("report.tar.pdf" is a PDF). The error is always a
// *UnsupportedFormatError carrying the extension as uploaded.
func Detect(filename string) (Format, error) {
	raw := strings.TrimPrefix(filepath.Ext(filename), ".")
	if f, ok := extToFormat[strings.ToLower(raw)]; ok {
		return f, nil
	}
	return "", &UnsupportedFormatError{Ext: raw}
}

// Formats returns the recognized format kinds, sorted.
func Formats() []Format {
	seen := make(map[Format]bool, len(extToFormat))
	out := make([]Format, 0, len(extToFormat))
	for _, f := range extToFormat {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Extensions returns the recognized file extensions, sorted.
func Extensions() []string {
	out := make([]string, 0, len(extToFormat))
	for ext := range extToFormat {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
