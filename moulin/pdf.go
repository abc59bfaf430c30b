// CLAUDE:SUMMARY PDF strategy: pdfcpu native text first, whole-document rasterize+OCR fallback for scans.
// CLAUDE:DEPENDS moulin/config.go
package moulin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pageBreak separates page texts in the joined output, native and OCR alike.
const pageBreak = "\n\n--- Page Break ---\n\n"

// extractPDF reads native text from every page; only when the whole
// document yields nothing does it fall back to rasterize+OCR. "No
// extractable text" is an empty result, not an error — errors mean the
// file is structurally unreadable or a backend failed.
//
// The fallback decision is deliberately whole-document: if any page has a
// text layer, OCR never runs, even when other pages are pure images whose
// content is then lost. Kept as-is; per-page fallback is a separate design.
func (p *Pipeline) extractPDF(ctx context.Context, doc Document) (string, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pdf, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var parts []string
	for pageNr := 1; pageNr <= pdf.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if text := strings.TrimSpace(pageText(pdf, pageNr)); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) > 0 {
		p.logger.Debug("pdf has native text layer", "filename", doc.Filename, "pages", pdf.PageCount)
		return strings.Join(parts, pageBreak), nil
	}

	p.logger.Debug("pdf has no text layer, falling back to ocr",
		"filename", doc.Filename, "pages", pdf.PageCount, "image_streams", hasImageStreams(pdf))
	return p.ocrPDF(ctx, doc, pdf.PageCount)
}

// ocrPDF rasterizes and recognizes every page in order. Page images live in
// a per-call temp directory removed on all paths, so a cancelled context
// leaves nothing behind.
func (p *Pipeline) ocrPDF(ctx context.Context, doc Document, pageCount int) (string, error) {
	if p.cfg.Raster == nil || p.cfg.OCR == nil {
		return "", fmt.Errorf("scanned pdf: ocr backend not configured")
	}

	dir, err := os.MkdirTemp("", "moulin-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	parts := make([]string, 0, pageCount)
	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := p.cfg.Raster.Page(ctx, doc.Path, pageNr, dir)
		if err != nil {
			return "", fmt.Errorf("rasterize page %d: %w", pageNr, err)
		}
		text, err := p.cfg.OCR.Recognize(ctx, img, p.cfg.OCRLang)
		if err != nil {
			return "", fmt.Errorf("ocr page %d: %w", pageNr, err)
		}
		parts = append(parts, strings.TrimSpace(text))
		os.Remove(img) // each page image is read once
	}
	return strings.Join(parts, pageBreak), nil
}

// pageText extracts text from one page's content stream. Page-level read
// errors count as an empty page: the document-level read already
// established the file is structurally sound.
func pageText(pdf *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdf, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromStream(data)
}

// hasImageStreams reports whether any page carries image XObjects. Debug
// signal only; the fallback decision looks at extracted text, not images.
func hasImageStreams(pdf *model.Context) bool {
	if pdf.Optimize == nil {
		return false
	}
	for pageNr := 1; pageNr <= pdf.PageCount; pageNr++ {
		if len(pdfcpu.ImageObjNrs(pdf, pageNr)) > 0 {
			return true
		}
	}
	return false
}

// literalRe matches PDF string literals in parentheses: (text here)
var literalRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromStream walks content stream operators and collects shown text.
// Tj/TJ show text in place, ' shows on the next line, Td/TD/T* move the
// text cursor and become a space or line break.
func textFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range literalRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodeLiteral(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range literalRe.FindAllSubmatch(line, -1) {
				if text := decodeLiteral(m[1]); text != "" {
					sb.WriteByte('\n')
					sb.WriteString(text)
				}
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return tidyStreamText(sb.String())
}

// decodeLiteral resolves PDF string escapes, including octal (\040).
func decodeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// tidyStreamText collapses runs of horizontal whitespace and drops
// non-printable runes, keeping line breaks so downstream bullet handling
// still sees line starts.
func tidyStreamText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteByte('\n')
			prevSpace = true
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
