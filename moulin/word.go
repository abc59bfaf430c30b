package moulin

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractWord reads body paragraphs from a Word document in document
// order, joined with single line breaks. Empty paragraphs are kept — they
// are the blank lines of the output. Tables are skipped, and headers or
// footers live in zip members this never opens. Legacy .doc goes through
// the converter capability first.
func (p *Pipeline) extractWord(ctx context.Context, doc Document) (string, error) {
	path := doc.Path
	if strings.EqualFold(filepath.Ext(doc.Filename), ".doc") {
		if p.cfg.Doc == nil {
			return "", fmt.Errorf("legacy .doc: converter not configured")
		}
		dir, err := os.MkdirTemp("", "moulin-doc-*")
		if err != nil {
			return "", err
		}
		defer os.RemoveAll(dir)

		converted, err := p.cfg.Doc.ToDocx(ctx, doc.Path, dir)
		if err != nil {
			return "", fmt.Errorf("convert .doc: %w", err)
		}
		path = converted
	}
	return docxParagraphs(path)
}

// docxParagraphs parses word/document.xml out of the OOXML archive with a
// streaming token walk: text runs (<w:t>) accumulate into the enclosing
// paragraph, <w:tbl> subtrees are ignored wholesale.
func docxParagraphs(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false
	tableDepth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				if tableDepth == 0 {
					inParagraph = true
					current.Reset()
				}
			case "t":
				inText = inParagraph
			}

		case xml.CharData:
			if inText {
				current.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "p":
				if inParagraph {
					inParagraph = false
					paragraphs = append(paragraphs, current.String())
				}
			case "t":
				inText = false
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}
