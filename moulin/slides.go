package moulin

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slideMemberRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractSlides renders a pptx deck as one "## Slide <n>" block per slide,
// in deck order. Shape texts within a slide are joined by single newlines;
// a slide without textual shapes still gets its heading.
func (p *Pipeline) extractSlides(ctx context.Context, doc Document) (string, error) {
	zr, err := zip.OpenReader(doc.Path)
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()

	type member struct {
		n    int
		file *zip.File
	}
	var slides []member
	for _, f := range zr.File {
		m := slideMemberRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, member{n: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	blocks := make([]string, 0, len(slides))
	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", s.file.Name, err)
		}
		shapes, err := slideShapes(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", s.file.Name, err)
		}
		blocks = append(blocks, "## Slide "+strconv.Itoa(i+1)+"\n"+strings.Join(shapes, "\n"))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// slideShapes walks one slide's XML and returns the text of each shape that
// has textual content. Text runs (<a:t>) are grouped per paragraph (<a:p>),
// paragraphs per shape (<p:sp>); shapes whose text trims to nothing are
// skipped. Tables and pictures carry no <p:sp> text body and fall out
// naturally.
func slideShapes(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		shapes  []string
		lines   []string
		para    strings.Builder
		inShape bool
		inBody  bool
		inPara  bool
		inText  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				inShape = true
				lines = lines[:0]
			case "txBody":
				inBody = inShape
			case "p":
				if inBody {
					inPara = true
					para.Reset()
				}
			case "t":
				inText = inPara
			case "br":
				if inPara {
					para.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					lines = append(lines, para.String())
					inPara = false
				}
			case "txBody":
				inBody = false
			case "sp":
				if text := strings.TrimSpace(strings.Join(lines, "\n")); text != "" {
					shapes = append(shapes, text)
				}
				inShape = false
			}
		}
	}
	return shapes, nil
}
