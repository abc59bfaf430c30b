// CLAUDE:SUMMARY Spreadsheet strategy: xlsx workbook walk, one Markdown pipe table per sheet.
package moulin

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// extractSheet renders an xlsx workbook as one "## Sheet: <name>" block per
// sheet, in workbook order. The first row of each sheet becomes the table
// header; a sheet with no rows gets an "*(empty sheet)*" placeholder.
func (p *Pipeline) extractSheet(ctx context.Context, doc Document) (string, error) {
	zr, err := zip.OpenReader(doc.Path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		members[f.Name] = f
	}

	sheets, err := workbookSheets(members)
	if err != nil {
		return "", err
	}
	shared, err := sharedStrings(members)
	if err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(sheets))
	for _, sh := range sheets {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f, ok := members[sh.target]
		if !ok {
			return "", fmt.Errorf("worksheet %q: missing archive member %s", sh.name, sh.target)
		}
		rows, err := worksheetRows(f, shared)
		if err != nil {
			return "", fmt.Errorf("worksheet %q: %w", sh.name, err)
		}
		blocks = append(blocks, sheetTable(sh.name, rows))
	}
	return strings.Join(blocks, "\n\n"), nil
}

type workbookSheet struct {
	name   string
	target string // archive member path of the worksheet XML
}

// workbookSheets returns the workbook's sheets in workbook order, resolving
// each sheet's relationship ID to its worksheet member via workbook.xml.rels.
func workbookSheets(members map[string]*zip.File) ([]workbookSheet, error) {
	var wb struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
			RID  string `xml:"id,attr"`
		} `xml:"sheets>sheet"`
	}
	if err := decodeMember(members, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}

	var rels struct {
		Rels []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := decodeMember(members, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		// Targets are relative to xl/ unless package-absolute.
		if t, ok := strings.CutPrefix(rel.Target, "/"); ok {
			targets[rel.ID] = t
		} else {
			targets[rel.ID] = path.Join("xl", rel.Target)
		}
	}

	sheets := make([]workbookSheet, 0, len(wb.Sheets))
	for _, sh := range wb.Sheets {
		target, ok := targets[sh.RID]
		if !ok {
			return nil, fmt.Errorf("workbook sheet %q: no relationship %s", sh.Name, sh.RID)
		}
		sheets = append(sheets, workbookSheet{name: sh.Name, target: target})
	}
	return sheets, nil
}

// sharedStrings loads xl/sharedStrings.xml. The member is optional: workbooks
// without string cells ship without it.
func sharedStrings(members map[string]*zip.File) ([]string, error) {
	if _, ok := members["xl/sharedStrings.xml"]; !ok {
		return nil, nil
	}
	var sst struct {
		Items []struct {
			Text string   `xml:"t"`
			Runs []string `xml:"r>t"`
		} `xml:"si"`
	}
	if err := decodeMember(members, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	out := make([]string, len(sst.Items))
	for i, it := range sst.Items {
		if len(it.Runs) > 0 {
			out[i] = strings.Join(it.Runs, "")
		} else {
			out[i] = it.Text
		}
	}
	return out, nil
}

func decodeMember(members map[string]*zip.File, name string, v any) error {
	f, ok := members[name]
	if !ok {
		return fmt.Errorf("missing archive member %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// worksheetRows reads one worksheet's cells into dense rows. Cell column
// positions honor the cell reference attribute, so sparse rows keep their
// gaps; rows with no cells at all are dropped.
func worksheetRows(f *zip.File, shared []string) ([][]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var ws struct {
		Rows []struct {
			Cells []xlsxCell `xml:"c"`
		} `xml:"sheetData>row"`
	}
	if err := xml.NewDecoder(rc).Decode(&ws); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(ws.Rows))
	for _, r := range ws.Rows {
		if len(r.Cells) == 0 {
			continue
		}
		row := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells {
			col := columnIndex(c.Ref)
			if col < 0 {
				col = len(row)
			}
			for len(row) <= col {
				row = append(row, "")
			}
			v, err := c.value(shared)
			if err != nil {
				return nil, err
			}
			row[col] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type xlsxCell struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	Value  string   `xml:"v"`
	Inline string   `xml:"is>t"`
	Runs   []string `xml:"is>r>t"`
}

func (c xlsxCell) value(shared []string) (string, error) {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(c.Value)
		if err != nil || idx < 0 || idx >= len(shared) {
			return "", fmt.Errorf("cell %s: shared string index %q out of range", c.Ref, c.Value)
		}
		return shared[idx], nil
	case "b":
		if c.Value == "1" {
			return "TRUE", nil
		}
		return "FALSE", nil
	case "inlineStr":
		if len(c.Runs) > 0 {
			return strings.Join(c.Runs, ""), nil
		}
		return c.Inline, nil
	default:
		// "n", "str", "e" and untyped cells carry their value verbatim.
		return c.Value, nil
	}
}

// columnIndex converts the letter prefix of a cell reference ("C12") to a
// zero-based column ("C" -> 2). References without letters yield -1.
func columnIndex(ref string) int {
	n := 0
	for i := 0; i < len(ref); i++ {
		ch := ref[i]
		if ch < 'A' || ch > 'Z' {
			break
		}
		n = n*26 + int(ch-'A') + 1
	}
	return n - 1
}

// sheetTable renders one sheet as a heading plus a Markdown pipe table whose
// header is the sheet's first row. Body rows are padded to the header width;
// rows wider than the header keep their extra cells.
func sheetTable(name string, rows [][]string) string {
	if len(rows) == 0 {
		return "## Sheet: " + name + "\n*(empty sheet)*"
	}
	width := len(rows[0])
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, tableRow(rows[0], width))
	lines = append(lines, "|"+strings.Repeat(" --- |", width))
	for _, row := range rows[1:] {
		lines = append(lines, tableRow(row, width))
	}
	return "## Sheet: " + name + "\n\n" + strings.Join(lines, "\n")
}

var tableCellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")

func tableRow(row []string, width int) string {
	cells := make([]string, 0, width)
	for i := 0; i < len(row) || i < width; i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		cells = append(cells, tableCellEscaper.Replace(cell))
	}
	return "| " + strings.Join(cells, " | ") + " |"
}
