package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// tableData is a table extracted from a chapter.
type tableData struct {
	rows      [][]tableCell
	hasHeader bool
}

// tableCell is one cell of an extracted table.
type tableCell struct {
	text     string
	isHeader bool
}

// parseTable extracts rows from a table element, honouring thead/tbody
// sections and bare tr children.
func (d *Document) parseTable(tableNode *html.Node) *tableData {
	t := &tableData{}

	for c := tableNode.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "thead":
			t.hasHeader = true
			d.parseTableRows(c, t, true)
		case "tbody":
			d.parseTableRows(c, t, false)
		case "tr":
			if row := d.parseTableRow(c, false); len(row) > 0 {
				t.rows = append(t.rows, row)
			}
		}
	}

	// A leading row of th cells counts as a header even without thead.
	if !t.hasHeader && len(t.rows) > 0 {
		for _, cell := range t.rows[0] {
			if cell.isHeader {
				t.hasHeader = true
				break
			}
		}
	}

	return t
}

// parseTableRows collects the rows of a thead or tbody section.
func (d *Document) parseTableRows(section *html.Node, t *tableData, isHeader bool) {
	for c := section.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "tr" {
			if row := d.parseTableRow(c, isHeader); len(row) > 0 {
				t.rows = append(t.rows, row)
			}
		}
	}
}

// parseTableRow collects the cells of a single tr element.
func (d *Document) parseTableRow(tr *html.Node, isHeader bool) []tableCell {
	var row []tableCell
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			row = append(row, tableCell{
				text:     collapseSpace(d.inlineText(c)),
				isHeader: isHeader || c.Data == "th",
			})
		}
	}
	return row
}

// markdown renders the table as a pipe table. The first row supplies the
// header line; when the source table had no header the first data row is
// promoted, which keeps the output well-formed.
func (t *tableData) markdown() string {
	if len(t.rows) == 0 {
		return ""
	}

	var b strings.Builder

	writeRow := func(row []tableCell) {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(" ")
			b.WriteString(escapePipes(cell.text))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(t.rows[0])
	b.WriteString("|")
	for range t.rows[0] {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for _, row := range t.rows[1:] {
		writeRow(row)
	}

	return strings.TrimRight(b.String(), "\n")
}

// escapePipes protects cell text containing characters that would break a
// pipe table.
func escapePipes(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "|", "\\|")
}
