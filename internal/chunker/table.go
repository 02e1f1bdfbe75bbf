package chunker

import (
	"strings"

	"docintel/internal/domain"
)

// renderTable renders a table item as a markdown pipe table. Items without a
// payload fall back to the parser's pre-rendered text.
func renderTable(item domain.ContentItem) string {
	t := item.Table
	if t == nil || (len(t.Header) == 0 && len(t.Rows) == 0) {
		return strings.TrimSpace(item.Text)
	}
	width := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > width {
			width = len(r)
		}
	}
	var b strings.Builder
	header := t.Header
	if len(header) == 0 {
		header = make([]string, width)
	}
	writeRow(&b, header, width)
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep, width)
	for _, r := range t.Rows {
		writeRow(&b, r, width)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string, width int) {
	b.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(cells) {
			cell = strings.ReplaceAll(strings.TrimSpace(cells[i]), "|", `\|`)
		}
		b.WriteString(" ")
		b.WriteString(cell)
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
