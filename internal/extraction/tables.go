package extraction

import (
	"strings"

	"docintel/internal/domain"
)

// Table is a structured table found in a document.
type Table struct {
	Page int                 `yaml:"page" json:"page"`
	Rows []map[string]string `yaml:"data" json:"data"`
}

// Tables returns every table item that carries structured rows, in
// document order.
func Tables(items []domain.ContentItem) []Table {
	out := []Table{}
	for _, it := range items {
		if it.Kind != domain.KindTable || it.Table == nil {
			continue
		}
		out = append(out, Table{Page: it.Page(), Rows: it.Table.Records()})
	}
	return out
}

// FullText joins the text of every item, one per line. Table items
// contribute their header and rows.
func FullText(items []domain.ContentItem) string {
	var b strings.Builder
	for _, it := range items {
		text := strings.TrimSpace(it.Text)
		if it.Kind == domain.KindTable && it.Table != nil {
			rows := make([]string, 0, len(it.Table.Rows)+1)
			rows = append(rows, strings.Join(it.Table.Header, " | "))
			for _, r := range it.Table.Rows {
				rows = append(rows, strings.Join(r, " | "))
			}
			text = strings.Join(rows, "\n")
		}
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}
