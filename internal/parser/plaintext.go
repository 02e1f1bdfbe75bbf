// Package parser turns plain-text and markdown files into content items.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"docintel/internal/domain"
)

// maxHeadingLen is the longest line still considered a heading candidate.
const maxHeadingLen = 60

// PlainText parses .txt and .md files. A form feed starts a new page.
type PlainText struct{}

func NewPlainText() *PlainText { return &PlainText{} }

var _ domain.Parser = (*PlainText)(nil)

// Supported reports whether path has an extension this parser reads.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".text":
		return true
	}
	return false
}

func (p *PlainText) Parse(path string) ([]domain.ContentItem, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ext := strings.ToLower(filepath.Ext(path))
	return p.ParseReader(f, ext == ".md" || ext == ".markdown")
}

// ParseReader parses r. In markdown mode only '#' lines are headings;
// otherwise short upper-case lines and standalone title lines are.
func (p *PlainText) ParseReader(r io.Reader, markdown bool) ([]domain.ContentItem, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	var items []domain.ContentItem
	page := 1
	var table []string
	tablePage := page
	flushTable := func() {
		if len(table) == 0 {
			return
		}
		items = append(items, tableItem(table, tablePage))
		table = nil
	}

	for i, raw := range lines {
		// form feeds may sit anywhere on the line
		for strings.Contains(raw, "\f") {
			before, after, _ := strings.Cut(raw, "\f")
			if strings.TrimSpace(before) != "" {
				flushTable()
				items = append(items, p.lineItem(before, page, markdown, false))
			}
			flushTable()
			page++
			raw = after
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			flushTable()
			continue
		}
		if strings.HasPrefix(line, "|") {
			if len(table) == 0 {
				tablePage = page
			}
			table = append(table, line)
			continue
		}
		flushTable()
		standalone := blank(lines, i-1) && blank(lines, i+1)
		items = append(items, p.lineItem(line, page, markdown, standalone))
	}
	flushTable()
	return items, nil
}

func (p *PlainText) lineItem(line string, page int, markdown, standalone bool) domain.ContentItem {
	line = strings.TrimSpace(line)
	if markdown {
		if strings.HasPrefix(line, "#") {
			return domain.ContentItem{Kind: domain.KindHeading, Text: strings.TrimSpace(strings.TrimLeft(line, "#")), PageNumber: page}
		}
		return domain.ContentItem{Kind: domain.KindText, Text: line, PageNumber: page}
	}
	if isHeading(line, standalone) {
		return domain.ContentItem{Kind: domain.KindHeading, Text: line, PageNumber: page}
	}
	return domain.ContentItem{Kind: domain.KindText, Text: line, PageNumber: page}
}

// isHeading applies the short-line heuristic. Label lines such as
// "Carrier: ACME" stay text.
func isHeading(line string, standalone bool) bool {
	if len([]rune(line)) >= maxHeadingLen {
		return false
	}
	letters, upper := 0, true
	hasDigit := false
	for _, r := range line {
		switch {
		case unicode.IsLetter(r):
			letters++
			if unicode.IsLower(r) {
				upper = false
			}
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if letters == 0 {
		return false
	}
	if upper && !strings.Contains(strings.TrimSuffix(line, ":"), ":") {
		return true
	}
	if !standalone || hasDigit || strings.Contains(line, ":") {
		return false
	}
	return !strings.ContainsAny(line[len(line)-1:], ".!?,;")
}

func blank(lines []string, i int) bool {
	if i < 0 || i >= len(lines) {
		return true
	}
	return strings.TrimSpace(strings.ReplaceAll(lines[i], "\f", "")) == ""
}

// tableItem turns markdown pipe rows into a table item. The first row is
// the header; separator rows are dropped.
func tableItem(rows []string, page int) domain.ContentItem {
	payload := &domain.TablePayload{}
	for _, row := range rows {
		cells := splitRow(row)
		if isSeparator(cells) {
			continue
		}
		if payload.Header == nil {
			payload.Header = cells
			continue
		}
		payload.Rows = append(payload.Rows, cells)
	}
	return domain.ContentItem{
		Kind:       domain.KindTable,
		Text:       strings.Join(rows, "\n"),
		PageNumber: page,
		Table:      payload,
	}
}

func splitRow(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")
	row = strings.ReplaceAll(row, `\|`, "\x00")
	parts := strings.Split(row, "|")
	cells := make([]string, len(parts))
	for i, c := range parts {
		cells[i] = strings.TrimSpace(strings.ReplaceAll(c, "\x00", "|"))
	}
	return cells
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		c = strings.Trim(c, ":")
		if c == "" || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}
