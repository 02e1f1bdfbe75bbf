package chunker

import (
	"fmt"
	"strings"

	"docintel/internal/domain"
)

// SectionChunker groups consecutive text items of the same section, page and
// heading scope into one chunk and qualifies every finished chunk with its
// heading. Tables always form their own chunk.
type SectionChunker struct {
	classifier *Classifier
}

func NewSectionChunker() *SectionChunker {
	return &SectionChunker{classifier: DefaultClassifier()}
}

// NewSectionChunkerWithClassifier uses a custom keyword table.
func NewSectionChunkerWithClassifier(c *Classifier) *SectionChunker {
	if c == nil {
		c = DefaultClassifier()
	}
	return &SectionChunker{classifier: c}
}

// pending is a chunk still accepting text, with the heading that was in
// scope when it started.
type pending struct {
	chunk   domain.Chunk
	heading string
}

// chunkState is idle while current is nil and accumulating otherwise.
type chunkState struct {
	heading string
	current *pending
	out     []domain.Chunk
}

// finalize closes the in-progress chunk, if any.
func (s *chunkState) finalize() {
	if s.current == nil {
		return
	}
	s.emit(s.current.chunk, s.current.heading)
	s.current = nil
}

// emit appends a finished chunk, applying the heading prefix exactly once.
func (s *chunkState) emit(c domain.Chunk, heading string) {
	if heading != "" {
		c.Text = "[" + heading + "] " + c.Text
	}
	s.out = append(s.out, c)
}

func (s *chunkState) accepts(section domain.SectionType, page int) bool {
	cur := s.current
	return cur != nil &&
		cur.chunk.SectionType == section &&
		cur.chunk.PageNumber == page &&
		cur.heading == s.heading
}

func (c *SectionChunker) Chunk(items []domain.ContentItem) []domain.Chunk {
	st := &chunkState{}
	for _, item := range items {
		switch item.Kind {
		case domain.KindHeading:
			text := strings.TrimSpace(item.Text)
			if text == "" {
				continue
			}
			st.heading = text
		case domain.KindTable:
			rendered := renderTable(item)
			if rendered == "" {
				continue
			}
			st.finalize()
			st.emit(domain.Chunk{
				Text:        fmt.Sprintf("Table Data (Page %d):\n%s", item.Page(), rendered),
				SectionType: domain.SectionRate,
				PageNumber:  item.Page(),
			}, st.heading)
		default:
			text := strings.TrimSpace(item.Text)
			if text == "" {
				continue
			}
			section := c.classifier.Classify(text)
			page := item.Page()
			if st.accepts(section, page) {
				st.current.chunk.Text += "\n" + text
				continue
			}
			st.finalize()
			st.current = &pending{
				chunk:   domain.Chunk{Text: text, SectionType: section, PageNumber: page},
				heading: st.heading,
			}
		}
	}
	st.finalize()
	return st.out
}
