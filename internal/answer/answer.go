// Package answer turns accepted passages and field matches into a reply.
package answer

import (
	"context"
	"fmt"
	"strings"

	"docintel/internal/domain"
)

// RefusalText is returned whenever confidence gating refuses a question.
const RefusalText = "I'm sorry, I cannot find sufficient information in the document with enough confidence to answer that accurately."

// Answer is a synthesized reply with the passages it was grounded on.
type Answer struct {
	Text    string                `yaml:"answer" json:"answer"`
	Sources []domain.SearchResult `yaml:"sources" json:"sources"`
}

// Synthesizer writes an answer from accepted evidence only.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, question string, passages []domain.SearchResult, fields []domain.FieldMatch) (Answer, error)
}

// Refused returns the fixed refusal answer.
func Refused() Answer {
	return Answer{Text: RefusalText, Sources: []domain.SearchResult{}}
}

// formatSources numbers passages as "[Source i] (Page p): text".
func formatSources(passages []domain.SearchResult) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[Source %d] (Page %d): %s\n\n", i+1, p.Chunk.PageNumber, p.Chunk.Text)
	}
	return b.String()
}

// formatFields lists matched fields with their mapping score.
func formatFields(fields []domain.FieldMatch) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("### IDENTIFIED STRUCTURED DATA (HIGH CONFIDENCE):\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %v (Score: %.2f)\n", f.Field, f.Value, f.Confidence)
	}
	return b.String()
}
