package answer

import (
	"context"
	"fmt"
	"strings"

	"docintel/internal/domain"
)

const systemPrompt = `You answer questions about a single logistics document.
Keep answers short and direct. Answer only what is asked.
Use only the provided document context. If the answer is not in the context, say you don't know.`

const userPrompt = `### DOCUMENT CONTEXT
%s
%s
---
### USER QUESTION
%s
---
### INSTRUCTIONS
- Provide a short answer (max 3 sentences).
- Focus strictly on the question.
- Use only the context above.`

// LLM grounds a text generator on the accepted passages.
type LLM struct {
	gen domain.Generator
}

func NewLLM(gen domain.Generator) *LLM {
	return &LLM{gen: gen}
}

func (s *LLM) Name() string { return "llm" }

func (s *LLM) Synthesize(ctx context.Context, question string, passages []domain.SearchResult, fields []domain.FieldMatch) (Answer, error) {
	prompt := fmt.Sprintf(userPrompt, formatSources(passages), formatFields(fields), strings.TrimSpace(question))
	text, err := s.gen.Generate(ctx, domain.GenerateRequest{System: systemPrompt, User: prompt})
	if err != nil {
		return Answer{}, fmt.Errorf("synthesize: %w", err)
	}
	return Answer{Text: strings.TrimSpace(text), Sources: passages}, nil
}
