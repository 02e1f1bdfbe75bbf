package answer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"docintel/internal/domain"
)

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+(?:[.,]\p{N}+)*`)
	sentencePattern = regexp.MustCompile(`(?:[^.!?\n]|[.!?][^\s])+[.!?]*`)
)

// Extractive answers offline by picking the passage sentences that best
// match the question. Sentences are ranked by corpus word frequency plus
// their token overlap with the question.
type Extractive struct {
	maxSentences int
	stopwords    map[string]struct{}
}

func NewExtractive(maxSentences int) *Extractive {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Extractive{maxSentences: maxSentences, stopwords: defaultStopwords()}
}

func (s *Extractive) Name() string { return "extractive" }

func (s *Extractive) Synthesize(ctx context.Context, question string, passages []domain.SearchResult, fields []domain.FieldMatch) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}
	var lines []string
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s: %v", f.Field, f.Value))
	}

	var sentences []string
	for _, p := range passages {
		for _, sent := range sentencePattern.FindAllString(stripHeading(p.Chunk.Text), -1) {
			if t := strings.TrimSpace(sent); t != "" {
				sentences = append(sentences, t)
			}
		}
	}
	if best := s.rank(question, sentences); len(best) > 0 {
		lines = append(lines, strings.Join(best, " "))
	}
	if len(lines) == 0 {
		return Answer{Text: RefusalText, Sources: passages}, nil
	}
	return Answer{Text: strings.Join(lines, "\n"), Sources: passages}, nil
}

// rank returns the top sentences in their original order.
func (s *Extractive) rank(question string, sentences []string) []string {
	if len(sentences) == 0 {
		return nil
	}
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	qset := map[string]struct{}{}
	for _, tok := range s.tokens(question) {
		qset[tok] = struct{}{}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		fscore := 0.0
		for _, tok := range toks {
			fscore += freq[tok]
		}
		if l := float64(len(toks)); l > 0 {
			fscore /= math.Sqrt(l)
		}
		// question overlap dominates; frequency breaks ties between matches
		scores[i] = pair{i, 2*ochiai(qset, toks) + 0.1*fscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	n := s.maxSentences
	if n > len(scores) {
		n = len(scores)
	}
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return out
}

func (s *Extractive) tokens(text string) []string {
	all := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, t := range all {
		if _, ok := s.stopwords[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ochiai is |A∩B| / sqrt(|A||B|) over distinct tokens.
func ochiai(qset map[string]struct{}, toks []string) float64 {
	seen := make(map[string]struct{}, len(toks))
	inter := 0
	for _, t := range toks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}

// stripHeading drops a leading "[heading] " prefix.
func stripHeading(text string) string {
	if strings.HasPrefix(text, "[") {
		if i := strings.Index(text, "] "); i > 0 {
			text = text[i+2:]
		}
	}
	return text
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "when", "where", "why", "how", "does", "do", "did", "there",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
