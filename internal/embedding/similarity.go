package embedding

import (
	"context"
	"fmt"

	"docintel/internal/domain"
)

// SimilarityFunc scores a query against each candidate.
type SimilarityFunc func(ctx context.Context, query string, candidates []string) ([]float64, error)

// Similarity returns a SimilarityFunc backed by emb. Each score is the cosine
// similarity of the normalized query and candidate embeddings. No call is
// made for an empty candidate list.
func Similarity(emb domain.Embedder, concurrency int) SimilarityFunc {
	return func(ctx context.Context, query string, candidates []string) ([]float64, error) {
		if len(candidates) == 0 {
			return []float64{}, nil
		}
		q, err := emb.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		q = Normalize(append([]float64(nil), q...))
		vecs, err := EmbedAll(ctx, emb, candidates, concurrency)
		if err != nil {
			return nil, fmt.Errorf("embed candidates: %w", err)
		}
		scores := make([]float64, len(vecs))
		for i, v := range vecs {
			scores[i] = Dot(q, Normalize(append([]float64(nil), v...)))
		}
		return scores, nil
	}
}
