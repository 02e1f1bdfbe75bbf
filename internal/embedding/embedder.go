package embedding

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"docintel/internal/domain"
)

// DefaultConcurrency bounds parallel embedding calls.
const DefaultConcurrency = 8

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float64) []float64 {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// EmbedAll embeds texts with up to concurrency calls in flight. The result
// is index-aligned with texts regardless of completion order. The first
// failure cancels the remaining calls and is returned.
func EmbedAll(ctx context.Context, emb domain.Embedder, texts []string, concurrency int) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	out := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := emb.Embed(gctx, text)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
