package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"docintel/internal/domain"
	"docintel/internal/embedding"
	"docintel/internal/vectorstore"
)

// Storage is an in-memory vector index using brute-force inner product over
// L2-normalized vectors. Records are kept in insertion order, which breaks
// score ties.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage(dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Storage{dimension: dimension}, nil
}

func (s *Storage) Dimension() int { return s.dimension }

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Add appends records as one batch. Nothing is added if any embedding has
// the wrong dimension.
func (s *Storage) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := vectorstore.CheckDimensions(records, s.dimension); err != nil {
		return err
	}
	vectors := make([][]float64, len(records))
	chunks := make([]domain.Chunk, len(records))
	for i, r := range records {
		vectors[i] = embedding.Normalize(append([]float64(nil), r.Embedding...))
		chunks[i] = r.Chunk
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns up to topK records ranked by descending score. A section
// filter over-fetches candidates, see vectorstore.OverFetchFactor.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w", len(vector), s.dimension, domain.ErrDimensionMismatch)
	}
	query := embedding.Normalize(append([]float64(nil), vector...))
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) == 0 {
		return []domain.SearchResult{}, nil
	}
	var idxs []int
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if filter.DocumentID != "" && s.chunks[i].DocumentID != filter.DocumentID {
			continue
		}
		scores[i] = embedding.Dot(s.vectors[i], query)
		idxs = append(idxs, i)
	}
	sortDesc(idxs, scores)
	n := vectorstore.FetchSize(topK, filter)
	if n > len(idxs) {
		n = len(idxs)
	}
	ranked := make([]domain.SearchResult, 0, n)
	for _, j := range idxs[:n] {
		ranked = append(ranked, domain.SearchResult{Chunk: s.chunks[j], Score: scores[j]})
	}
	return vectorstore.ApplyFilter(ranked, topK, filter), nil
}

// sortDesc orders idxs by descending score; equal scores keep insertion order.
func sortDesc(idxs []int, scores []float64) {
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
}
