package vectorstore

import (
	"context"
	"fmt"

	"docintel/internal/domain"
)

// OverFetchFactor is how many candidates per requested result a
// section-filtered search pulls from the index before applying the filter.
//
// Section filtering is approximate: with k results requested, a matching
// record is missed when more than k*OverFetchFactor-k non-matching records
// rank above it. Callers that need the exact filtered top-k must request a
// larger k. The document filter is exact; only records of that document are
// ranked at all.
const OverFetchFactor = 5

// Storage holds chunk embeddings and supports similarity search.
type Storage interface {
	Dimension() int
	Len() int
	Add(ctx context.Context, records []domain.VectorRecord) error
	Search(ctx context.Context, vector []float64, topK int, filter domain.Filter) ([]domain.SearchResult, error)
}

// FetchSize returns how many candidates to request for topK results.
func FetchSize(topK int, filter domain.Filter) int {
	if filter.Section == "" {
		return topK
	}
	return topK * OverFetchFactor
}

// ApplyFilter scans ranked candidates in order and keeps those matching the
// filter until topK are collected.
func ApplyFilter(ranked []domain.SearchResult, topK int, filter domain.Filter) []domain.SearchResult {
	if filter.IsZero() {
		if len(ranked) > topK {
			ranked = ranked[:topK]
		}
		return ranked
	}
	out := make([]domain.SearchResult, 0, topK)
	for _, r := range ranked {
		if !filter.Match(r.Chunk) {
			continue
		}
		out = append(out, r)
		if len(out) >= topK {
			break
		}
	}
	return out
}

// CheckDimensions verifies every record against the index dimension.
func CheckDimensions(records []domain.VectorRecord, dimension int) error {
	for i, r := range records {
		if len(r.Embedding) != dimension {
			return fmt.Errorf("record %d has %d dimensions, index has %d: %w",
				i, len(r.Embedding), dimension, domain.ErrDimensionMismatch)
		}
	}
	return nil
}
