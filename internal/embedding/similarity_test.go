package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

// fakeEmbedder maps known strings to fixed vectors and counts calls.
type fakeEmbedder struct {
	vectors map[string][]float64
	calls   atomic.Int64
	err     error
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 2 }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return []float64{0, 1}, nil
	}
	return v, nil
}

func TestSimilarity_Cosine(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"q": {3, 4},
		"a": {3, 4},
		"b": {4, -3},
		"c": {1, 0},
	}}
	scores, err := Similarity(emb, 2)(context.Background(), "q", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.InDelta(t, 0.0, scores[1], 1e-9)
	assert.InDelta(t, 0.6, scores[2], 1e-9)
}

func TestSimilarity_EmptyCandidatesMakesNoCalls(t *testing.T) {
	emb := &fakeEmbedder{}
	scores, err := Similarity(emb, 0)(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Zero(t, emb.calls.Load())
}

func TestSimilarity_PropagatesUpstreamFailure(t *testing.T) {
	emb := &fakeEmbedder{err: domain.ErrUpstreamUnavailable}
	_, err := Similarity(emb, 0)(context.Background(), "q", []string{"a"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestEmbedAll_PreservesOrder(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"x": {1, 0},
		"y": {0, 1},
	}}
	texts := []string{"x", "y", "x", "y", "x"}
	out, err := EmbedAll(context.Background(), emb, texts, 3)
	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, text := range texts {
		assert.Equal(t, emb.vectors[text], out[i])
	}
}

func TestEmbedAll_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	emb := &fakeEmbedder{err: boom}
	out, err := EmbedAll(context.Background(), emb, []string{"a", "b"}, 1)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.6, 0.8}, Normalize([]float64{3, 4}))
	assert.Equal(t, []float64{0, 0}, Normalize([]float64{0, 0}))
}
