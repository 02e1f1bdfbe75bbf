package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

// fakeQdrant records requests and answers searches with a fixed result set.
type fakeQdrant struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
	results  []map[string]any
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if strings.HasSuffix(r.URL.Path, "/points/search") {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": f.results})
		return
	}
	_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
}

func point(score float64, text string, section string, seq int) map[string]any {
	return map[string]any{
		"score": score,
		"payload": map[string]any{
			"document_id":  "doc",
			"section_type": section,
			"page_number":  1,
			"text":         text,
			"seq":          seq,
		},
	}
}

func TestAdd_CreatesCollectionThenUpserts(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake)
	defer server.Close()

	s, err := NewStorage(Config{URL: server.URL, Collection: "docs", Dimension: 2})
	require.NoError(t, err)
	err = s.Add(context.Background(), []domain.VectorRecord{
		{Embedding: []float64{3, 4}, Chunk: domain.Chunk{Text: "a", DocumentID: "doc", SectionType: domain.SectionRate}},
	})
	require.NoError(t, err)
	require.Len(t, fake.requests, 2)
	assert.Equal(t, "PUT /collections/docs", fake.requests[0])
	assert.Equal(t, "PUT /collections/docs/points", fake.requests[1])
	assert.Equal(t, 1, s.Len())

	points := fake.bodies[1]["points"].([]any)
	p := points[0].(map[string]any)
	vec := p["vector"].([]any)
	assert.InDelta(t, 0.6, vec[0].(float64), 1e-9)
	assert.Equal(t, "rate", p["payload"].(map[string]any)["section_type"])
}

func TestAdd_DimensionMismatchSendsNothing(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake)
	defer server.Close()

	s, err := NewStorage(Config{URL: server.URL, Collection: "docs", Dimension: 2})
	require.NoError(t, err)
	err = s.Add(context.Background(), []domain.VectorRecord{{Embedding: []float64{1}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Empty(t, fake.requests)
}

func TestSearch_SectionFilterOverFetchesAndBreaksTies(t *testing.T) {
	fake := &fakeQdrant{results: []map[string]any{
		point(0.9, "later", "rate", 4),
		point(0.9, "earlier", "rate", 1),
		point(0.95, "misc", "misc", 0),
		point(0.5, "low", "rate", 2),
	}}
	server := httptest.NewServer(fake)
	defer server.Close()

	s, err := NewStorage(Config{URL: server.URL, Collection: "docs", Dimension: 2})
	require.NoError(t, err)
	res, err := s.Search(context.Background(), []float64{1, 0}, 2, domain.Filter{Section: domain.SectionRate, DocumentID: "doc"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "earlier", res[0].Chunk.Text)
	assert.Equal(t, "later", res[1].Chunk.Text)

	body := fake.bodies[len(fake.bodies)-1]
	assert.Equal(t, float64(10), body["limit"])
	assert.NotNil(t, body["filter"])
}

func TestNewStorage_Validation(t *testing.T) {
	_, err := NewStorage(Config{URL: "http://x", Collection: "c"})
	assert.Error(t, err)
	_, err = NewStorage(Config{Dimension: 2})
	assert.Error(t, err)
}
