package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

func newTestEmbedder(t *testing.T, url string, dim int) *OpenAIEmbedder {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "test-key")
	e, err := NewOpenAIEmbedder(OpenAIEmbedderConfig{
		BaseURL:    url + "/v1",
		APIKeyEnv:  "TEST_EMBED_KEY",
		Model:      "test-model",
		Dimension:  dim,
		Timeout:    time.Second,
		MaxRetries: 3,
	})
	require.NoError(t, err)
	e.policy.BaseDelay = time.Millisecond
	e.policy.MaxDelay = time.Millisecond
	return e
}

func writeEmbedding(w http.ResponseWriter, vec []float64) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"model":  "test-model",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": vec},
		},
		"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
	})
}

func TestEmbed_Success(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		writeEmbedding(w, []float64{3, 4})
	}))
	defer server.Close()

	v, err := newTestEmbedder(t, server.URL, 2).Embed(context.Background(), "shipper")
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)
	assert.InDelta(t, 1.0, math.Hypot(v[0], v[1]), 1e-9)
	assert.Equal(t, "test-model", payload["model"])
	assert.Equal(t, []any{"shipper"}, payload["input"])
	assert.Equal(t, float64(2), payload["dimensions"])
}

func TestEmbed_NativeDimensionSendsNoDimensions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		writeEmbedding(w, make([]float64, 1536))
	}))
	defer server.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	e, err := NewOpenAIEmbedder(OpenAIEmbedderConfig{BaseURL: server.URL + "/v1", APIKeyEnv: "TEST_EMBED_KEY"})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimension())

	_, err = e.Embed(context.Background(), "rate")
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", payload["model"])
	assert.NotContains(t, payload, "dimensions")
}

func TestEmbed_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		writeEmbedding(w, []float64{1, 0})
	}))
	defer server.Close()

	v, err := newTestEmbedder(t, server.URL, 2).Embed(context.Background(), "rate")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbed_ExhaustedRetriesAreUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"bad gateway","type":"server_error"}}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL, 2).Embed(context.Background(), "rate")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestEmbed_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"input too long","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL, 2).Embed(context.Background(), "rate")
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed_WrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbedding(w, []float64{1, 0, 0})
	}))
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL, 2).Embed(context.Background(), "rate")
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestEmbed_EmptyText(t *testing.T) {
	_, err := newTestEmbedder(t, "http://127.0.0.1:0", 2).Embed(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestNewOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("MISSING_EMBED_KEY", "")
	_, err := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKeyEnv: "MISSING_EMBED_KEY"})
	assert.Error(t, err)
}

func TestDefaultDimension(t *testing.T) {
	assert.Equal(t, 1536, defaultDimension("text-embedding-3-small"))
	assert.Equal(t, 3072, defaultDimension("text-embedding-3-large"))
}
