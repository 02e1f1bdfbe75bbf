package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docintel/internal/domain"
	"docintel/internal/embedding"
	"docintel/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection on first use.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client

	mu      sync.Mutex // serializes Add batches
	ensured bool
	seq     int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, errors.New("qdrant url and collection are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *Storage) Dimension() int { return s.dimension }

// Len returns the number of records added through this client.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *Storage) ensureCollection(ctx context.Context) error {
	if s.ensured {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil); err != nil {
		return err
	}
	s.ensured = true
	return nil
}

// Add upserts records in a single request so a batch is either fully
// visible or not at all.
func (s *Storage) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := vectorstore.CheckDimensions(records, s.dimension); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		seq := s.seq + i
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%s/%d", s.collection, r.Chunk.DocumentID, seq))).String(),
			"vector": embedding.Normalize(append([]float64(nil), r.Embedding...)),
			"payload": map[string]any{
				"document_id":  r.Chunk.DocumentID,
				"section_type": string(r.Chunk.SectionType),
				"page_number":  r.Chunk.PageNumber,
				"text":         r.Chunk.Text,
				"seq":          seq,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil); err != nil {
		return err
	}
	s.seq += len(records)
	return nil
}

// Search ranks with Qdrant. The document filter is pushed to the server;
// the section filter over-fetches, see vectorstore.OverFetchFactor.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, domain.ErrDimensionMismatch
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        vectorstore.FetchSize(topK, filter),
		"with_payload": true,
	}
	if filter.DocumentID != "" {
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": filter.DocumentID}},
			},
		}
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			// collection not created yet
			return []domain.SearchResult{}, nil
		}
		return nil, err
	}
	type ranked struct {
		res domain.SearchResult
		seq int
	}
	rs := make([]ranked, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.Chunk{}
		if v, ok := r.Payload["document_id"].(string); ok {
			chunk.DocumentID = v
		}
		if v, ok := r.Payload["section_type"].(string); ok {
			chunk.SectionType = domain.SectionType(v)
		}
		if v, ok := r.Payload["page_number"].(float64); ok {
			chunk.PageNumber = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		seq := 0
		if v, ok := r.Payload["seq"].(float64); ok {
			seq = int(v)
		}
		rs = append(rs, ranked{res: domain.SearchResult{Chunk: chunk, Score: r.Score}, seq: seq})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].res.Score != rs[j].res.Score {
			return rs[i].res.Score > rs[j].res.Score
		}
		return rs[i].seq < rs[j].seq
	})
	results := make([]domain.SearchResult, len(rs))
	for i := range rs {
		results[i] = rs[i].res
	}
	return vectorstore.ApplyFilter(results, topK, filter), nil
}

type statusError struct {
	method string
	url    string
	status int
	text   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.text)
}

func (s *Storage) do(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, status: resp.StatusCode, text: resp.Status}
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		return dec.Decode(out)
	}
	return nil
}
