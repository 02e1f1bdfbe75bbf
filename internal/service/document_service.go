package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docintel/internal/answer"
	"docintel/internal/domain"
	"docintel/internal/embedding"
	"docintel/internal/extraction"
	"docintel/internal/fusion"
	"docintel/internal/vectorstore"
)

// ErrNoGenerator is returned by operations that need a text generator when
// none is configured.
var ErrNoGenerator = errors.New("no text generator configured")

// Document is an ingested document and its structured overlay.
type Document struct {
	ID         string               `yaml:"document_id" json:"document_id"`
	Name       string               `yaml:"name" json:"name"`
	Chunks     []domain.Chunk       `yaml:"chunks" json:"chunks"`
	Schema     []domain.SchemaField `yaml:"proposed_schema" json:"proposed_schema"`
	Fields     map[string]any       `yaml:"structured_data" json:"structured_data"`
	Tables     []extraction.Table   `yaml:"tables" json:"tables"`
	IngestedAt time.Time            `yaml:"ingested_at" json:"ingested_at"`

	text string
}

// Response is the reply to a question.
type Response struct {
	Answer   string                  `yaml:"answer" json:"answer"`
	Sources  []domain.SearchResult   `yaml:"sources" json:"sources"`
	Mappings []domain.FieldMatch     `yaml:"mappings" json:"mappings"`
	Metrics  domain.ConfidenceResult `yaml:"confidence_metrics" json:"confidence_metrics"`
}

// ExtractionResult is the output of an explicit extraction request.
type ExtractionResult struct {
	Tables         []extraction.Table `yaml:"tables" json:"tables"`
	StructuredData map[string]any     `yaml:"structured_data" json:"structured_data"`
}

// Config tunes retrieval and ingestion.
type Config struct {
	TopK        int
	Concurrency int
	Logger      *slog.Logger
}

// DocumentService ingests documents into a shared index and answers
// confidence-gated questions about them. Documents are kept until the
// process exits.
type DocumentService struct {
	chunker     domain.Chunker
	embedder    domain.Embedder
	store       vectorstore.Storage
	engine      *fusion.Engine
	extractor   *extraction.Extractor // nil without a generator
	synthesizer answer.Synthesizer
	topK        int
	concurrency int
	logger      *slog.Logger

	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
}

func NewDocumentService(chunker domain.Chunker, embedder domain.Embedder, store vectorstore.Storage, engine *fusion.Engine, extractor *extraction.Extractor, synthesizer answer.Synthesizer, cfg Config) *DocumentService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = embedding.DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		chunker:     chunker,
		embedder:    embedder,
		store:       store,
		engine:      engine,
		extractor:   extractor,
		synthesizer: synthesizer,
		topK:        cfg.TopK,
		concurrency: cfg.Concurrency,
		logger:      logger,
		docs:        map[string]*Document{},
	}
}

// IngestFile parses path and ingests the result under the file's base name.
func (s *DocumentService) IngestFile(ctx context.Context, parser domain.Parser, path string) (*Document, error) {
	items, err := parser.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.logger.Debug("parsed", "path", path, "items", len(items))
	return s.Ingest(ctx, filepath.Base(path), items)
}

// Ingest chunks, embeds and indexes items as a new document. The document's
// records are added in one batch; on any error nothing is registered.
// Schema proposal and extraction are best effort.
func (s *DocumentService) Ingest(ctx context.Context, name string, items []domain.ContentItem) (*Document, error) {
	id := uuid.NewString()
	logger := s.logger.With("document_id", id, "name", name)

	chunks := s.chunker.Chunk(items)
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].DocumentID = id
		texts[i] = chunks[i].Text
	}
	logger.Debug("chunked", "items", len(items), "chunks", len(chunks))

	vectors, err := embedding.EmbedAll(ctx, s.embedder, texts, s.concurrency)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", name, err)
	}
	records := make([]domain.VectorRecord, len(chunks))
	for i := range chunks {
		records[i] = domain.VectorRecord{Embedding: vectors[i], Chunk: chunks[i]}
	}
	if err := s.store.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("index %s: %w", name, err)
	}
	logger.Info("indexed", "chunks", len(records))

	doc := &Document{
		ID:         id,
		Name:       name,
		Chunks:     chunks,
		Schema:     []domain.SchemaField{},
		Fields:     map[string]any{},
		Tables:     extraction.Tables(items),
		IngestedAt: time.Now(),
		text:       extraction.FullText(items),
	}
	s.overlay(ctx, logger, doc)

	s.mu.Lock()
	s.docs[id] = doc
	s.order = append(s.order, id)
	s.mu.Unlock()
	return doc, nil
}

// overlay proposes a schema and extracts values. Failures leave the
// document without structured fields.
func (s *DocumentService) overlay(ctx context.Context, logger *slog.Logger, doc *Document) {
	if s.extractor == nil {
		return
	}
	schema, err := s.extractor.ProposeSchema(ctx, doc.text)
	if err != nil {
		logger.Warn("schema proposal failed", "error", err)
		return
	}
	doc.Schema = schema
	fields, err := s.extractor.Extract(ctx, doc.text, schema)
	if err != nil {
		logger.Warn("extraction failed", "error", err)
		return
	}
	doc.Fields = fields
	logger.Info("structured data extracted", "fields", len(schema))
}

// Document returns a registered document.
func (s *DocumentService) Document(id string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	return d, ok
}

// Documents returns registered documents in ingestion order.
func (s *DocumentService) Documents() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

// Query retrieves the document's best passages for question and gates them.
// Unknown documents and blank questions are refused rather than failed.
func (s *DocumentService) Query(ctx context.Context, docID, question string) (fusion.Decision, error) {
	doc, ok := s.Document(docID)
	if !ok {
		s.logger.Info("refusing", "document_id", docID, "reason", domain.ErrNotFound)
		return fusion.Refusal(), nil
	}
	if strings.TrimSpace(question) == "" {
		s.logger.Info("refusing", "document_id", docID, "reason", domain.ErrEmptyInput)
		return fusion.Refusal(), nil
	}
	qvec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return fusion.Decision{}, fmt.Errorf("embed question: %w", err)
	}
	retrieved, err := s.store.Search(ctx, qvec, s.topK, domain.Filter{DocumentID: docID})
	if err != nil {
		return fusion.Decision{}, fmt.Errorf("search: %w", err)
	}
	decision, err := s.engine.Evaluate(ctx, question, retrieved, doc.Fields, embedding.Similarity(s.embedder, s.concurrency))
	if err != nil {
		return fusion.Decision{}, err
	}
	s.logger.Info("query evaluated",
		"document_id", docID,
		"status", decision.Metrics.Status,
		"final_confidence", decision.Metrics.FinalConfidence,
		"passages", len(decision.Passages),
	)
	return decision, nil
}

// Ask answers question from the document, or returns the refusal text when
// confidence is too low. The synthesizer only sees accepted evidence.
func (s *DocumentService) Ask(ctx context.Context, docID, question string) (Response, error) {
	decision, err := s.Query(ctx, docID, question)
	if err != nil {
		return Response{}, err
	}
	if !decision.Accepted() {
		refused := answer.Refused()
		return Response{
			Answer:   refused.Text,
			Sources:  refused.Sources,
			Mappings: []domain.FieldMatch{},
			Metrics:  decision.Metrics,
		}, nil
	}
	ans, err := s.synthesizer.Synthesize(ctx, question, decision.Passages, decision.Fields)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Answer:   ans.Text,
		Sources:  ans.Sources,
		Mappings: decision.Fields,
		Metrics:  decision.Metrics,
	}, nil
}

// Extract returns the document's tables and, when fields are given, values
// extracted for them. The stored overlay is not changed.
func (s *DocumentService) Extract(ctx context.Context, docID string, fields []domain.SchemaField) (ExtractionResult, error) {
	doc, ok := s.Document(docID)
	if !ok {
		return ExtractionResult{}, fmt.Errorf("%w: %s", domain.ErrNotFound, docID)
	}
	res := ExtractionResult{Tables: doc.Tables, StructuredData: map[string]any{}}
	if len(fields) == 0 {
		return res, nil
	}
	if s.extractor == nil {
		return ExtractionResult{}, ErrNoGenerator
	}
	data, err := s.extractor.Extract(ctx, doc.text, fields)
	if err != nil {
		return ExtractionResult{}, err
	}
	res.StructuredData = data
	return res, nil
}

// ProposeSchema asks for a fresh schema for the document.
func (s *DocumentService) ProposeSchema(ctx context.Context, docID string) ([]domain.SchemaField, error) {
	doc, ok := s.Document(docID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, docID)
	}
	if s.extractor == nil {
		return nil, ErrNoGenerator
	}
	return s.extractor.ProposeSchema(ctx, doc.text)
}
