package main

import (
	"fmt"
	"log/slog"
	"time"

	"docintel/internal/answer"
	"docintel/internal/chunker"
	"docintel/internal/config"
	"docintel/internal/domain"
	"docintel/internal/embedding/hashing"
	"docintel/internal/extraction"
	"docintel/internal/fusion"
	"docintel/internal/llm"
	"docintel/internal/service"
	"docintel/internal/vectorstore"
	"docintel/internal/vectorstore/memory"
	"docintel/internal/vectorstore/qdrant"
)

// buildService assembles the pipeline selected by cfg.
func buildService(cfg *config.AppConfig, logger *slog.Logger) (*service.DocumentService, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "hashing", "":
		emb = hashing.NewEmbedder(cfg.Embedder.Dimension)
	case "openai":
		o := cfg.Embedder.OpenAI
		if o == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := llm.NewOpenAIEmbedder(llm.OpenAIEmbedderConfig{
			BaseURL:    o.BaseURL,
			APIKeyEnv:  o.APIKeyEnv,
			Model:      o.Model,
			Dimension:  o.Dimension,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries: o.MaxRetries,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		s, err := memory.NewStorage(emb.Dimension())
		if err != nil {
			return nil, err
		}
		st = s
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		s, err := qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Dimension:  emb.Dimension(),
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "none", "":
	case "openai":
		o := cfg.Generator.OpenAI
		if o == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     o.BaseURL,
			APIKeyEnv:   o.APIKeyEnv,
			Model:       o.Model,
			Temperature: o.Temperature,
			Timeout:     time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries:  o.MaxRetries,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		gen = client
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}

	var ext *extraction.Extractor
	if gen != nil {
		ext = extraction.NewExtractor(gen, extraction.Config{MaxTextChars: cfg.Extraction.MaxTextChars, Logger: logger})
	}

	var synth answer.Synthesizer
	switch cfg.Answer.Type {
	case "extractive", "":
		synth = answer.NewExtractive(cfg.Answer.MaxSentences)
	case "llm":
		if gen == nil {
			return nil, fmt.Errorf("llm answers need a generator")
		}
		synth = answer.NewLLM(gen)
	default:
		return nil, fmt.Errorf("unknown answer synthesizer: %s", cfg.Answer.Type)
	}

	engine := fusion.NewEngine(fusion.Config{
		MappingThreshold: cfg.Fusion.MappingThreshold,
		MaxFields:        cfg.Fusion.MaxFields,
		RefusalThreshold: cfg.Fusion.RefusalThreshold,
		SchemaWeight:     cfg.Fusion.SchemaWeight,
		SemanticWeight:   cfg.Fusion.SemanticWeight,
		MaxPassages:      cfg.Fusion.MaxPassages,
		Logger:           logger,
	})

	logger.Debug("pipeline assembled",
		"embedder", emb.Name(), "dimension", emb.Dimension(),
		"vector_store", cfg.VectorStore.Type, "generator", cfg.Generator.Type, "answer", synth.Name())

	return service.NewDocumentService(
		chunker.NewSectionChunker(), emb, st, engine, ext, synth,
		service.Config{TopK: cfg.Retrieval.TopK, Concurrency: cfg.Embedder.Concurrency, Logger: logger},
	), nil
}
