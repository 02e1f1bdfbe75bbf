package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Vectors returned by Embed are L2-normalized and have length Dimension().
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker groups parsed content items into retrievable chunks.
type Chunker interface {
	Chunk(items []ContentItem) []Chunk
}

// Parser turns a file into an ordered sequence of content items.
type Parser interface {
	Parse(path string) ([]ContentItem, error)
}

// Generator is the hosted text-generation collaborator.
// When JSON is set the reply is expected to be a single JSON object.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is a single system+user prompt exchange.
type GenerateRequest struct {
	System string
	User   string
	JSON   bool
}
