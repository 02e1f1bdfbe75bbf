package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"

	"docintel/internal/domain"
	"docintel/internal/embedding"
	"docintel/internal/upstream"
)

const openAIDefaultEmbeddingModel = "text-embedding-3-small"

// OpenAIEmbedderConfig configures the embeddings client. A zero Dimension
// uses the model's native size and sends no dimensions parameter.
type OpenAIEmbedderConfig struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// OpenAIEmbedder embeds text with an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client         openai.Client
	model          string
	dimension      int
	sendDimensions bool
	policy         upstream.Policy
}

var _ domain.Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultEmbeddingModel
	}
	send := cfg.Dimension > 0
	if !send {
		cfg.Dimension = defaultDimension(cfg.Model)
	}
	return &OpenAIEmbedder{
		client:         openai.NewClient(clientOptions(key, cfg.BaseURL, cfg.HTTPClient)...),
		model:          cfg.Model,
		dimension:      cfg.Dimension,
		sendDimensions: send,
		policy:         newPolicy(cfg.Timeout, cfg.MaxRetries, cfg.Logger),
	}, nil
}

func (e *OpenAIEmbedder) Name() string { return OpenAIName }

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed returns the L2-normalized embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: %w", domain.ErrEmptyInput)
	}
	params := openai.EmbeddingNewParams{
		Model:          openai.EmbeddingModel(e.model),
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.sendDimensions {
		params.Dimensions = openai.Int(int64(e.dimension))
	}
	return upstream.Do(ctx, e.policy, "openai embeddings", func(ctx context.Context) ([]float64, error) {
		resp, err := e.client.Embeddings.New(ctx, params)
		if err != nil {
			return nil, mapOpenAIError(err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, upstream.Invalid("no embedding returned")
		}
		raw := resp.Data[0].Embedding
		if len(raw) != e.dimension {
			return nil, upstream.Invalid("embedding has %d dimensions, want %d", len(raw), e.dimension)
		}
		return embedding.Normalize(append([]float64(nil), raw...)), nil
	})
}

func defaultDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	default:
		return 384
	}
}
