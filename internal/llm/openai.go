// Package llm holds the OpenAI-compatible clients: chat completions for
// schema proposal, extraction and answer synthesis, and embeddings for
// retrieval.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"docintel/internal/domain"
	"docintel/internal/upstream"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig configures the chat completions client.
type OpenAIConfig struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// OpenAIClient generates text with an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	policy      upstream.Policy
	logger      *slog.Logger
}

var _ domain.Generator = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		client:      openai.NewClient(clientOptions(key, cfg.BaseURL, cfg.HTTPClient)...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		policy:      newPolicy(cfg.Timeout, cfg.MaxRetries, logger),
		logger:      logger,
	}, nil
}

func (c *OpenAIClient) Name() string { return OpenAIName }

// Model returns the configured chat model.
func (c *OpenAIClient) Model() string { return c.model }

// Generate sends one system+user exchange and returns the reply text.
func (c *OpenAIClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.User) == "" {
		return "", fmt.Errorf("generate: %w", domain.ErrEmptyInput)
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	out, err := upstream.Do(ctx, c.policy, "openai chat", func(ctx context.Context) (string, error) {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", mapOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return "", upstream.Invalid("no choices returned")
		}
		content := resp.Choices[0].Message.Content
		if strings.TrimSpace(content) == "" {
			return "", upstream.Invalid("empty completion")
		}
		return content, nil
	})
	if err != nil {
		return "", err
	}
	c.logger.Debug("generation complete", "model", c.model, "json", req.JSON, "duration", time.Since(start))
	return out, nil
}

// clientOptions builds SDK options. Retries are owned by upstream.Do.
func clientOptions(key, baseURL string, httpClient *http.Client) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return opts
}

func newPolicy(timeout time.Duration, maxRetries int, logger *slog.Logger) upstream.Policy {
	policy := upstream.DefaultPolicy()
	if timeout > 0 {
		policy.Timeout = timeout
	}
	if maxRetries > 0 {
		policy.Attempts = uint(maxRetries)
	}
	policy.Logger = logger
	return policy
}

// mapOpenAIError separates refusals from transient failures.
func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if upstream.Retryable(apiErr.StatusCode) {
			if apiErr.Message != "" {
				return fmt.Errorf("OpenAI error (status %d): %s", apiErr.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("OpenAI error (status %d)", apiErr.StatusCode)
		}
		return upstream.Rejected(apiErr.StatusCode, apiErr.Message)
	}
	return err
}
