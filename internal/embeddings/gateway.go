// Package embeddings converts text into fixed-dimension dense vectors via an
// OpenAI-compatible embeddings endpoint (a local TEI server by default).
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmbeddingFailed indicates the embedding service call failed.
	ErrEmbeddingFailed = errors.New("embedding service call failed")
)

// embedderClient is the slice of langchaingo's Embedder the gateway uses.
type embedderClient interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config holds configuration for the embedding gateway.
type Config struct {
	// BaseURL is the embeddings endpoint.
	// For TEI: http://localhost:8080/v1
	// For OpenAI: https://api.openai.com/v1
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey is required for OpenAI, optional for TEI.
	APIKey string

	// Dimension is the model's output vector dimension.
	Dimension int

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int

	// Timeout bounds a single embed call, including retries.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Gateway generates embeddings. It is stateless: identical input text yields
// identical vectors, subject to the model's own determinism.
type Gateway struct {
	embedder embedderClient
	config   Config
	logger   *zap.Logger
}

// NewGateway creates an embedding gateway for the configured endpoint.
func NewGateway(cfg Config, logger *zap.Logger) (*Gateway, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token, use placeholder for TEI
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Gateway{
		embedder: embedder,
		config:   cfg,
		logger:   logger.Named("embeddings"),
	}, nil
}

// Dimension returns the configured vector dimension.
func (g *Gateway) Dimension() int {
	return g.config.Dimension
}

// EmbedDocuments embeds a batch of texts. Output order matches input order
// 1:1. Transient failures are retried with exponential backoff.
func (g *Gateway) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	var vectors [][]float32
	err := retry.Do(
		func() error {
			var err error
			vectors, err = g.embedder.EmbedDocuments(ctx, texts)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(g.config.MaxRetries)),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	var vector []float32
	err := retry.Do(
		func() error {
			var err error
			vector, err = g.embedder.EmbedQuery(ctx, text)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(g.config.MaxRetries)),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}
