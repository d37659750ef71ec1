// Package quiz synthesizes multiple-choice quizzes from a single document's
// indexed content in one oracle call.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlabs/tutord/internal/llm"
	"github.com/tutorlabs/tutord/internal/vectorstore"
)

// ErrGenerationFailed indicates the quiz could not be produced. Schema
// failures carry ErrSchemaValidation instead.
var ErrGenerationFailed = errors.New("quiz generation failed")

// retrievalQuery is the fixed query used to gather quiz grounding.
const retrievalQuery = "Generate quiz questions"

// promptTemplate asks for schema-conforming JSON with an example payload.
const promptTemplate = `Generate exactly %d quiz questions based on the context below.

CONTEXT:
%s

REQUIREMENTS:
- Each question must have exactly 4 options (A, B, C, D)
- Specify the correct answer as a single letter (A-D)
- Output must be valid JSON matching the example structure
- Include an explanation for every answer

EXAMPLE OUTPUT:
{
    "quiz": [
        {
            "question": "What is the capital of France?",
            "options": ["London", "Berlin", "Paris", "Madrid"],
            "answer": "C",
            "explanation": "Paris is the capital of France."
        }
    ]
}

Now generate %d questions. Respond with JSON only.`

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config configures the quiz generator.
type Config struct {
	// RetrievalK is how many chunks of the document ground the quiz.
	RetrievalK int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.RetrievalK == 0 {
		c.RetrievalK = 20
	}
}

// Generator produces quizzes.
type Generator struct {
	index     vectorstore.Index
	embedder  QueryEmbedder
	completer llm.Completer
	config    Config
	logger    *zap.Logger
}

// NewGenerator creates a quiz generator.
func NewGenerator(index vectorstore.Index, embedder QueryEmbedder, completer llm.Completer, cfg Config, logger *zap.Logger) (*Generator, error) {
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	return &Generator{
		index:     index,
		embedder:  embedder,
		completer: completer,
		config:    cfg,
		logger:    logger.Named("quiz"),
	}, nil
}

// Generate produces exactly n questions from the indexed content of one
// document. The oracle is invoked once; its output goes through the tiered
// parser and must validate fully or the call fails.
func (g *Generator) Generate(ctx context.Context, docID string, n int) ([]Question, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: question count must be at least 1, got %d", ErrGenerationFailed, n)
	}

	start := time.Now()

	vector, err := g.embedder.EmbedQuery(ctx, retrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding retrieval query: %v", ErrGenerationFailed, err)
	}

	results, err := g.index.Search(ctx, vector, g.config.RetrievalK, []string{docID})
	if err != nil {
		return nil, fmt.Errorf("%w: retrieving context: %v", ErrGenerationFailed, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: document %s has no indexed content", ErrGenerationFailed, docID)
	}

	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Text
	}
	prompt := fmt.Sprintf(promptTemplate, n, strings.Join(texts, "\n\n"), n)

	raw, err := g.completer.Complete(ctx, "", nil, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	questions, err := Parse(raw, n)
	if err != nil {
		return nil, err
	}

	g.logger.Info("generated quiz",
		zap.String("doc_id", docID),
		zap.Int("questions", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return questions, nil
}
