package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// OllamaConfig configures the Ollama-backed completer.
type OllamaConfig struct {
	// ServerURL is the Ollama server address, e.g. http://localhost:11434.
	ServerURL string

	// Model is the model tag, e.g. "llama3.2".
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// Timeout bounds a single completion call.
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *OllamaConfig) ApplyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "llama3.2"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
}

// OllamaCompleter is the Completer implementation backed by a local Ollama
// server via langchaingo.
type OllamaCompleter struct {
	model  *ollama.LLM
	config OllamaConfig
	logger *zap.Logger
}

// NewOllamaCompleter creates the completer.
func NewOllamaCompleter(cfg OllamaConfig, logger *zap.Logger) (*OllamaCompleter, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	model, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	return &OllamaCompleter{
		model:  model,
		config: cfg,
		logger: logger.Named("llm"),
	}, nil
}

// Complete runs one generation. The grounding context, when present, is
// appended to the system message so the model answers from it.
func (c *OllamaCompleter) Complete(ctx context.Context, system string, history []Message, userInput, grounding string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	messages := buildMessages(system, history, userInput, grounding)

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(c.config.Temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	c.logger.Debug("completion finished",
		zap.Int("history_len", len(history)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Content, nil
}

// buildMessages lays out one generation request: the system message (with the
// grounding context appended when present), the prior turns in order, then
// the user input.
func buildMessages(system string, history []Message, userInput, grounding string) []llms.MessageContent {
	if grounding != "" {
		system = system + "\n\nContext:\n" + grounding
	}

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userInput))
}

// Ensure OllamaCompleter implements Completer.
var _ Completer = (*OllamaCompleter)(nil)
