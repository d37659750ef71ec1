// Package conversation answers questions against a restricted document set,
// keeping per-thread history in durable checkpoints.
//
// A thread is identified by the (course, user) pair. Each query runs one
// answer turn: load history, retrieve grounding chunks, generate, append
// both new messages, persist. Turns for the same thread are serialized with
// a per-thread mutex so concurrent queries cannot lose updates.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlabs/tutord/internal/checkpoint"
	"github.com/tutorlabs/tutord/internal/llm"
	"github.com/tutorlabs/tutord/internal/vectorstore"
)

// ErrChatFailed indicates an answer turn could not be completed.
var ErrChatFailed = errors.New("chat turn failed")

// systemPrompt is the assistant persona with the off-topic policy.
const systemPrompt = `You are an educational assistant. Answer the question based on the context provided.
If the question seems off-topic, ask for clarification. If it's still off topic then say you can't help.
If the question is not clear, ask for clarification.`

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config configures the conversation engine.
type Config struct {
	// Namespace partitions checkpoint keys.
	Namespace string

	// RetrievalK is how many chunks ground each answer.
	RetrievalK int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "chat"
	}
	if c.RetrievalK == 0 {
		c.RetrievalK = 10
	}
}

// AskRequest is one inbound query. AllowedDocIDs is the pre-authorized
// document set for the course; the engine performs no authorization itself.
type AskRequest struct {
	CourseID      string
	UserID        string
	Query         string
	AllowedDocIDs []string
}

// Engine runs answer turns.
type Engine struct {
	index       vectorstore.Index
	embedder    QueryEmbedder
	completer   llm.Completer
	checkpoints checkpoint.Store
	config      Config
	logger      *zap.Logger
	threads     *keyedMutex
}

// NewEngine creates a conversation engine.
func NewEngine(index vectorstore.Index, embedder QueryEmbedder, completer llm.Completer, checkpoints checkpoint.Store, cfg Config, logger *zap.Logger) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	return &Engine{
		index:       index,
		embedder:    embedder,
		completer:   completer,
		checkpoints: checkpoints,
		config:      cfg,
		logger:      logger.Named("conversation"),
		threads:     newKeyedMutex(),
	}, nil
}

// ThreadID derives the thread identity for a (course, user) pair.
func ThreadID(courseID, userID string) string {
	return courseID + "_" + userID
}

// Ask runs one answer turn and returns the assistant's reply.
//
// The thread's history read-modify-write is serialized: two concurrent calls
// for the same (course, user) run one after the other, and both of their
// turns end up in the checkpoint.
func (e *Engine) Ask(ctx context.Context, req AskRequest) (string, error) {
	if req.Query == "" {
		return "", fmt.Errorf("%w: empty query", ErrChatFailed)
	}

	threadID := ThreadID(req.CourseID, req.UserID)
	unlock := e.threads.Lock(threadID)
	defer unlock()

	start := time.Now()

	history, err := e.checkpoints.Get(ctx, e.config.Namespace, threadID)
	if err != nil {
		return "", fmt.Errorf("%w: loading history: %v", ErrChatFailed, err)
	}

	grounding, err := e.retrieve(ctx, req.Query, req.AllowedDocIDs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	answer, err := e.completer.Complete(ctx, systemPrompt, toLLMHistory(history), req.Query, grounding)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	history = append(history,
		checkpoint.Message{Role: checkpoint.RoleUser, Content: req.Query},
		checkpoint.Message{Role: checkpoint.RoleAssistant, Content: answer},
	)
	if err := e.checkpoints.Put(ctx, e.config.Namespace, threadID, history); err != nil {
		return "", fmt.Errorf("%w: saving history: %v", ErrChatFailed, err)
	}

	e.logger.Info("answered turn",
		zap.String("thread_id", threadID),
		zap.Int("history_len", len(history)),
		zap.Int("allowed_docs", len(req.AllowedDocIDs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return answer, nil
}

// History returns the thread's stored message list.
func (e *Engine) History(ctx context.Context, courseID, userID string) ([]checkpoint.Message, error) {
	return e.checkpoints.Get(ctx, e.config.Namespace, ThreadID(courseID, userID))
}

// retrieve embeds the query and gathers the grounding context restricted to
// the allowed document set.
func (e *Engine) retrieve(ctx context.Context, query string, allowedDocIDs []string) (string, error) {
	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.index.Search(ctx, vector, e.config.RetrievalK, allowedDocIDs)
	if err != nil {
		return "", fmt.Errorf("searching index: %w", err)
	}

	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Text
	}
	return strings.Join(texts, "\n\n"), nil
}

func toLLMHistory(history []checkpoint.Message) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, msg := range history {
		role := llm.RoleUser
		if msg.Role == checkpoint.RoleAssistant {
			role = llm.RoleAssistant
		}
		out[i] = llm.Message{Role: role, Content: msg.Content}
	}
	return out
}
