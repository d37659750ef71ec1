// Package llm wraps the generative-text oracle behind a stable contract.
package llm

import (
	"context"
	"errors"
)

// ErrGenerationFailed indicates the oracle call failed.
var ErrGenerationFailed = errors.New("text generation failed")

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn supplied as conversation history.
type Message struct {
	Role    Role
	Content string
}

// Completer is the generative-text oracle. Grounding is retrieved context
// the answer must be constrained to; it may be empty.
type Completer interface {
	Complete(ctx context.Context, system string, history []Message, userInput, grounding string) (string, error)
}
