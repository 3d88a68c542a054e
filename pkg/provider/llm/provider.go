// Package llm defines the Completer interface for reply-generation backends.
//
// A completer wraps a chat-completion API (e.g., Groq, OpenAI, or a local
// Ollama instance) behind a uniform non-streaming interface. The companion
// speaks in short conversational turns, so replies are small and a single
// round-trip per turn is the natural shape.
//
// Failures are classified through sentinel errors so the reply layer can pick
// the matching spoken fallback line without knowing the backend.
package llm

import (
	"context"
	"errors"
)

// Classified completion failures.
var (
	// ErrAuth indicates the backend rejected the configured credentials.
	ErrAuth = errors.New("llm: authentication rejected")

	// ErrRateLimited indicates the backend refused the request due to
	// quota or rate limiting.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrNotFound indicates the configured model or endpoint does not
	// exist on the backend.
	ErrNotFound = errors.New("llm: model or endpoint not found")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("llm: request timed out")

	// ErrUnavailable indicates a transport failure or backend outage.
	ErrUnavailable = errors.New("llm: backend unavailable")
)

// Message is a single entry in the conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text of the message.
	Content string
}

// Request carries everything the backend needs to produce a reply.
type Request struct {
	// SystemPrompt is injected before the conversation history.
	SystemPrompt string

	// Messages is the ordered conversation history. The last message is
	// the participant utterance that drives the reply.
	Messages []Message

	// Temperature controls output randomness. Zero means backend default.
	Temperature float64

	// MaxTokens caps the reply length. Zero means backend default.
	MaxTokens int
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the backend's reply.
type Response struct {
	Content string
	Usage   Usage
}

// Completer is the abstraction over any reply-generation backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
type Completer interface {
	// Complete sends the request and waits for the full reply. Failures
	// are wrapped around one of the package sentinel errors.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name identifies the backend in logs and journal entries.
	Name() string
}
