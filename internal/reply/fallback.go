package reply

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/solacevoice/solace/internal/resilience"
	"github.com/solacevoice/solace/pkg/provider/llm"
)

// fallbackPool is spoken when the completion backend fails for a reason
// without a specific line, or returns empty text.
var fallbackPool = []string{
	"I'm here for you. How can I help you feel better today?",
	"That sounds challenging. Would you like to talk more about it?",
	"I understand how you feel. Let's work through this together.",
	"Thank you for sharing that with me. How are you coping?",
	"I'm listening and I care about what you're going through.",
	"Your feelings are valid. What would help you right now?",
	"I appreciate you opening up. Is there anything specific you need?",
	"I'm sorry you're experiencing this. What might make things a bit easier?",
	"You're not alone in this. I'm here to support you.",
	"That's completely understandable. How can I best support you today?",
}

// Specific lines per failure class, so the companion acknowledges the hiccup
// without surfacing an error to the participant.
const (
	lineTimeout     = "I'm having trouble connecting right now. Let's continue our conversation. How are you feeling?"
	lineAuth        = "I'm experiencing a temporary authentication problem. Let's keep talking. What's on your mind?"
	lineRateLimited = "I'm a bit overwhelmed with requests right now. Let's continue our conversation. How are you doing?"
	lineNotFound    = "I'm having trouble with my thinking process right now. But I'm still here to listen. How are you feeling?"
	lineUnavailable = "I'm having a brief technical issue. But I'm still here for you. How can I help?"
)

// fallbackFor maps a completion failure to a spoken line. A nil error means
// the backend answered with empty text; the pool covers that too.
func fallbackFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, llm.ErrTimeout):
		return lineTimeout
	case errors.Is(err, llm.ErrAuth):
		return lineAuth
	case errors.Is(err, llm.ErrRateLimited):
		return lineRateLimited
	case errors.Is(err, llm.ErrNotFound):
		return lineNotFound
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, resilience.ErrCircuitOpen):
		return lineUnavailable
	default:
		return fallbackPool[rand.IntN(len(fallbackPool))]
	}
}
