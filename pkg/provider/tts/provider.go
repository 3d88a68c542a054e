// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// A synthesizer turns one reply into speech in a single call. Backends come
// in two shapes: cloud backends return an encoded audio clip the gateway
// streams to the client, and the local backend returns a synthesis plan of
// prosody-annotated chunks the client's own speech engine executes. Both are
// carried by the Speech type so the coordinator treats them uniformly.
//
// Failures are classified through sentinel errors, mirroring the
// transcription side, so the caller can degrade to the local variant.
package tts

import (
	"context"
	"errors"
	"strings"
)

// Classified synthesis failures.
var (
	// ErrAuth indicates the provider rejected the configured credentials.
	ErrAuth = errors.New("tts: authentication rejected")

	// ErrRateLimited indicates the provider refused the request due to
	// quota or rate limiting.
	ErrRateLimited = errors.New("tts: rate limited")

	// ErrUnavailable indicates a transport failure, timeout, or provider
	// outage. Unlike auth or quota rejections it is treated as transient
	// and does not degrade the session to the local variant.
	ErrUnavailable = errors.New("tts: provider unavailable")
)

// Chunk is one plan entry: a text span with the rate and pitch the client
// engine should apply. Chunks are spoken sequentially, each starting when the
// previous one ends.
type Chunk struct {
	Text  string  `json:"text"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// Speech is the result of one synthesis call. Exactly one of Audio or Plan is
// populated, depending on the backend shape.
type Speech struct {
	// Audio is the encoded clip for cloud backends.
	Audio []byte

	// Encoding names the clip codec (e.g., "mp3"). Empty for plan output.
	Encoding string

	// Plan is the chunk sequence for the local backend.
	Plan []Chunk
}

// Synthesizer is the abstraction over any text-to-speech backend.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Synthesize converts one reply to speech. Implementations receive
	// text that has already had emoji stripped; additional cleanup is
	// backend-specific.
	Synthesize(ctx context.Context, text string) (*Speech, error)

	// Name identifies the backend in logs and journal entries.
	Name() string
}

// Prosody holds the speaking rate and pitch derived from reply content.
type Prosody struct {
	Rate  float64
	Pitch float64
}

// ClipProsody derives the rate and pitch for a single-clip synthesis from
// the reply's shape: long replies speed up slightly, questions slow down and
// lift, exclamations speed up and lift, short replies slow down for clarity.
func ClipProsody(text string) Prosody {
	isQuestion := strings.Contains(text, "?")
	isExclamation := strings.Contains(text, "!")
	words := WordCount(text)

	p := Prosody{Rate: 1.0, Pitch: 1.0}
	switch {
	case words > 30:
		p.Rate = 1.05
	case isQuestion:
		p.Rate = 0.95
	case isExclamation:
		p.Rate = 1.1
	case words < 10:
		p.Rate = 0.92
	}
	if isQuestion {
		p.Pitch = 1.05
	} else if isExclamation {
		p.Pitch = 1.1
	}
	return p
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// StripEmoji removes emoji code points that confuse synthesis engines.
func StripEmoji(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x1F300 && r <= 0x1F9FF {
			return -1
		}
		return r
	}, text)
}
