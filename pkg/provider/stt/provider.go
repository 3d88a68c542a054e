// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber turns one finished microphone capture into text in a single
// call. The pipeline records the whole utterance first and transcribes it as a
// batch, so the interface is deliberately not streaming: one capture in, one
// transcript out.
//
// Failures are classified through sentinel errors so the caller can decide
// between retrying, degrading to the local variant, or surfacing the problem
// to the participant. An empty transcript with a nil error means the capture
// contained no recognisable speech; that outcome is not an error.
package stt

import (
	"context"
	"errors"
)

// MIME types accepted by Transcribe. Cloud variants receive a WAV container;
// the local variant receives raw 16 kHz mono PCM.
const (
	MimeWAV   = "audio/wav"
	MimePCM16 = "audio/l16;rate=16000"
)

// Classified transcription failures. Providers wrap these so callers can use
// errors.Is without knowing the backend.
var (
	// ErrAuth indicates the provider rejected the configured credentials.
	ErrAuth = errors.New("stt: authentication rejected")

	// ErrRateLimited indicates the provider refused the request due to
	// quota or rate limiting.
	ErrRateLimited = errors.New("stt: rate limited")

	// ErrUnavailable indicates a transport failure, timeout, or provider
	// outage. Unlike auth or quota rejections it is treated as transient
	// and does not degrade the session to the local variant.
	ErrUnavailable = errors.New("stt: provider unavailable")
)

// Transcriber is the abstraction over any speech-to-text backend.
//
// Implementations must be safe for concurrent use; the server may transcribe
// captures from multiple participants simultaneously.
type Transcriber interface {
	// Transcribe converts one finished capture to text. The audio payload
	// format is described by mimeType (MimeWAV or MimePCM16).
	//
	// An empty string with a nil error means no speech was detected.
	// Failures are wrapped around one of the package sentinel errors.
	Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error)

	// Name identifies the backend in logs and journal entries.
	Name() string
}
