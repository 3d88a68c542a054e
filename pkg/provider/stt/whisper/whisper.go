// Package whisper provides a local transcriber backed by the whisper.cpp CGO
// bindings. It implements the stt.Transcriber interface and serves as the
// degradation target when the cloud transcriber fails: inference runs fully
// on-host, so it keeps working without network access or credentials.
//
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h) must
// be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/solacevoice/solace/pkg/provider/stt"
)

const defaultLanguage = "en"

// wavHeaderSize is the RIFF header length produced by the capture buffer.
const wavHeaderSize = 44

// Compile-time assertion that Provider satisfies stt.Transcriber.
var _ stt.Transcriber = (*Provider)(nil)

// Option is a functional option for configuring the whisper Provider.
type Option func(*Provider)

// WithLanguage sets the language code for transcription (e.g., "en", "hi").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider implements stt.Transcriber using whisper.cpp Go bindings. The
// model is loaded once at startup and shared across all captures; each
// Transcribe call creates its own inference context because whisper contexts
// are not safe for concurrent use.
type Provider struct {
	model    whisperlib.Model
	language string

	// mu serialises inference. One local model on one host transcribing
	// concurrent captures would thrash; callers queue instead.
	mu sync.Mutex
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name identifies the backend in logs and journal entries.
func (p *Provider) Name() string { return "whisper" }

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp inference over one finished capture. The audio
// must be 16 kHz mono 16-bit PCM, either raw (MimePCM16) or wrapped in the
// capture buffer's WAV container (MimeWAV).
func (p *Provider) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	pcm, err := extractPCM(audioData, mimeType)
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", errors.Join(stt.ErrUnavailable, err))
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	samples := pcmToFloat32(pcm)
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", errors.Join(stt.ErrUnavailable, err))
	}

	var sb strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimSpace(segment.Text))
	}
	return strings.TrimSpace(sb.String()), nil
}

// extractPCM strips the WAV container when present and returns raw PCM bytes.
func extractPCM(audioData []byte, mimeType string) ([]byte, error) {
	switch mimeType {
	case stt.MimePCM16:
		return audioData, nil
	case stt.MimeWAV:
		if len(audioData) < wavHeaderSize {
			return nil, nil
		}
		return audioData[wavHeaderSize:], nil
	default:
		return nil, fmt.Errorf("whisper: unsupported mime type %q", mimeType)
	}
}

// pcmToFloat32 converts 16-bit little-endian PCM to the normalised float32
// samples whisper.cpp expects.
func pcmToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return samples
}
