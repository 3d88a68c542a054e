package app

import (
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/solacevoice/solace/internal/config"
	"github.com/solacevoice/solace/pkg/provider/embeddings"
	embedollama "github.com/solacevoice/solace/pkg/provider/embeddings/ollama"
	embedopenai "github.com/solacevoice/solace/pkg/provider/embeddings/openai"
	"github.com/solacevoice/solace/pkg/provider/llm"
	"github.com/solacevoice/solace/pkg/provider/llm/anyllm"
	llmopenai "github.com/solacevoice/solace/pkg/provider/llm/openai"
	"github.com/solacevoice/solace/pkg/provider/stt"
	sttdeepgram "github.com/solacevoice/solace/pkg/provider/stt/deepgram"
	"github.com/solacevoice/solace/pkg/provider/stt/whisper"
	"github.com/solacevoice/solace/pkg/provider/tts"
	ttsdeepgram "github.com/solacevoice/solace/pkg/provider/tts/deepgram"
	ttslocal "github.com/solacevoice/solace/pkg/provider/tts/local"
)

// Providers holds the process-wide backend clients built from configuration.
// Nil slots mean the backend is not configured; per-session degradation
// selectors are layered on top at login time.
type Providers struct {
	// CloudSTT is the preferred transcriber. Nil when no credentials are
	// configured; sessions then run on LocalSTT from the first turn.
	CloudSTT stt.Transcriber

	// LocalSTT is the on-host degradation target. Nil when no whisper
	// model is configured.
	LocalSTT stt.Transcriber

	// CloudTTS is the preferred synthesizer, nil without credentials.
	CloudTTS tts.Synthesizer

	// LocalTTS is the plan-based synthesizer. Always present.
	LocalTTS tts.Synthesizer

	// Completer generates replies. Nil means every turn is answered from
	// the fallback pool.
	Completer llm.Completer

	// Embedder powers semantic recall. Nil disables it.
	Embedder embeddings.Provider

	// closers release backend resources, called during shutdown.
	closers []func() error
}

// Close releases backend resources in reverse order.
func (p *Providers) Close() error {
	var firstErr error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildProviders constructs every configured backend client. A cloud block
// with an empty API key is treated as absent rather than an error, so a
// config with no credentials starts a fully local deployment.
func BuildProviders(cfg *config.Config) (*Providers, error) {
	p := &Providers{}

	if key := cfg.Providers.STT.Cloud.APIKey; key != "" {
		var opts []sttdeepgram.Option
		if cfg.Providers.STT.Language != "" {
			opts = append(opts, sttdeepgram.WithLanguage(cfg.Providers.STT.Language))
		}
		if model := cfg.Providers.STT.Cloud.Model; model != "" {
			opts = append(opts, sttdeepgram.WithModel(model))
		}
		if base := cfg.Providers.STT.Cloud.BaseURL; base != "" {
			opts = append(opts, sttdeepgram.WithBaseURL(base))
		}
		cloud, err := sttdeepgram.New(key, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: build cloud stt: %w", err)
		}
		p.CloudSTT = cloud
	}

	if path := cfg.Providers.STT.Local.ModelPath; path != "" {
		var opts []whisper.Option
		if cfg.Providers.STT.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.Providers.STT.Language))
		}
		local, err := whisper.New(path, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: build local stt: %w", err)
		}
		p.LocalSTT = local
		p.closers = append(p.closers, local.Close)
	}

	if key := cfg.Providers.TTS.Cloud.APIKey; key != "" {
		var opts []ttsdeepgram.Option
		if voice := cfg.Providers.TTS.Voice; voice != "" {
			opts = append(opts, ttsdeepgram.WithVoice(voice))
		}
		if base := cfg.Providers.TTS.Cloud.BaseURL; base != "" {
			opts = append(opts, ttsdeepgram.WithBaseURL(base))
		}
		cloud, err := ttsdeepgram.New(key, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: build cloud tts: %w", err)
		}
		p.CloudTTS = cloud
	}
	p.LocalTTS = ttslocal.New()

	completer, err := buildCompleter(cfg.Providers.LLM)
	if err != nil {
		return nil, err
	}
	p.Completer = completer

	embedder, err := buildEmbedder(cfg.Providers.Embeddings)
	if err != nil {
		return nil, err
	}
	p.Embedder = embedder

	return p, nil
}

// buildCompleter maps the configured LLM name to a backend. An empty name
// returns nil: the reply generator then serves every turn from the fallback
// pool, which keeps credential-less dev setups speaking.
func buildCompleter(entry config.ProviderEntry) (llm.Completer, error) {
	switch entry.Name {
	case "":
		return nil, nil

	case "openai":
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		c, err := llmopenai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: build openai completer: %w", err)
		}
		return c, nil

	case "groq":
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		c, err := anyllm.NewGroq(entry.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: build groq completer: %w", err)
		}
		return c, nil

	default:
		// "anyllm/<backend>" names route through the multi-provider shim.
		backend, ok := strings.CutPrefix(entry.Name, "anyllm/")
		if !ok {
			return nil, fmt.Errorf("app: unknown llm provider %q", entry.Name)
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		c, err := anyllm.New(backend, entry.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: build %s completer: %w", entry.Name, err)
		}
		return c, nil
	}
}

func buildEmbedder(entry config.ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "":
		return nil, nil

	case "openai":
		var opts []embedopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, embedopenai.WithBaseURL(entry.BaseURL))
		}
		e, err := embedopenai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: build openai embedder: %w", err)
		}
		return e, nil

	case "ollama":
		e, err := embedollama.New(entry.BaseURL, entry.Model)
		if err != nil {
			return nil, fmt.Errorf("app: build ollama embedder: %w", err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("app: unknown embeddings provider %q", entry.Name)
	}
}
