package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when the file leaves fields unset.
const (
	DefaultListenAddr      = ":8080"
	DefaultInsightInterval = Duration(30 * time.Minute)
	DefaultLanguage        = "en"
)

// Load reads the YAML configuration file at path, expands ${ENV_VAR}
// references, and returns a validated [Config].
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))
	cfg, err := LoadFromReader(bytes.NewReader([]byte(expanded)))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Environment expansion is the caller's concern.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Providers.STT.Language == "" {
		cfg.Providers.STT.Language = DefaultLanguage
	}
	if cfg.Insights.Interval == 0 {
		cfg.Insights.Interval = DefaultInsightInterval
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if name := cfg.Providers.STT.Cloud.Name; name != "" && name != "deepgram" {
		errs = append(errs, fmt.Errorf("providers.stt.cloud.name %q is unknown; supported: deepgram", name))
	}
	if name := cfg.Providers.TTS.Cloud.Name; name != "" && name != "deepgram" {
		errs = append(errs, fmt.Errorf("providers.tts.cloud.name %q is unknown; supported: deepgram", name))
	}

	switch cfg.Providers.LLM.Name {
	case "", "openai", "groq", "anyllm/openai", "anyllm/anthropic", "anyllm/ollama", "anyllm/mistral", "anyllm/groq":
	default:
		errs = append(errs, fmt.Errorf("providers.llm.name %q is unknown", cfg.Providers.LLM.Name))
	}

	switch cfg.Providers.Embeddings.Name {
	case "", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("providers.embeddings.name %q is unknown; supported: openai, ollama", cfg.Providers.Embeddings.Name))
	}

	if cfg.Journal.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("journal.embedding_dimensions must not be negative"))
	}
	if cfg.Journal.EmbeddingDimensions > 0 && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, fmt.Errorf("journal.embedding_dimensions is set but providers.embeddings is not configured"))
	}

	if cfg.Insights.Interval < 0 {
		errs = append(errs, fmt.Errorf("insights.interval must not be negative"))
	}

	switch cfg.Preferences.MessageLength {
	case "", "concise", "medium", "detailed":
	default:
		errs = append(errs, fmt.Errorf("preferences.message_length %q is unknown; supported: concise, medium, detailed", cfg.Preferences.MessageLength))
	}
	switch cfg.Preferences.ResponseStyle {
	case "", "conversational", "professional", "friendly":
	default:
		errs = append(errs, fmt.Errorf("preferences.response_style %q is unknown; supported: conversational, professional, friendly", cfg.Preferences.ResponseStyle))
	}
	switch cfg.Preferences.SupportStyle {
	case "", "empathetic", "balanced", "motivational", "practical", "reflective":
	default:
		errs = append(errs, fmt.Errorf("preferences.support_style %q is unknown; supported: empathetic, balanced, motivational, practical, reflective", cfg.Preferences.SupportStyle))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %w", errors.Join(errs...))
	}
	return nil
}
