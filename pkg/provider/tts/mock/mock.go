// Package mock provides an in-memory tts.Synthesizer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/solacevoice/solace/pkg/provider/tts"
)

// Compile-time assertion that Synthesizer satisfies tts.Synthesizer.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Result is one scripted Synthesize outcome.
type Result struct {
	Speech *tts.Speech
	Err    error
}

// Synthesizer is a scripted tts.Synthesizer. Results are consumed in order;
// once the script is exhausted an empty clip is returned. Safe for
// concurrent use.
type Synthesizer struct {
	mu     sync.Mutex
	name   string
	script []Result
	texts  []string
}

// New creates a mock synthesizer with the given scripted results.
func New(script ...Result) *Synthesizer {
	return &Synthesizer{name: "mock", script: script}
}

// WithName overrides the reported backend name.
func (m *Synthesizer) WithName(name string) *Synthesizer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// Synthesize returns the next scripted result and records the input text.
func (m *Synthesizer) Synthesize(ctx context.Context, text string) (*tts.Speech, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	var res Result
	if len(m.script) > 0 {
		res = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Speech == nil {
		return &tts.Speech{Audio: []byte("clip"), Encoding: "mp3"}, nil
	}
	return res.Speech, nil
}

// Name reports the configured backend name.
func (m *Synthesizer) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Texts returns a copy of every synthesised input in call order.
func (m *Synthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}
