// Package mock provides an in-memory stt.Transcriber for tests.
package mock

import (
	"context"
	"sync"

	"github.com/solacevoice/solace/pkg/provider/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Call records one Transcribe invocation.
type Call struct {
	AudioLen int
	MimeType string
}

// Transcriber is a scripted stt.Transcriber. Results are consumed in order;
// once the script is exhausted the zero result ("", nil) is returned. Safe
// for concurrent use.
type Transcriber struct {
	mu      sync.Mutex
	name    string
	script  []Result
	calls   []Call
	blockCh chan struct{}
}

// Result is one scripted Transcribe outcome.
type Result struct {
	Text string
	Err  error
}

// New creates a mock transcriber with the given scripted results.
func New(script ...Result) *Transcriber {
	return &Transcriber{name: "mock", script: script}
}

// WithName overrides the reported backend name.
func (m *Transcriber) WithName(name string) *Transcriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// Block makes subsequent Transcribe calls wait until Unblock is called or the
// context is cancelled. Used to test cancellation mid-transcription.
func (m *Transcriber) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockCh = make(chan struct{})
}

// Unblock releases calls waiting in Block.
func (m *Transcriber) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blockCh != nil {
		close(m.blockCh)
		m.blockCh = nil
	}
}

// Transcribe returns the next scripted result.
func (m *Transcriber) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{AudioLen: len(audioData), MimeType: mimeType})
	block := m.blockCh
	var res Result
	if len(m.script) > 0 {
		res = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.Text, res.Err
}

// Name reports the configured backend name.
func (m *Transcriber) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Calls returns a copy of all recorded invocations.
func (m *Transcriber) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
