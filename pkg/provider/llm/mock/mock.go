// Package mock provides an in-memory llm.Completer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/solacevoice/solace/pkg/provider/llm"
)

// Compile-time assertion that Completer satisfies llm.Completer.
var _ llm.Completer = (*Completer)(nil)

// Result is one scripted Complete outcome.
type Result struct {
	Content string
	Err     error
}

// Completer is a scripted llm.Completer. Results are consumed in order; once
// the script is exhausted the last result repeats. Safe for concurrent use.
type Completer struct {
	mu       sync.Mutex
	script   []Result
	requests []llm.Request
	delay    chan struct{}
}

// New creates a mock completer with the given scripted results.
func New(script ...Result) *Completer {
	return &Completer{script: script}
}

// Block makes subsequent Complete calls wait until Unblock is called or the
// context is cancelled.
func (m *Completer) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = make(chan struct{})
}

// Unblock releases calls waiting in Block.
func (m *Completer) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delay != nil {
		close(m.delay)
		m.delay = nil
	}
}

// Complete returns the next scripted result and records the request.
func (m *Completer) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	delay := m.delay
	var res Result
	switch {
	case len(m.script) > 1:
		res = m.script[0]
		m.script = m.script[1:]
	case len(m.script) == 1:
		res = m.script[0]
	}
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return &llm.Response{Content: res.Content}, nil
}

// Name identifies the backend in logs and journal entries.
func (m *Completer) Name() string { return "mock" }

// Requests returns a copy of every recorded request in call order.
func (m *Completer) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}
