// Package reply turns a screened participant utterance into the companion's
// next line. The generator never returns an error: any backend failure maps
// to a reassuring spoken fallback so the conversation keeps moving.
package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/solacevoice/solace/internal/observe"
	"github.com/solacevoice/solace/internal/resilience"
	"github.com/solacevoice/solace/pkg/provider/embeddings"
	"github.com/solacevoice/solace/pkg/provider/llm"
	"github.com/solacevoice/solace/pkg/store"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxTokens   = 150
	defaultTemperature = 0.7

	// OriginFallback marks companion turns answered from the fallback
	// pool instead of a backend.
	OriginFallback = "fallback"

	recallLimit = 3
)

// Reply is the companion's next line.
type Reply struct {
	Text string

	// Origin is the completer name, or OriginFallback.
	Origin string

	// Fallback reports whether Text came from the fallback path.
	Fallback bool
}

// Option configures a [Generator].
type Option func(*Generator)

// WithTimeout bounds each completion call. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithRecall enables semantic recall: before each completion, up to three
// past participant turns similar to the current utterance are appended to
// the system prompt as context.
func WithRecall(provider embeddings.Provider, index store.RecallIndex) Option {
	return func(g *Generator) {
		g.embedder = provider
		g.recall = index
	}
}

// WithMetrics records generation latency and fallback counts.
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// Generator produces companion replies. Safe for concurrent use.
type Generator struct {
	completer llm.Completer
	breaker   *resilience.CircuitBreaker
	timeout   time.Duration

	embedder embeddings.Provider
	recall   store.RecallIndex

	metrics *observe.Metrics
}

// NewGenerator creates a [Generator] around the given completer. A circuit
// breaker guards the completion endpoint; an open breaker resolves to the
// fallback path like any other failure. A nil completer serves every reply
// from the fallback pool, which keeps credential-less setups speaking.
func NewGenerator(completer llm.Completer, opts ...Option) *Generator {
	g := &Generator{
		completer: completer,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "completion",
		}),
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate produces the companion's reply to userText given the session
// history. History turns marked TranscriptOnly and system-author turns are
// excluded from the conversation sent to the backend.
func (g *Generator) Generate(ctx context.Context, participantID string, prefs Preferences, history []store.Turn, userText string) Reply {
	start := time.Now()
	defer func() {
		if g.metrics != nil {
			g.metrics.GenerateDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	if g.completer == nil {
		if g.metrics != nil {
			g.metrics.FallbackReplies.Add(ctx, 1)
		}
		return Reply{Text: fallbackFor(nil), Origin: OriginFallback, Fallback: true}
	}

	req := llm.Request{
		SystemPrompt: g.systemPrompt(ctx, participantID, prefs, userText),
		Messages:     conversation(history, userText),
		Temperature:  defaultTemperature,
		MaxTokens:    defaultMaxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var resp *llm.Response
	err := g.breaker.Execute(func() error {
		var innerErr error
		resp, innerErr = g.completer.Complete(callCtx, req)
		return innerErr
	})

	text := ""
	if err == nil && resp != nil {
		text = strings.TrimSpace(resp.Content)
	}
	if err != nil || text == "" {
		if g.metrics != nil {
			g.metrics.FallbackReplies.Add(ctx, 1)
		}
		observe.Logger(ctx).Warn("completion failed, speaking fallback",
			"completer", g.completer.Name(), "error", err)
		return Reply{Text: fallbackFor(err), Origin: OriginFallback, Fallback: true}
	}

	return Reply{Text: text, Origin: g.completer.Name()}
}

// systemPrompt builds the preference prompt, supplemented with semantic
// recall context when the recall index is wired and responsive. Recall
// failures are silent: the prompt is simply unsupplemented.
func (g *Generator) systemPrompt(ctx context.Context, participantID string, prefs Preferences, userText string) string {
	prompt := BuildSystemPrompt(prefs)
	if g.embedder == nil || g.recall == nil {
		return prompt
	}

	vec, err := g.embedder.Embed(ctx, userText)
	if err != nil {
		observe.Logger(ctx).Debug("recall embed failed", "error", err)
		return prompt
	}
	hits, err := g.recall.Recall(ctx, participantID, vec, recallLimit)
	if err != nil || len(hits) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString(" The user has previously shared:")
	for _, h := range hits {
		fmt.Fprintf(&b, " %q.", h.Text)
	}
	return b.String()
}

// conversation maps the persisted history plus the latest utterance into
// completion messages.
func conversation(history []store.Turn, userText string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		if t.TranscriptOnly || t.Author == store.AuthorSystem {
			continue
		}
		role := "user"
		if t.Author == store.AuthorCompanion {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return append(msgs, llm.Message{Role: "user", Content: userText})
}
