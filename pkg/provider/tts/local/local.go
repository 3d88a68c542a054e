// Package local provides the degraded text-to-speech backend. It implements
// tts.Synthesizer but produces no audio itself: the output is a synthesis
// plan of sentence chunks with prosody values that the client's own speech
// engine executes. Because nothing leaves the host, this backend cannot fail
// for network or credential reasons and is always a safe degradation target.
package local

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/solacevoice/solace/pkg/provider/tts"
)

// maxChunks bounds the plan length. Replies long enough to exceed it get the
// overflow merged into the final chunk so the client never receives an
// unbounded plan.
const maxChunks = 8

// jitterSpan is the width of the per-chunk rate and pitch variation.
const jitterSpan = 0.1

// Compile-time assertion that Planner satisfies tts.Synthesizer.
var _ tts.Synthesizer = (*Planner)(nil)

// Option is a functional option for configuring the Planner.
type Option func(*Planner)

// WithJitter overrides the per-chunk prosody variation source. The function
// must return values in [-0.05, 0.05). Used in tests for determinism.
func WithJitter(f func() float64) Option {
	return func(p *Planner) { p.jitter = f }
}

// Planner builds synthesis plans for client-side speech.
type Planner struct {
	jitter func() float64
}

// New creates a Planner with randomised per-chunk prosody variation.
func New(opts ...Option) *Planner {
	p := &Planner{
		jitter: func() float64 { return rand.Float64()*jitterSpan - jitterSpan/2 },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name identifies the backend in logs and journal entries.
func (p *Planner) Name() string { return "local" }

// Synthesize splits the reply into sentences and returns a plan of at most
// maxChunks chunks. Multi-sentence replies get slight per-chunk rate and
// pitch variation so chained client utterances do not sound mechanical;
// single-sentence replies are one chunk with the base prosody.
func (p *Planner) Synthesize(_ context.Context, text string) (*tts.Speech, error) {
	base := planProsody(text)

	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		chunk := strings.TrimSpace(text)
		if chunk == "" {
			return &tts.Speech{}, nil
		}
		return &tts.Speech{Plan: []tts.Chunk{{Text: chunk, Rate: base.Rate, Pitch: base.Pitch}}}, nil
	}

	if len(sentences) > maxChunks {
		merged := strings.Join(sentences[maxChunks-1:], " ")
		sentences = append(sentences[:maxChunks-1:maxChunks-1], merged)
	}

	plan := make([]tts.Chunk, 0, len(sentences))
	for _, s := range sentences {
		plan = append(plan, tts.Chunk{
			Text:  s,
			Rate:  base.Rate + p.jitter(),
			Pitch: base.Pitch + p.jitter(),
		})
	}
	return &tts.Speech{Plan: plan}, nil
}

// planProsody derives the base rate and pitch for client-side synthesis.
// The client engine speaks slower than the cloud voice, so the rate band
// sits below 1.0.
func planProsody(text string) tts.Prosody {
	words := tts.WordCount(text)

	rate := 0.9
	if words < 10 {
		rate = 0.95
	} else if words > 30 {
		rate = 0.85
	}

	pitch := 1.0
	if strings.Contains(text, "?") {
		rate *= 0.95
		pitch = 1.05
	} else if strings.Contains(text, "!") {
		rate *= 1.1
		pitch = 1.1
	}
	return tts.Prosody{Rate: rate, Pitch: pitch}
}

var sentenceEnd = regexp.MustCompile(`([^.!?]+[.!?]+)`)

// splitSentences breaks text into sentences, keeping terminal punctuation
// attached. Trailing text without punctuation becomes its own sentence.
func splitSentences(text string) []string {
	var out []string
	consumed := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[loc[0]:loc[1]])
		if s != "" {
			out = append(out, s)
		}
		consumed = loc[1]
	}
	if rest := strings.TrimSpace(text[consumed:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
