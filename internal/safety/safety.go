// Package safety screens participant utterances before they reach the
// companion. Screening is a pure function over the text: a lexicon-based
// sentiment pass produces an emotion label and a comparative score, and a
// crisis pass checks the text against tiered phrase lists, with a phonetic
// near-miss pass to catch misheard critical terms in noisy transcripts.
package safety

import (
	"strings"
	"unicode"
)

// Emotion labels produced by the sentiment pass.
const (
	EmotionVeryNegative = "Very Negative"
	EmotionNegative     = "Negative"
	EmotionNeutral      = "Neutral"
	EmotionPositive     = "Positive"
	EmotionVeryPositive = "Very Positive"
)

// Result is the outcome of screening one utterance.
type Result struct {
	// Emotion is the bucketed sentiment label.
	Emotion string

	// Score is the raw summed lexicon value.
	Score int

	// Comparative is Score divided by the token count. This is the value
	// persisted on the turn.
	Comparative float64

	// CrisisLevel is store.CrisisNone, store.CrisisConcern, or
	// store.CrisisCritical.
	CrisisLevel string
}

const defaultPhoneticThreshold = 0.88

// Option configures a [Screener].
type Option func(*Screener)

// WithExtraPhrases extends the built-in crisis lists with deployment-specific
// phrases. Extra phrases are screened at the concern tier.
func WithExtraPhrases(phrases []string) Option {
	return func(s *Screener) {
		for _, p := range phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				s.extraPhrases = append(s.extraPhrases, p)
			}
		}
	}
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for the phonetic
// near-miss pass. Default: 0.88.
func WithPhoneticThreshold(threshold float64) Option {
	return func(s *Screener) {
		s.phoneticThreshold = threshold
	}
}

// Screener screens utterances. It is read-only after construction and safe
// for concurrent use.
type Screener struct {
	extraPhrases      []string
	phoneticThreshold float64
}

// NewScreener returns a [Screener] configured with the supplied options.
func NewScreener(opts ...Option) *Screener {
	s := &Screener{phoneticThreshold: defaultPhoneticThreshold}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Screen analyses text and returns the combined sentiment and crisis
// outcome. Empty or whitespace-only text is neutral with no crisis level.
func (s *Screener) Screen(text string) Result {
	tokens := tokenize(text)
	score := scoreTokens(tokens)

	var comparative float64
	if len(tokens) > 0 {
		comparative = float64(score) / float64(len(tokens))
	}

	return Result{
		Emotion:     emotionForScore(score),
		Score:       score,
		Comparative: comparative,
		CrisisLevel: s.screenCrisis(text, tokens),
	}
}

// emotionForScore buckets the raw lexicon score.
func emotionForScore(score int) string {
	switch {
	case score <= -5:
		return EmotionVeryNegative
	case score < -2:
		return EmotionNegative
	case score < 2:
		return EmotionNeutral
	case score < 5:
		return EmotionPositive
	default:
		return EmotionVeryPositive
	}
}

// negators flip the sign of the word that follows them.
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "cannot": {},
	"dont": {}, "doesnt": {}, "isnt": {}, "wasnt": {},
	"cant": {}, "wont": {}, "didnt": {}, "couldnt": {},
}

// scoreTokens sums lexicon values over the tokens, flipping the sign of a
// scored word when the preceding token is a negator.
func scoreTokens(tokens []string) int {
	score := 0
	for i, tok := range tokens {
		v, ok := lexicon[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if _, neg := negators[tokens[i-1]]; neg {
				v = -v
			}
		}
		score += v
	}
	return score
}

// tokenize lowercases text and splits it into letter-only tokens.
// Apostrophes are dropped so "can't" tokenizes as "cant".
func tokenize(text string) []string {
	var (
		tokens []string
		b      strings.Builder
	)
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// drop
		default:
			flush()
		}
	}
	flush()
	return tokens
}
