package safety

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/solacevoice/solace/pkg/store"
)

// criticalPhrases immediately force the crisis redirect. Matched as
// case-insensitive substrings, first.
var criticalPhrases = []string{
	"suicide", "kill myself", "end my life", "die", "wanna commit suicide",
	"i wanna commit suicide", "she is abusing me", "he is abusing me",
	"being abused", "abusing me", "help me", "emergency", "in danger",
	"want to die", "going to kill", "hurt myself", "self-harm",
	"khudkhushi", "aatmahatya", "marna chahta",
}

// concernKeywords raise a dismissible advisory banner. Includes Hindi and
// Hinglish terms common in the deployments this started in.
var concernKeywords = []string{
	"don't want to live", "overdose", "no reason to live",
	"better off dead", "can't take it anymore", "unbearable pain",
	"life is meaningless", "urgent help", "severe anxiety",
	"panic attack", "assault", "violence", "abuse", "trauma",

	"mental tension", "tension", "under pressure", "bhaar", "pareshani",
	"udaas", "tanha", "akela", "helpless", "nirasha", "depression",
	"jeena nahi chahta", "pareshan", "chinta", "ghabrahat",
	"dar", "dukhi", "child abuse", "bachon ka shoshan", "takleef",
	"dard", "peedha",
}

// phoneticTargets are single critical words the near-miss pass checks
// against. Short words are excluded: Jaro-Winkler is too permissive there.
var phoneticTargets = []string{
	"suicide", "emergency", "overdose", "khudkhushi", "aatmahatya",
}

// screenCrisis returns the crisis level for text. Substring hits decide
// first; the phonetic pass can only promote a miss to critical, never
// downgrade a hit.
func (s *Screener) screenCrisis(text string, tokens []string) string {
	lower := strings.ToLower(text)

	for _, phrase := range criticalPhrases {
		if strings.Contains(lower, phrase) {
			return store.CrisisCritical
		}
	}

	if s.phoneticNearMiss(tokens) {
		return store.CrisisCritical
	}

	for _, kw := range concernKeywords {
		if strings.Contains(lower, kw) {
			return store.CrisisConcern
		}
	}
	for _, p := range s.extraPhrases {
		if strings.Contains(lower, p) {
			return store.CrisisConcern
		}
	}

	return store.CrisisNone
}

// phoneticNearMiss reports whether any token is a likely mistranscription of
// a critical term: same Double Metaphone code and Jaro-Winkler similarity at
// or above the threshold.
func (s *Screener) phoneticNearMiss(tokens []string) bool {
	for _, tok := range tokens {
		if len(tok) < 5 {
			continue
		}
		tp, ts := matchr.DoubleMetaphone(tok)
		for _, target := range phoneticTargets {
			gp, gs := matchr.DoubleMetaphone(target)
			if !codesMatch(tp, ts, gp, gs) {
				continue
			}
			if matchr.JaroWinkler(tok, target, false) >= s.phoneticThreshold {
				return true
			}
		}
	}
	return false
}

// codesMatch reports whether any non-empty Double Metaphone code of the
// token matches any code of the target.
func codesMatch(tp, ts, gp, gs string) bool {
	for _, a := range []string{tp, ts} {
		if a == "" {
			continue
		}
		if a == gp || (gs != "" && a == gs) {
			return true
		}
	}
	return false
}
