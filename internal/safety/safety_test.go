package safety

import (
	"math"
	"testing"

	"github.com/solacevoice/solace/pkg/store"
)

func TestScreen_EmptyText(t *testing.T) {
	res := NewScreener().Screen("   ")
	if res.Emotion != EmotionNeutral {
		t.Errorf("emotion = %q, want neutral", res.Emotion)
	}
	if res.Score != 0 || res.Comparative != 0 {
		t.Errorf("score = %d comparative = %v, want zero", res.Score, res.Comparative)
	}
	if res.CrisisLevel != store.CrisisNone {
		t.Errorf("crisis = %q, want none", res.CrisisLevel)
	}
}

func TestScreen_SentimentBuckets(t *testing.T) {
	cases := []struct {
		text    string
		emotion string
	}{
		{"I feel really happy and loved today", EmotionVeryPositive},
		{"What a beautiful morning", EmotionPositive},
		{"I went to the shop and bought bread", EmotionNeutral},
		{"I am so sad and lonely", EmotionNegative},
		{"everything is hopeless and I feel worthless", EmotionVeryNegative},
	}
	s := NewScreener()
	for _, tc := range cases {
		t.Run(tc.emotion, func(t *testing.T) {
			res := s.Screen(tc.text)
			if res.Emotion != tc.emotion {
				t.Errorf("Screen(%q).Emotion = %q (score %d), want %q",
					tc.text, res.Emotion, res.Score, tc.emotion)
			}
		})
	}
}

func TestScreen_Comparative(t *testing.T) {
	// "happy" +3 and "loved" +3 over 7 tokens.
	res := NewScreener().Screen("I feel really happy and loved today")
	if res.Score != 6 {
		t.Fatalf("score = %d, want 6", res.Score)
	}
	want := 6.0 / 7.0
	if math.Abs(res.Comparative-want) > 1e-9 {
		t.Errorf("comparative = %v, want %v", res.Comparative, want)
	}
}

func TestScreen_NegationFlips(t *testing.T) {
	s := NewScreener()
	pos := s.Screen("I am happy")
	neg := s.Screen("I am not happy")
	if pos.Score != 3 {
		t.Fatalf("positive score = %d, want 3", pos.Score)
	}
	if neg.Score != -3 {
		t.Errorf("negated score = %d, want -3", neg.Score)
	}
}

func TestScreen_CriticalPhrases(t *testing.T) {
	s := NewScreener()
	for _, text := range []string{
		"I want to end my life",
		"i am in danger right now",
		"SOMEONE HELP ME",
		"mujhe aatmahatya ke khayal aate hain",
	} {
		if res := s.Screen(text); res.CrisisLevel != store.CrisisCritical {
			t.Errorf("Screen(%q).CrisisLevel = %q, want critical", text, res.CrisisLevel)
		}
	}
}

func TestScreen_ConcernKeywords(t *testing.T) {
	s := NewScreener()
	for _, text := range []string{
		"I had a panic attack yesterday",
		"there is so much mental tension at home",
		"main bahut pareshan hoon",
	} {
		if res := s.Screen(text); res.CrisisLevel != store.CrisisConcern {
			t.Errorf("Screen(%q).CrisisLevel = %q, want concern", text, res.CrisisLevel)
		}
	}
}

func TestScreen_PhoneticNearMissPromotes(t *testing.T) {
	res := NewScreener().Screen("I keep thinking about suiside")
	if res.CrisisLevel != store.CrisisCritical {
		t.Errorf("crisis = %q, want critical for phonetic near-miss", res.CrisisLevel)
	}
}

func TestScreen_PhoneticNeverDowngrades(t *testing.T) {
	// A clean critical substring stays critical regardless of the
	// phonetic threshold.
	s := NewScreener(WithPhoneticThreshold(1.1))
	if res := s.Screen("I want to end my life"); res.CrisisLevel != store.CrisisCritical {
		t.Errorf("crisis = %q, want critical", res.CrisisLevel)
	}
}

func TestScreen_ExtraPhrases(t *testing.T) {
	s := NewScreener(WithExtraPhrases([]string{"Custom Phrase", "  "}))
	if res := s.Screen("this mentions a custom phrase somewhere"); res.CrisisLevel != store.CrisisConcern {
		t.Errorf("crisis = %q, want concern for extra phrase", res.CrisisLevel)
	}
}

func TestScreen_CleanTextNoCrisis(t *testing.T) {
	if res := NewScreener().Screen("I had a lovely walk in the park"); res.CrisisLevel != store.CrisisNone {
		t.Errorf("crisis = %q, want none", res.CrisisLevel)
	}
}

func TestTokenize_DropsApostrophes(t *testing.T) {
	got := tokenize("I can't, won't!")
	want := []string{"i", "cant", "wont"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", got, want)
		}
	}
}
