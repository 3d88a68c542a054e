package local

import (
	"context"
	"strings"
	"testing"
)

// fixedJitter returns an Option that makes every jitter draw constant.
func fixedJitter(v float64) Option {
	return WithJitter(func() float64 { return v })
}

func TestSynthesize_SingleSentenceIsOneChunk(t *testing.T) {
	p := New(fixedJitter(0.04))
	speech, err := p.Synthesize(context.Background(), "take a deep breath with me")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(speech.Plan) != 1 {
		t.Fatalf("plan length = %d, want 1", len(speech.Plan))
	}
	// Single-sentence replies skip jitter entirely.
	if speech.Plan[0].Rate != 0.95 || speech.Plan[0].Pitch != 1.0 {
		t.Fatalf("chunk = %+v", speech.Plan[0])
	}
	if speech.Audio != nil {
		t.Fatal("plan backend must not return audio")
	}
}

func TestSynthesize_MultiSentenceGetsJitter(t *testing.T) {
	p := New(fixedJitter(0.03))
	speech, err := p.Synthesize(context.Background(), "I hear you. That sounds really hard. You are not alone.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(speech.Plan) != 3 {
		t.Fatalf("plan length = %d, want 3", len(speech.Plan))
	}
	// 11 words, no ?/!: base rate 0.9, base pitch 1.0, both jittered.
	approx := func(a, b float64) bool { return a-b < 1e-9 && b-a < 1e-9 }
	for i, c := range speech.Plan {
		if !approx(c.Rate, 0.93) || !approx(c.Pitch, 1.03) {
			t.Fatalf("chunk %d = %+v, want rate 0.93 pitch 1.03", i, c)
		}
	}
	if speech.Plan[0].Text != "I hear you." {
		t.Fatalf("chunk 0 text = %q", speech.Plan[0].Text)
	}
}

func TestSynthesize_QuestionProsody(t *testing.T) {
	p := New(fixedJitter(0))
	speech, _ := p.Synthesize(context.Background(), "would you like to talk about it?")
	c := speech.Plan[0]
	// 7 words, question: 0.95 * 0.95.
	if c.Rate != 0.95*0.95 || c.Pitch != 1.05 {
		t.Fatalf("chunk = %+v", c)
	}
}

func TestSynthesize_BoundsPlanAndMergesOverflow(t *testing.T) {
	var sb strings.Builder
	for range 12 {
		sb.WriteString("Here is one more sentence. ")
	}

	p := New(fixedJitter(0))
	speech, err := p.Synthesize(context.Background(), sb.String())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(speech.Plan) != 8 {
		t.Fatalf("plan length = %d, want 8", len(speech.Plan))
	}
	// 12 sentences into 8 chunks: the last chunk carries the final 5.
	last := speech.Plan[7].Text
	if strings.Count(last, ".") != 5 {
		t.Fatalf("last chunk holds %d sentences: %q", strings.Count(last, "."), last)
	}
}

func TestSynthesize_EmptyTextYieldsEmptyPlan(t *testing.T) {
	p := New(fixedJitter(0))
	speech, err := p.Synthesize(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(speech.Plan) != 0 {
		t.Fatalf("plan length = %d, want 0", len(speech.Plan))
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"No terminal punctuation", []string{"No terminal punctuation"}},
		{"Ends mid thought. and trails off", []string{"Ends mid thought.", "and trails off"}},
		{"Wait... really?", []string{"Wait...", "really?"}},
	}
	for _, tt := range tests {
		got := splitSentences(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("splitSentences(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("splitSentences(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
