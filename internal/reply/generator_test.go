package reply

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/solacevoice/solace/pkg/provider/llm"
	llmmock "github.com/solacevoice/solace/pkg/provider/llm/mock"
	"github.com/solacevoice/solace/pkg/store"
	"github.com/solacevoice/solace/pkg/store/memstore"
)

func TestBuildSystemPrompt_Deterministic(t *testing.T) {
	prefs := Preferences{
		Name:          "Asha",
		Country:       "Japan",
		MessageLength: LengthConcise,
		ResponseStyle: StyleProfessional,
		SupportStyle:  SupportReflective,
	}
	a := BuildSystemPrompt(prefs)
	b := BuildSystemPrompt(prefs)
	if a != b {
		t.Fatal("prompt not deterministic")
	}
	for _, want := range []string{
		"The user is from Japan.",
		"The user's name is Asha.",
		"extremely brief",
		"slightly more formal",
		"thoughtful questions",
		"Avoid lengthy explanations or clinical language.",
	} {
		if !strings.Contains(a, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildSystemPrompt_Defaults(t *testing.T) {
	p := BuildSystemPrompt(Preferences{})
	for _, want := range []string{
		"Your primary user is from India.",
		"Keep responses very short (1-2 sentences max).",
		"casual, friendly tone with occasional emojis",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("default prompt missing %q", want)
		}
	}
	if strings.Contains(p, "name is") {
		t.Error("default prompt mentions a name")
	}
}

func TestGenerate_UsesBackendReply(t *testing.T) {
	completer := llmmock.New(llmmock.Result{Content: "  I'm glad you told me.  "})
	g := NewGenerator(completer)

	rep := g.Generate(context.Background(), "p1", Preferences{}, nil, "I had a rough day")
	if rep.Fallback {
		t.Fatal("unexpected fallback")
	}
	if rep.Text != "I'm glad you told me." {
		t.Errorf("text = %q", rep.Text)
	}
	if rep.Origin != "mock" {
		t.Errorf("origin = %q, want mock", rep.Origin)
	}
}

func TestGenerate_HistoryExcludesTranscriptOnly(t *testing.T) {
	completer := llmmock.New(llmmock.Result{Content: "ok"})
	g := NewGenerator(completer)

	history := []store.Turn{
		{Author: store.AuthorParticipant, Text: "hello"},
		{Author: store.AuthorSystem, Text: "transcript: hello", TranscriptOnly: true},
		{Author: store.AuthorCompanion, Text: "hi there"},
	}
	g.Generate(context.Background(), "p1", Preferences{}, history, "how are you")

	reqs := completer.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	msgs := reqs[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3 (transcript turn excluded)", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" || msgs[2].Role != "user" {
		t.Errorf("roles = %v %v %v", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if msgs[2].Content != "how are you" {
		t.Errorf("last message = %q", msgs[2].Content)
	}
}

func TestGenerate_FallbackLines(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{llm.ErrTimeout, lineTimeout},
		{llm.ErrAuth, lineAuth},
		{llm.ErrRateLimited, lineRateLimited},
		{llm.ErrNotFound, lineNotFound},
		{llm.ErrUnavailable, lineUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			completer := llmmock.New(llmmock.Result{Err: tc.err})
			g := NewGenerator(completer)

			rep := g.Generate(context.Background(), "p1", Preferences{}, nil, "hi")
			if !rep.Fallback {
				t.Fatal("expected fallback")
			}
			if rep.Text != tc.want {
				t.Errorf("text = %q, want %q", rep.Text, tc.want)
			}
			if rep.Origin != OriginFallback {
				t.Errorf("origin = %q, want %q", rep.Origin, OriginFallback)
			}
		})
	}
}

func TestGenerate_UnknownErrorPicksFromPool(t *testing.T) {
	completer := llmmock.New(llmmock.Result{Err: errors.New("weird")})
	g := NewGenerator(completer)

	rep := g.Generate(context.Background(), "p1", Preferences{}, nil, "hi")
	if !rep.Fallback {
		t.Fatal("expected fallback")
	}
	if !slices.Contains(fallbackPool, rep.Text) {
		t.Errorf("text %q not from the fallback pool", rep.Text)
	}
}

func TestGenerate_EmptyReplyFallsBack(t *testing.T) {
	completer := llmmock.New(llmmock.Result{Content: "   "})
	g := NewGenerator(completer)

	rep := g.Generate(context.Background(), "p1", Preferences{}, nil, "hi")
	if !rep.Fallback {
		t.Fatal("expected fallback on empty backend reply")
	}
	if !slices.Contains(fallbackPool, rep.Text) {
		t.Errorf("text %q not from the fallback pool", rep.Text)
	}
}

func TestGenerate_TimeoutResolvesToFallback(t *testing.T) {
	completer := llmmock.New(llmmock.Result{Content: "too late"})
	completer.Block()
	defer completer.Unblock()

	g := NewGenerator(completer, WithTimeout(20*time.Millisecond))

	rep := g.Generate(context.Background(), "p1", Preferences{}, nil, "hi")
	if !rep.Fallback {
		t.Fatal("expected fallback on timeout")
	}
	if rep.Text != lineTimeout {
		t.Errorf("text = %q, want timeout line", rep.Text)
	}
}

func TestGenerate_RecallSupplementsPrompt(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()

	sess, err := ms.CreateSession(ctx, "p1", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	turn, err := ms.AppendTurn(ctx, sess.ID, store.Turn{
		Author: store.AuthorParticipant,
		Text:   "my exams are stressing me out",
	})
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := ms.IndexTurn(ctx, "p1", *turn, []float32{1, 0, 0}); err != nil {
		t.Fatalf("IndexTurn: %v", err)
	}

	completer := llmmock.New(llmmock.Result{Content: "ok"})
	g := NewGenerator(completer, WithRecall(fixedEmbedder{vec: []float32{1, 0, 0}}, ms))

	g.Generate(ctx, "p1", Preferences{}, nil, "feeling anxious again")

	reqs := completer.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if !strings.Contains(reqs[0].SystemPrompt, "The user has previously shared:") {
		t.Error("system prompt missing recall context")
	}
	if !strings.Contains(reqs[0].SystemPrompt, "exams are stressing me out") {
		t.Error("system prompt missing recalled turn text")
	}
}

// fixedEmbedder returns the same vector for every input.
type fixedEmbedder struct {
	vec []float32
}

func (f fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func (f fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, nil
}

func (f fixedEmbedder) Dimensions() int { return len(f.vec) }
func (f fixedEmbedder) ModelID() string { return "fixed" }
