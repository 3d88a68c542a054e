package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solacevoice/solace/pkg/store"
	"github.com/solacevoice/solace/pkg/store/postgres"
)

const testEmbeddingDim = 4

// testDSN returns the test database DSN from the environment, or skips the
// test if SOLACE_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("SOLACE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SOLACE_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh store with a clean schema.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS turn_vectors, turns, sessions CASCADE`); err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	s, err := postgres.New(ctx, dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestJournalRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "participant-1", store.ChannelVoice)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == "" || sess.StartedAt.IsZero() {
		t.Fatalf("session = %+v", sess)
	}
	if sess.Channel != store.ChannelVoice {
		t.Fatalf("channel = %q, want voice", sess.Channel)
	}

	first, err := s.AppendTurn(ctx, sess.ID, store.Turn{
		Author:         store.AuthorParticipant,
		Text:           "i had a rough day",
		SentimentScore: -3,
		SentimentLabel: "sad",
		Origin:         "deepgram",
	})
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if first.Seq != 1 {
		t.Fatalf("first seq = %d", first.Seq)
	}

	second, err := s.AppendTurn(ctx, sess.ID, store.Turn{
		Author: store.AuthorCompanion,
		Text:   "that sounds hard, tell me more",
		Origin: "groq",
	})
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if second.Seq != 2 {
		t.Fatalf("second seq = %d", second.Seq)
	}

	turns, err := s.Turns(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 2 || turns[0].Text != "i had a rough day" {
		t.Fatalf("turns = %+v", turns)
	}
	if turns[1].CrisisLevel != store.CrisisNone {
		t.Fatalf("companion crisis level = %q", turns[1].CrisisLevel)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].CreatedAt.Before(turns[i-1].CreatedAt) {
			t.Fatalf("timestamps regress: turn %d at %v before turn %d at %v",
				turns[i].Seq, turns[i].CreatedAt, turns[i-1].Seq, turns[i-1].CreatedAt)
		}
	}

	listed, err := s.ListSessions(ctx, "participant-1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != sess.ID {
		t.Fatalf("listed = %+v", listed)
	}

	if err := s.EndSession(ctx, sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.EndedAt.IsZero() {
		t.Fatal("EndedAt not stamped")
	}

	if err := s.ClearAll(ctx, "participant-1"); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if _, err := s.GetSession(ctx, sess.ID); err != store.ErrNotFound {
		t.Fatalf("after clear: %v", err)
	}
}

func TestRecall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "participant-1", store.ChannelText)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	turnA, _ := s.AppendTurn(ctx, sess.ID, store.Turn{Author: store.AuthorParticipant, Text: "work stress"})
	turnB, _ := s.AppendTurn(ctx, sess.ID, store.Turn{Author: store.AuthorParticipant, Text: "holiday plans"})

	if err := s.IndexTurn(ctx, "participant-1", *turnA, []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("IndexTurn: %v", err)
	}
	if err := s.IndexTurn(ctx, "participant-1", *turnB, []float32{0, 1, 0, 0}); err != nil {
		t.Fatalf("IndexTurn: %v", err)
	}

	hits, err := s.Recall(ctx, "participant-1", []float32{0.9, 0.1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "work stress" {
		t.Fatalf("hits = %+v", hits)
	}

	// Other participants never see these vectors.
	hits, err = s.Recall(ctx, "participant-2", []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("cross-participant hits = %+v", hits)
	}
}
