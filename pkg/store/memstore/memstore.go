// Package memstore provides an in-memory journal and recall index. It backs
// tests and serves as the mirror target when the primary journal degrades:
// sessions keep accumulating in memory so the conversation continues, at the
// cost of durability.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solacevoice/solace/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.Journal     = (*Store)(nil)
	_ store.RecallIndex = (*Store)(nil)
	_ store.Mirror      = (*Store)(nil)
)

// Store is the in-memory journal. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*store.Session
	turns    map[string][]store.Turn

	vectors map[string]vectorEntry
}

type vectorEntry struct {
	participantID string
	turn          store.Turn
	embedding     []float32
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*store.Session),
		turns:    make(map[string][]store.Turn),
		vectors:  make(map[string]vectorEntry),
	}
}

// CreateSession implements [store.Journal].
func (s *Store) CreateSession(_ context.Context, participantID, channel string) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &store.Session{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Channel:       channel,
		StartedAt:     time.Now(),
	}
	s.sessions[sess.ID] = sess
	return copySession(sess), nil
}

// ImportSession adopts a session created by another journal, keeping the
// original ID. Used by the resilient wrapper to mirror the primary.
func (s *Store) ImportSession(sess store.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sess
	s.sessions[sess.ID] = &cp
}

// EndSession implements [store.Journal].
func (s *Store) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return store.ErrNotFound
	}
	if sess.EndedAt.IsZero() {
		sess.EndedAt = time.Now()
	}
	return nil
}

// AppendTurn implements [store.Journal].
func (s *Store) AppendTurn(_ context.Context, sessionID string, turn store.Turn) (*store.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, store.ErrNotFound
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CrisisLevel == "" {
		turn.CrisisLevel = store.CrisisNone
	}
	turn.SessionID = sessionID
	turn.Seq = len(s.turns[sessionID]) + 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.turns[sessionID] = append(s.turns[sessionID], turn)

	out := turn
	return &out, nil
}

// GetSession implements [store.Journal].
func (s *Store) GetSession(_ context.Context, sessionID string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copySession(sess), nil
}

// ListSessions implements [store.Journal].
func (s *Store) ListSessions(_ context.Context, participantID string) ([]store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []store.Session{}
	for _, sess := range s.sessions {
		if sess.ParticipantID == participantID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// Turns implements [store.Journal].
func (s *Store) Turns(_ context.Context, sessionID string) ([]store.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, store.ErrNotFound
	}
	out := make([]store.Turn, len(s.turns[sessionID]))
	copy(out, s.turns[sessionID])
	return out, nil
}

// DeleteSession implements [store.Journal].
func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, turn := range s.turns[sessionID] {
		delete(s.vectors, turn.ID)
	}
	delete(s.sessions, sessionID)
	delete(s.turns, sessionID)
	return nil
}

// ClearAll implements [store.Journal].
func (s *Store) ClearAll(_ context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.ParticipantID != participantID {
			continue
		}
		for _, turn := range s.turns[id] {
			delete(s.vectors, turn.ID)
		}
		delete(s.sessions, id)
		delete(s.turns, id)
	}
	return nil
}

// IndexTurn implements [store.RecallIndex].
func (s *Store) IndexTurn(_ context.Context, participantID string, turn store.Turn, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	s.vectors[turn.ID] = vectorEntry{participantID: participantID, turn: turn, embedding: vec}
	return nil
}

// Recall implements [store.RecallIndex] using cosine similarity.
func (s *Store) Recall(_ context.Context, participantID string, embedding []float32, limit int) ([]store.RecallHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []store.RecallHit
	for _, entry := range s.vectors {
		if entry.participantID != participantID {
			continue
		}
		hits = append(hits, store.RecallHit{
			Text:       entry.turn.Text,
			Author:     entry.turn.Author,
			Similarity: cosine(embedding, entry.embedding),
			CreatedAt:  entry.turn.CreatedAt,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func copySession(sess *store.Session) *store.Session {
	out := *sess
	return &out
}

// cosine returns the cosine similarity of two vectors, 0 when either is zero
// or lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
