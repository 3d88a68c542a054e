// Package store defines the session journal: the durable record of every
// conversation a participant has with the companion. A session is one
// conversation; turns are its ordered utterances, each annotated with the
// sentiment screen outcome and the backend that produced it.
//
// Implementations must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("store: session not found")

// Turn authors.
const (
	AuthorParticipant = "participant"
	AuthorCompanion   = "companion"
	AuthorSystem      = "system"
)

// Crisis levels recorded on participant turns.
const (
	CrisisNone     = "none"
	CrisisConcern  = "concern"
	CrisisCritical = "critical"
)

// Session channels.
const (
	ChannelText  = "text"
	ChannelVoice = "voice"
)

// Session is one conversation between a participant and the companion.
type Session struct {
	ID            string
	ParticipantID string

	// Channel is ChannelText or ChannelVoice, fixed at creation.
	Channel   string
	StartedAt time.Time

	// EndedAt is zero while the session is live.
	EndedAt time.Time
}

// Turn is a single utterance inside a session.
type Turn struct {
	ID        string
	SessionID string

	// Seq is the 1-based position within the session, assigned on append.
	Seq int

	// Author is AuthorParticipant or AuthorCompanion.
	Author string

	Text string

	// Sentiment screen outcome. Score is the summed lexicon value,
	// Comparative is score over token count, Label is the bucketed
	// emotion name.
	SentimentScore       int
	SentimentComparative float64
	SentimentLabel       string

	// CrisisLevel is CrisisNone, CrisisConcern, or CrisisCritical.
	// Always CrisisNone on companion turns.
	CrisisLevel string

	// Origin names the backend that produced this turn: the transcriber
	// for participant turns, the completer (or "fallback") for companion
	// turns.
	Origin string

	// TranscriptOnly marks side-channel transcript log entries. These are
	// excluded from reply-generation history.
	TranscriptOnly bool

	CreatedAt time.Time
}

// Journal is the session persistence interface.
type Journal interface {
	// CreateSession opens a new session for the participant on the given
	// channel (ChannelText or ChannelVoice).
	CreateSession(ctx context.Context, participantID, channel string) (*Session, error)

	// EndSession stamps the session's end time. Ending an already ended
	// session is a no-op.
	EndSession(ctx context.Context, sessionID string) error

	// AppendTurn appends one turn, assigning Seq, ID, and CreatedAt when
	// unset. The stored turn is returned.
	AppendTurn(ctx context.Context, sessionID string, turn Turn) (*Turn, error)

	// GetSession returns one session or ErrNotFound.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// ListSessions returns the participant's sessions, newest first.
	ListSessions(ctx context.Context, participantID string) ([]Session, error)

	// Turns returns a session's turns in Seq order.
	Turns(ctx context.Context, sessionID string) ([]Turn, error)

	// DeleteSession removes one session and its turns.
	DeleteSession(ctx context.Context, sessionID string) error

	// ClearAll removes every session belonging to the participant.
	ClearAll(ctx context.Context, participantID string) error
}

// RecallHit is one semantic recall result.
type RecallHit struct {
	Text       string
	Author     string
	Similarity float64
	CreatedAt  time.Time
}

// RecallIndex is the vector index over stored turns used to surface past
// moments related to the current utterance.
type RecallIndex interface {
	// IndexTurn stores the embedding for an appended turn.
	IndexTurn(ctx context.Context, participantID string, turn Turn, embedding []float32) error

	// Recall returns the turns closest in meaning to the query embedding,
	// most similar first.
	Recall(ctx context.Context, participantID string, embedding []float32, limit int) ([]RecallHit, error)
}
