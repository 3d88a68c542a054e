package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solacevoice/solace/pkg/store"
)

// CreateSession implements [store.Journal].
func (s *Store) CreateSession(ctx context.Context, participantID, channel string) (*store.Session, error) {
	sess := store.Session{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Channel:       channel,
	}

	const q = `
		INSERT INTO sessions (id, participant_id, channel)
		VALUES ($1, $2, $3)
		RETURNING started_at`

	if err := s.pool.QueryRow(ctx, q, sess.ID, participantID, channel).Scan(&sess.StartedAt); err != nil {
		return nil, fmt.Errorf("postgres journal: create session: %w", err)
	}
	return &sess, nil
}

// EndSession implements [store.Journal].
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	const q = `UPDATE sessions SET ended_at = now() WHERE id = $1 AND ended_at IS NULL`
	if _, err := s.pool.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("postgres journal: end session: %w", err)
	}
	return nil
}

// AppendTurn implements [store.Journal]. Seq is assigned inside the insert;
// turn writes for one session are serialised by the coordinator, so the
// max+1 subquery cannot race with itself.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn store.Turn) (*store.Turn, error) {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	turn.SessionID = sessionID
	if turn.CrisisLevel == "" {
		turn.CrisisLevel = store.CrisisNone
	}

	const q = `
		INSERT INTO turns
		    (id, session_id, seq, author, text,
		     sentiment_score, sentiment_comparative, sentiment_label,
		     crisis_level, origin, transcript_only)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6, $7, $8, $9, $10
		FROM   turns
		WHERE  session_id = $2
		RETURNING seq, created_at`

	err := s.pool.QueryRow(ctx, q,
		turn.ID,
		sessionID,
		turn.Author,
		turn.Text,
		turn.SentimentScore,
		turn.SentimentComparative,
		turn.SentimentLabel,
		turn.CrisisLevel,
		turn.Origin,
		turn.TranscriptOnly,
	).Scan(&turn.Seq, &turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres journal: append turn: %w", err)
	}
	return &turn, nil
}

// GetSession implements [store.Journal].
func (s *Store) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	const q = `
		SELECT id, participant_id, channel, started_at, ended_at
		FROM   sessions
		WHERE  id = $1`

	sess, err := scanSession(s.pool.QueryRow(ctx, q, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres journal: get session: %w", err)
	}
	return sess, nil
}

// ListSessions implements [store.Journal].
func (s *Store) ListSessions(ctx context.Context, participantID string) ([]store.Session, error) {
	const q = `
		SELECT id, participant_id, channel, started_at, ended_at
		FROM   sessions
		WHERE  participant_id = $1
		ORDER  BY started_at DESC`

	rows, err := s.pool.Query(ctx, q, participantID)
	if err != nil {
		return nil, fmt.Errorf("postgres journal: list sessions: %w", err)
	}

	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Session, error) {
		sess, err := scanSession(row)
		if err != nil {
			return store.Session{}, err
		}
		return *sess, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres journal: scan sessions: %w", err)
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	return sessions, nil
}

// Turns implements [store.Journal].
func (s *Store) Turns(ctx context.Context, sessionID string) ([]store.Turn, error) {
	const q = `
		SELECT id, seq, author, text,
		       sentiment_score, sentiment_comparative, sentiment_label,
		       crisis_level, origin, transcript_only, created_at
		FROM   turns
		WHERE  session_id = $1
		ORDER  BY seq`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres journal: turns: %w", err)
	}

	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Turn, error) {
		t := store.Turn{SessionID: sessionID}
		err := row.Scan(
			&t.ID,
			&t.Seq,
			&t.Author,
			&t.Text,
			&t.SentimentScore,
			&t.SentimentComparative,
			&t.SentimentLabel,
			&t.CrisisLevel,
			&t.Origin,
			&t.TranscriptOnly,
			&t.CreatedAt,
		)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres journal: scan turns: %w", err)
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	return turns, nil
}

// DeleteSession implements [store.Journal]. Turns and vectors cascade.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("postgres journal: delete session: %w", err)
	}
	return nil
}

// ClearAll implements [store.Journal].
func (s *Store) ClearAll(ctx context.Context, participantID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE participant_id = $1`, participantID); err != nil {
		return fmt.Errorf("postgres journal: clear all: %w", err)
	}
	return nil
}

// row is the subset of pgx.Row and pgx.CollectableRow both scanners satisfy.
type row interface {
	Scan(dest ...any) error
}

func scanSession(r row) (*store.Session, error) {
	var (
		sess  store.Session
		ended sql.NullTime
	)
	if err := r.Scan(&sess.ID, &sess.ParticipantID, &sess.Channel, &sess.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		sess.EndedAt = ended.Time
	}
	return &sess, nil
}
