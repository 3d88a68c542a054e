package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id              TEXT         PRIMARY KEY,
    participant_id  TEXT         NOT NULL,
    channel         TEXT         NOT NULL DEFAULT 'voice',
    started_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    ended_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_sessions_participant
    ON sessions (participant_id, started_at DESC);
`

const ddlTurns = `
CREATE TABLE IF NOT EXISTS turns (
    id                    TEXT              PRIMARY KEY,
    session_id            TEXT              NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    seq                   INT               NOT NULL,
    author                TEXT              NOT NULL,
    text                  TEXT              NOT NULL,
    sentiment_score       INT               NOT NULL DEFAULT 0,
    sentiment_comparative DOUBLE PRECISION  NOT NULL DEFAULT 0,
    sentiment_label       TEXT              NOT NULL DEFAULT '',
    crisis_level          TEXT              NOT NULL DEFAULT 'none',
    origin                TEXT              NOT NULL DEFAULT '',
    transcript_only       BOOLEAN           NOT NULL DEFAULT FALSE,
    created_at            TIMESTAMPTZ       NOT NULL DEFAULT now(),
    UNIQUE (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_turns_session
    ON turns (session_id, seq);
`

// ddlRecall returns the recall index DDL with the embedding dimension baked
// into the column type.
func ddlRecall(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS turn_vectors (
    turn_id         TEXT       PRIMARY KEY REFERENCES turns (id) ON DELETE CASCADE,
    participant_id  TEXT       NOT NULL,
    embedding       vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_turn_vectors_participant
    ON turn_vectors (participant_id);
`, embeddingDimensions)
}

// Migrate ensures all required tables, indexes, and extensions exist. It is
// idempotent and runs on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	for _, ddl := range []string{ddlSessions, ddlTurns, ddlRecall(embeddingDimensions)} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
