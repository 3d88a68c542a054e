package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/solacevoice/solace/pkg/store"
)

// IndexTurn implements [store.RecallIndex]. Re-indexing a turn replaces its
// vector.
func (s *Store) IndexTurn(ctx context.Context, participantID string, turn store.Turn, embedding []float32) error {
	const q = `
		INSERT INTO turn_vectors (turn_id, participant_id, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (turn_id) DO UPDATE SET
		    participant_id = EXCLUDED.participant_id,
		    embedding      = EXCLUDED.embedding`

	_, err := s.pool.Exec(ctx, q, turn.ID, participantID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("postgres recall: index turn: %w", err)
	}
	return nil
}

// Recall implements [store.RecallIndex]. Results are ordered by ascending
// cosine distance; Similarity is 1-distance.
func (s *Store) Recall(ctx context.Context, participantID string, embedding []float32, limit int) ([]store.RecallHit, error) {
	const q = `
		SELECT t.text, t.author, t.created_at,
		       v.embedding <=> $1 AS distance
		FROM   turn_vectors v
		JOIN   turns t ON t.id = v.turn_id
		WHERE  v.participant_id = $2
		ORDER  BY distance
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), participantID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres recall: recall: %w", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.RecallHit, error) {
		var (
			hit      store.RecallHit
			distance float64
		)
		if err := row.Scan(&hit.Text, &hit.Author, &hit.CreatedAt, &distance); err != nil {
			return store.RecallHit{}, err
		}
		hit.Similarity = 1 - distance
		return hit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres recall: scan hits: %w", err)
	}
	return hits, nil
}
