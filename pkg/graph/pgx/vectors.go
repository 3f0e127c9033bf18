package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/scholia-ai/scholia/pkg/vector"
)

// Upsert stores the embedding vector for a paper, replacing any
// previous one. The index dimension is fixed by the first stored
// vector.
func (s *Store) Upsert(ctx context.Context, paperID string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", vector.ErrDimensionMismatch)
	}
	if err := s.checkDimension(ctx, len(vec)); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO embeddings (paper_id, embedding) VALUES ($1, $2)
		 ON CONFLICT (paper_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		paperID, pgvector.NewVector(vec),
	)
	if err != nil {
		return fmt.Errorf("failed to store vector for %s: %w", paperID, err)
	}
	return nil
}

// Remove deletes a paper's vector. Removing an unindexed paper is not
// an error.
func (s *Store) Remove(ctx context.Context, paperID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM embeddings WHERE paper_id = $1`, paperID)
	if err != nil {
		return fmt.Errorf("failed to remove vector for %s: %w", paperID, err)
	}
	return nil
}

// Get returns the stored vector for a paper.
func (s *Store) Get(ctx context.Context, paperID string) ([]float32, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT embedding FROM embeddings WHERE paper_id = $1`, paperID,
	).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotIndexed, paperID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vector for %s: %w", paperID, err)
	}
	return vec.Slice(), nil
}

// Query returns up to k papers by descending cosine similarity, ties
// broken by ascending paper id.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]vector.Result, error) {
	if err := s.checkDimension(ctx, len(vec)); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT paper_id, 1 - (embedding <=> $1) AS score
		 FROM embeddings
		 ORDER BY embedding <=> $1, paper_id
		 LIMIT $2`,
		pgvector.NewVector(vec), k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var r vector.Result
		var score float64
		if err := rows.Scan(&r.PaperID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	return results, rows.Err()
}

// checkDimension compares the incoming vector length against the
// dimension established by the stored vectors, if any.
func (s *Store) checkDimension(ctx context.Context, got int) error {
	var dim int
	err := s.pool.QueryRow(ctx,
		`SELECT vector_dims(embedding) FROM embeddings LIMIT 1`,
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index dimension: %w", err)
	}
	if got != dim {
		return fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, got, dim)
	}
	return nil
}
