// Package vector defines the paper embedding index: one fixed-dimension
// vector per paper, queried by cosine similarity.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs
	// from the index's established dimension. The vector is rejected,
	// never truncated or padded.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")

	// ErrNotIndexed is returned when a paper has no stored vector.
	ErrNotIndexed = errors.New("vector: paper not indexed")
)

// Result is a similarity match. Score is cosine similarity in [-1, 1].
type Result struct {
	PaperID string  `json:"paper_id"`
	Score   float32 `json:"score"`
}

// Index stores at most one embedding vector per paper. The index's
// dimension is fixed by the first vector stored; later vectors of a
// different length fail with ErrDimensionMismatch.
type Index interface {
	// Upsert stores the vector for a paper, replacing any previous one.
	Upsert(ctx context.Context, paperID string, vec []float32) error

	// Remove deletes a paper's vector. Removing an unindexed paper is
	// not an error.
	Remove(ctx context.Context, paperID string) error

	// Get returns the stored vector for a paper, or ErrNotIndexed.
	Get(ctx context.Context, paperID string) ([]float32, error)

	// Query returns up to k papers ordered by descending cosine
	// similarity to vec. Ties are broken by ascending paper id so
	// results are stable.
	Query(ctx context.Context, vec []float32, k int) ([]Result, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
