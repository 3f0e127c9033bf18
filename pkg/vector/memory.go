package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory, brute-force cosine similarity index.
// Vectors are L2-normalized on insert so queries reduce to dot products.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32 // normalized
	raw       map[string][]float32
}

// NewMemoryIndex creates an empty index. The dimension is fixed by the
// first vector stored; pass dimension > 0 to fix it up front.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		vectors:   make(map[string][]float32),
		raw:       make(map[string][]float32),
	}
}

// Upsert stores the vector for a paper, replacing any previous one.
func (idx *MemoryIndex) Upsert(ctx context.Context, paperID string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(vec)
	}
	if len(vec) != idx.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), idx.dimension)
	}

	idx.raw[paperID] = append([]float32(nil), vec...)
	idx.vectors[paperID] = normalize(vec)
	return nil
}

// Remove deletes a paper's vector.
func (idx *MemoryIndex) Remove(ctx context.Context, paperID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.vectors, paperID)
	delete(idx.raw, paperID)
	return nil
}

// Get returns the stored (un-normalized) vector for a paper.
func (idx *MemoryIndex) Get(ctx context.Context, paperID string) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	vec, ok := idx.raw[paperID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, paperID)
	}
	return append([]float32(nil), vec...), nil
}

// Query returns up to k papers by descending cosine similarity.
func (idx *MemoryIndex) Query(ctx context.Context, vec []float32, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimension != 0 && len(vec) != idx.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), idx.dimension)
	}

	query := normalize(vec)
	results := make([]Result, 0, len(idx.vectors))
	for paperID, stored := range idx.vectors {
		results = append(results, Result{PaperID: paperID, Score: dot(query, stored)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PaperID < results[j].PaperID
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close is a no-op for the in-memory index.
func (idx *MemoryIndex) Close(ctx context.Context) error {
	return nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
