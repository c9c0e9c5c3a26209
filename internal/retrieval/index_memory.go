package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/salespatriot/fscflow/internal/model"
	"github.com/salespatriot/fscflow/internal/service"
)

// MemoryIndex is an in-memory vector index using brute-force cosine
// similarity. It serves tests and local runs where no hosted index is
// configured.
type MemoryIndex struct {
	entries    map[string]memoryEntry
	dimensions int
	mu         sync.RWMutex
}

type memoryEntry struct {
	name   string
	values []float32
}

// NewMemoryIndex creates an empty in-memory index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make(map[string]memoryEntry),
	}, nil
}

// Upsert inserts or replaces group vectors by prefix.
func (m *MemoryIndex) Upsert(_ context.Context, vectors []service.GroupVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		if len(v.Values) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", v.Prefix, len(v.Values), m.dimensions)
		}
		values := make([]float32, m.dimensions)
		copy(values, v.Values)
		m.entries[v.Prefix] = memoryEntry{name: v.Name, values: values}
	}
	return nil
}

// Query returns the topK groups by cosine similarity to the query vector.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, topK int) ([]model.GroupMatch, error) {
	if len(vector) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.entries) == 0 {
		return nil, nil
	}

	matches := make([]model.GroupMatch, 0, len(m.entries))
	for prefix, entry := range m.entries {
		matches = append(matches, model.GroupMatch{
			Prefix: prefix,
			Name:   entry.name,
			Score:  cosineSimilarity(vector, entry.values),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Prefix < matches[j].Prefix
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// cosineSimilarity returns the cosine similarity of two equal-length
// vectors, in [-1, 1]. Zero-norm vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
