/*
Package vecstore is the semantic retrieval backend: it keeps (id, text, embedding) triples and
answers nearest-neighbour queries by cosine distance.

Memory is a brute-force store suitable for gazetteers of a few hundred thousand rows.
TrigramEmbedder turns text into a fixed-size vector by hashing character trigrams, so the
vector retriever works without an external embedding model; any Embedder can replace it.
*/
package vecstore

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// ErrDimension is returned when a vector does not match the store dimension.
var ErrDimension = errors.New("vector dimension mismatch")

// Hit is one query result. Distance is 1 - cosine similarity, in [0,2].
type Hit struct {
	ID       int64   `json:"id" msgpack:"id"`
	Text     string  `json:"text" msgpack:"text"`
	Distance float64 `json:"distance" msgpack:"distance"`
}

// Store indexes embeddings by id.
type Store interface {
	Add(id int64, text string, vec []float32) error
	Query(vec []float32, k int) ([]Hit, error)
	Reset()
	Len() int
}

// Embedder maps text to a vector of Dim() components.
type Embedder interface {
	Embed(text string) []float32
	Dim() int
}

type item struct {
	id     int64
	text   string
	vector []float32
}

// Memory is an in-memory Store. Adding an existing id replaces its entry.
type Memory struct {
	mu    sync.RWMutex
	dim   int
	items []item
	byID  map[int64]int
}

// NewMemory creates an empty store for vectors of dim components.
func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, byID: make(map[int64]int)}
}

// Add stores a copy of vec under id.
func (m *Memory) Add(id int64, text string, vec []float32) error {
	if len(vec) != m.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), m.dim)
	}
	it := item{id: id, text: text, vector: append([]float32(nil), vec...)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if pos, ok := m.byID[id]; ok {
		m.items[pos] = it
		return nil
	}
	m.byID[id] = len(m.items)
	m.items = append(m.items, it)
	return nil
}

// Query returns the k nearest entries ordered by distance, then id.
func (m *Memory) Query(vec []float32, k int) ([]Hit, error) {
	if len(vec) != m.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), m.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.items))
	for _, it := range m.items {
		hits = append(hits, Hit{ID: it.id, Text: it.text, Distance: 1 - cosineSimilarity(vec, it.vector)})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Reset removes every entry.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.byID = make(map[int64]int)
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Dim returns the vector dimension.
func (m *Memory) Dim() int {
	return m.dim
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
