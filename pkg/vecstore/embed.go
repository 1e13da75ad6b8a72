package vecstore

import (
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultDim is the TrigramEmbedder dimension used when none is configured.
const DefaultDim = 256

// TrigramEmbedder hashes the character trigrams of lower-cased, space-padded words
// into a dim-sized vector and L2-normalizes it.
type TrigramEmbedder struct {
	dim int
}

// NewTrigramEmbedder returns an embedder of dim components; dim <= 0 uses DefaultDim.
func NewTrigramEmbedder(dim int) *TrigramEmbedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &TrigramEmbedder{dim: dim}
}

// Dim implements Embedder.
func (e *TrigramEmbedder) Dim() int {
	return e.dim
}

// Embed implements Embedder. Blank text yields the zero vector.
func (e *TrigramEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		runes := []rune(" " + word + " ")
		for i := 0; i+3 <= len(runes); i++ {
			h := xxhash.Sum64String(string(runes[i : i+3]))
			vec[h%uint64(e.dim)]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
