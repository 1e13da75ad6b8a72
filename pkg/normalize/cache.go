package normalize

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is used when a Normalizer is created with a non-positive size.
const DefaultCacheSize = 4096

// Normalizer memoizes Street results in a bounded LRU cache.
// It is safe for concurrent use.
type Normalizer struct {
	cache *lru.Cache[string, string]
}

// New creates a Normalizer holding at most size entries.
func New(size int) (*Normalizer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("normalize: create cache: %w", err)
	}
	return &Normalizer{cache: cache}, nil
}

// Street returns the canonical form of name, computing it at most once per cached key.
func (n *Normalizer) Street(name string) string {
	if out, ok := n.cache.Get(name); ok {
		return out
	}
	out := Street(name)
	n.cache.Add(name, out)
	return out
}

// Key returns the lower-cased canonical form used for retrieval.
func (n *Normalizer) Key(name string) string {
	return strings.ToLower(n.Street(name))
}

// Len returns the number of cached entries.
func (n *Normalizer) Len() int {
	return n.cache.Len()
}

// Purge drops all cached entries.
func (n *Normalizer) Purge() {
	n.cache.Purge()
}
