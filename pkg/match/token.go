package match

import (
	"fmt"
	"strings"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/normalize"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kljensen/snowball"
)

const stemCacheSize = 8192

// TokenRetriever ranks streets by TokenSetRatio over russian-stemmed tokens,
// so word order and inflection ("Ленина"/"Ленин") matter less than with plain edit distance.
type TokenRetriever struct {
	opts  Options
	stems *lru.Cache[string, string]
}

// NewTokenRetriever applies defaults to zero Options fields.
func NewTokenRetriever(opts Options) (*TokenRetriever, error) {
	stems, err := lru.New[string, string](stemCacheSize)
	if err != nil {
		return nil, fmt.Errorf("match: create stem cache: %w", err)
	}
	return &TokenRetriever{opts: opts.withDefaults(), stems: stems}, nil
}

// Name implements Retriever.
func (r *TokenRetriever) Name() string { return RetrieverToken }

// Retrieve implements Retriever.
func (r *TokenRetriever) Retrieve(idx *index.Index, q Lookup, limit int) ([]Candidate, error) {
	if limit <= 0 || idx.Len() == 0 {
		return nil, nil
	}
	fold := !normalize.HasType(q.Street)
	query := r.tokens(q.Street, false)
	if len(query) == 0 {
		return nil, nil
	}

	score := func(pos int) float64 {
		return TokenSetRatio(query, r.tokens(idx.Street(pos), fold))
	}
	return scan(idx, prefilter(idx, q.Street, limit, r.opts), r.opts.ScoreCutoff, limit, score), nil
}

// tokens stems every word of street, dropping street-type words when fold is set.
func (r *TokenRetriever) tokens(street string, fold bool) []string {
	fields := strings.Fields(street)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if fold && normalize.IsStreetType(f) {
			continue
		}
		out = append(out, r.stem(f))
	}
	return out
}

func (r *TokenRetriever) stem(word string) string {
	if s, ok := r.stems.Get(word); ok {
		return s
	}
	s, err := snowball.Stem(word, "russian", false)
	if err != nil || s == "" {
		s = word
	}
	r.stems.Add(word, s)
	return s
}
