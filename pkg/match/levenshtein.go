package match

import (
	"strings"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/normalize"
)

// LevenshteinRetriever ranks streets by edit-distance Ratio. On large indexes it first
// narrows the scan to streets sharing a token prefix with the query, and falls back to
// the full index when the narrowed set cannot fill the limit.
type LevenshteinRetriever struct {
	opts Options
}

// NewLevenshteinRetriever applies defaults to zero Options fields.
func NewLevenshteinRetriever(opts Options) *LevenshteinRetriever {
	return &LevenshteinRetriever{opts: opts.withDefaults()}
}

// Name implements Retriever.
func (r *LevenshteinRetriever) Name() string { return RetrieverLevenshtein }

// Retrieve implements Retriever.
func (r *LevenshteinRetriever) Retrieve(idx *index.Index, q Lookup, limit int) ([]Candidate, error) {
	if limit <= 0 || idx.Len() == 0 {
		return nil, nil
	}
	street := q.Street
	fold := !normalize.HasType(street)

	score := func(pos int) float64 {
		if fold {
			return Ratio(street, idx.Bare(pos))
		}
		return Ratio(street, idx.Street(pos))
	}
	return scan(idx, prefilter(idx, street, limit, r.opts), r.opts.ScoreCutoff, limit, score), nil
}

// prefilter returns the positions sharing the query's leading token prefix, or nil
// when the full index should be scanned.
func prefilter(idx *index.Index, street string, limit int, opts Options) []int {
	if idx.Len() <= opts.PrefilterThreshold {
		return nil
	}
	prefix := leadingPrefix(street, opts.PrefixLen)
	if prefix == "" {
		return nil
	}
	positions := idx.TokenPrefix(prefix)
	if len(positions) < limit {
		return nil
	}
	return positions
}

// leadingPrefix returns the first n runes of the first token that is not a street type.
func leadingPrefix(street string, n int) string {
	for _, tok := range strings.Fields(street) {
		if normalize.IsStreetType(tok) {
			continue
		}
		runes := []rune(tok)
		if len(runes) > n {
			runes = runes[:n]
		}
		return string(runes)
	}
	return ""
}
