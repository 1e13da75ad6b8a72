package match

import (
	"sort"

	"github.com/bastiangx/addrserve/pkg/index"
)

// Retriever names accepted by NewRetriever.
const (
	RetrieverLevenshtein = "levenshtein"
	RetrieverToken       = "token"
	RetrieverVector      = "vector"
)

// Defaults for Options fields left at zero.
const (
	DefaultScoreCutoff        = 30
	DefaultPrefilterThreshold = 50
	DefaultPrefixLen          = 3
)

// Lookup is what a retriever searches for.
type Lookup struct {
	// Street is the normalized, lower-cased query street.
	Street string
	// Locality qualifies the street for retrievers that embed text.
	Locality string
}

// Candidate is an index position with its street similarity in [0,100].
type Candidate struct {
	Pos   int
	Score float64
}

// Retriever returns the best limit candidates from idx, best first, ties in index
// order. Candidates tied with the last one kept are returned too, so a street listed
// once per house is never split at the limit. Candidates scoring below the cutoff are dropped.
type Retriever interface {
	Retrieve(idx *index.Index, q Lookup, limit int) ([]Candidate, error)
	Name() string
}

// Options tunes the edit-distance and token retrievers.
type Options struct {
	ScoreCutoff        float64
	PrefilterThreshold int
	PrefixLen          int
}

func (o Options) withDefaults() Options {
	if o.ScoreCutoff <= 0 {
		o.ScoreCutoff = DefaultScoreCutoff
	}
	if o.PrefilterThreshold <= 0 {
		o.PrefilterThreshold = DefaultPrefilterThreshold
	}
	if o.PrefixLen <= 0 {
		o.PrefixLen = DefaultPrefixLen
	}
	return o
}

// scan scores the given positions (all of idx when positions is nil) and keeps the best limit.
func scan(idx *index.Index, positions []int, cutoff float64, limit int, score func(pos int) float64) []Candidate {
	var out []Candidate
	visit := func(pos int) {
		if s := score(pos); s >= cutoff {
			out = append(out, Candidate{Pos: pos, Score: s})
		}
	}
	if positions == nil {
		for pos := 0; pos < idx.Len(); pos++ {
			visit(pos)
		}
	} else {
		for _, pos := range positions {
			visit(pos)
		}
	}
	return best(out, limit)
}

// best orders candidates by score descending, then position, and truncates to limit
// without cutting through the group of equal scores at the boundary.
func best(c []Candidate, limit int) []Candidate {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		return c[i].Pos < c[j].Pos
	})
	if limit <= 0 {
		return c[:0]
	}
	if len(c) <= limit {
		return c
	}
	n := limit
	for n < len(c) && c[n].Score == c[limit-1].Score {
		n++
	}
	return c[:n]
}
