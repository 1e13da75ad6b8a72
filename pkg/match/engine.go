/*
Package match resolves an address query against an index.Index.

A search runs the same pipeline every time: the query is parsed into a street and a house
fragment, the street is normalized, a Retriever returns the closest streets, every candidate
gets a combined street and house score, and Rank keeps the best topN.

	eng, _ := match.NewEngine(norm, match.NewLevenshteinRetriever(match.Options{}), 50)
	res, err := eng.Search(idx, "Дурова 4", 3, "Москва")

Engine holds no per-query state and is safe for concurrent use against a shared Index.
*/
package match

import (
	"fmt"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/normalize"
	"github.com/bastiangx/addrserve/pkg/query"
	"github.com/bastiangx/addrserve/pkg/vecstore"
)

// DefaultCandidateLimit bounds how many candidates reach the scorer.
const DefaultCandidateLimit = 50

// Engine is the search entry point.
type Engine struct {
	norm           *normalize.Normalizer
	retriever      Retriever
	candidateLimit int
}

// NewEngine builds an Engine; a nil normalizer gets a default-sized cache.
func NewEngine(norm *normalize.Normalizer, retriever Retriever, candidateLimit int) (*Engine, error) {
	if norm == nil {
		n, err := normalize.New(normalize.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		norm = n
	}
	if retriever == nil {
		retriever = NewLevenshteinRetriever(Options{})
	}
	if candidateLimit <= 0 {
		candidateLimit = DefaultCandidateLimit
	}
	return &Engine{norm: norm, retriever: retriever, candidateLimit: candidateLimit}, nil
}

// NewRetriever returns the retriever registered under name.
// Only the vector retriever uses embedder; a nil one gets the trigram embedder.
func NewRetriever(name string, opts Options, embedder vecstore.Embedder, locality string) (Retriever, error) {
	switch name {
	case "", RetrieverLevenshtein:
		return NewLevenshteinRetriever(opts), nil
	case RetrieverToken:
		return NewTokenRetriever(opts)
	case RetrieverVector:
		if embedder == nil {
			embedder = vecstore.NewTrigramEmbedder(vecstore.DefaultDim)
		}
		dim := embedder.Dim()
		newStore := func() vecstore.Store { return vecstore.NewMemory(dim) }
		return NewVectorRetriever(newStore, embedder, opts.ScoreCutoff, locality), nil
	default:
		return nil, fmt.Errorf("match: unknown retriever %q", name)
	}
}

// Retriever returns the retriever in use.
func (e *Engine) Retriever() Retriever {
	return e.retriever
}

// Search returns up to topN matches for raw. An empty index answers every query with
// no objects; otherwise an unusable query fails with query.ErrInvalidQuery.
func (e *Engine) Search(idx *index.Index, raw string, topN int, locality string) (SearchResult, error) {
	if locality == "" {
		locality = query.DefaultLocality
	}
	if idx.Len() == 0 {
		return SearchResult{SearchedAddress: raw, Objects: []Object{}}, nil
	}

	q, err := query.Parse(raw, locality)
	if err != nil {
		return SearchResult{}, err
	}
	street := e.norm.Key(q.Street)

	candidates, err := e.retriever.Retrieve(idx, Lookup{Street: street, Locality: locality}, max(e.candidateLimit, topN))
	if err != nil {
		return SearchResult{}, err
	}

	scored := make([]MatchCandidate, len(candidates))
	for i, c := range candidates {
		streetSim := c.Score / 100
		candidateHouse := idx.Entry(c.Pos).Record.HouseKey()
		scored[i] = MatchCandidate{
			Pos:              c.Pos,
			StreetSimilarity: streetSim,
			HouseSimilarity:  HouseSimilarity(q.House, candidateHouse),
			FinalScore:       Score(streetSim, q.House, candidateHouse),
		}
	}
	return Rank(idx, scored, topN, locality, raw), nil
}
