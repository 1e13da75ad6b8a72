package match

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/vecstore"
	lru "github.com/hashicorp/golang-lru/v2"
)

// vectorGenerations is how many indexes keep a built store at once: the current one
// and the one a reload just replaced, which in-flight searches may still hold.
const vectorGenerations = 2

// VectorRetriever ranks records by cosine distance between embeddings of
// "<locality> <street>". Every Index gets its own store, built on first use and never
// modified afterwards, so a query always reads the store that matches the Index it was given.
type VectorRetriever struct {
	newStore func() vecstore.Store
	embedder vecstore.Embedder
	cutoff   float64
	locality string

	mu    sync.Mutex
	built *lru.Cache[*index.Index, *vectorIndex]
}

// vectorIndex holds one embedding per distinct street text. Store ids are group numbers;
// groups maps each back to the index positions sharing that text.
type vectorIndex struct {
	store  vecstore.Store
	groups [][]int
}

// NewVectorRetriever builds stores with newStore and embeds with embedder;
// defaultLocality labels records without one.
func NewVectorRetriever(newStore func() vecstore.Store, embedder vecstore.Embedder, cutoff float64, defaultLocality string) *VectorRetriever {
	if cutoff <= 0 {
		cutoff = DefaultScoreCutoff
	}
	built, _ := lru.New[*index.Index, *vectorIndex](vectorGenerations)
	return &VectorRetriever{
		newStore: newStore,
		embedder: embedder,
		cutoff:   cutoff,
		locality: defaultLocality,
		built:    built,
	}
}

// Name implements Retriever.
func (r *VectorRetriever) Name() string { return RetrieverVector }

// Retrieve implements Retriever.
func (r *VectorRetriever) Retrieve(idx *index.Index, q Lookup, limit int) ([]Candidate, error) {
	if limit <= 0 || idx.Len() == 0 {
		return nil, nil
	}
	vi, err := r.load(idx)
	if err != nil {
		return nil, err
	}

	locality := q.Locality
	if locality == "" {
		locality = r.locality
	}
	hits, err := vi.store.Query(r.embedder.Embed(Text(locality, q.Street)), limit)
	if err != nil {
		return nil, fmt.Errorf("match: vector query: %w", err)
	}

	var out []Candidate
	for _, h := range hits {
		if h.ID < 0 || int(h.ID) >= len(vi.groups) {
			continue
		}
		s := clamp(100*(1-h.Distance), 0, 100)
		if s < r.cutoff {
			continue
		}
		for _, pos := range vi.groups[h.ID] {
			out = append(out, Candidate{Pos: pos, Score: s})
		}
	}
	return best(out, limit), nil
}

// load returns the store built for idx, building it on first use.
func (r *VectorRetriever) load(idx *index.Index) (*vectorIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vi, ok := r.built.Get(idx); ok {
		return vi, nil
	}

	vi := &vectorIndex{store: r.newStore()}
	group := make(map[string]int)
	for pos := 0; pos < idx.Len(); pos++ {
		e := idx.Entry(pos)
		locality := e.Record.Locality
		if locality == "" {
			locality = r.locality
		}
		text := Text(locality, e.Street)
		id, ok := group[text]
		if !ok {
			id = len(vi.groups)
			group[text] = id
			vi.groups = append(vi.groups, nil)
			if err := vi.store.Add(int64(id), text, r.embedder.Embed(text)); err != nil {
				return nil, fmt.Errorf("match: vector index record %d: %w", e.Record.ID, err)
			}
		}
		vi.groups[id] = append(vi.groups[id], pos)
	}
	r.built.Add(idx, vi)
	return vi, nil
}

// Text is the string embedded for a locality and street.
func Text(locality, street string) string {
	return strings.ToLower(strings.TrimSpace(locality + " " + street))
}
