/*
Package service ties a record store, the index registry and the match engine together.

AddressService is what the IPC server and the CLI talk to: Search answers queries from the
cached index, Save persists new addresses and drops the cached index so the next search
rebuilds it from the store.
*/
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bastiangx/addrserve/internal/logger"
	"github.com/bastiangx/addrserve/pkg/config"
	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/match"
	"github.com/bastiangx/addrserve/pkg/normalize"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/bastiangx/addrserve/pkg/vecstore"
	"github.com/charmbracelet/log"
)

// DefaultDataset is the id the service registers its store under.
const DefaultDataset = "default"

// AddressService searches and extends one address dataset.
type AddressService struct {
	store    store.Store
	registry *index.Registry
	engine   *match.Engine
	locality string
	topN     int
	logger   *log.Logger
}

// New wires st into a fresh registry and engine configured by cfg.
// Nothing is loaded until the first Search or Warm.
func New(cfg *config.Config, st store.Store) (*AddressService, error) {
	if st == nil {
		return nil, errors.New("service: nil store")
	}
	norm, err := normalize.New(cfg.Engine.NormalizeCache)
	if err != nil {
		return nil, err
	}

	s := &AddressService{
		store:    st,
		registry: index.NewRegistry(norm),
		locality: cfg.Engine.Locality,
		topN:     cfg.Engine.TopN,
		logger:   logger.New("service"),
	}
	var embedder vecstore.Embedder
	if cfg.Engine.Retriever == match.RetrieverVector {
		embedder = vecstore.NewTrigramEmbedder(cfg.Vector.Dim)
	}

	retriever, err := match.NewRetriever(cfg.Engine.Retriever, match.Options{
		ScoreCutoff:        cfg.Engine.ScoreCutoff,
		PrefilterThreshold: cfg.Engine.PrefilterThreshold,
		PrefixLen:          cfg.Engine.PrefixLen,
	}, embedder, s.locality)
	if err != nil {
		return nil, err
	}
	s.engine, err = match.NewEngine(norm, retriever, cfg.Engine.CandidateLimit)
	if err != nil {
		return nil, err
	}

	s.registry.Register(DefaultDataset, st)
	return s, nil
}

// Warm builds the index now instead of on the first search.
func (s *AddressService) Warm(ctx context.Context) error {
	_, err := s.registry.Get(ctx, DefaultDataset)
	return err
}

// Search returns up to limit matches for raw; a non-positive limit uses the configured top_n.
func (s *AddressService) Search(ctx context.Context, raw string, limit int) (match.SearchResult, error) {
	if limit <= 0 {
		limit = s.topN
	}
	idx, err := s.registry.Get(ctx, DefaultDataset)
	if err != nil {
		return match.SearchResult{}, err
	}
	return s.engine.Search(idx, raw, limit, s.locality)
}

// Save validates every address, then persists them in order. Any address that
// reached the store invalidates the index, even when a later one fails.
func (s *AddressService) Save(ctx context.Context, addrs []store.NewAddress) ([]index.Record, error) {
	for i := range addrs {
		if err := addrs[i].Validate(s.locality); err != nil {
			return nil, fmt.Errorf("address %d: %w", i, err)
		}
	}

	saved := make([]index.Record, 0, len(addrs))
	defer func() {
		if len(saved) > 0 {
			s.registry.Invalidate(DefaultDataset)
			s.logger.Infof("Saved %d addresses, index invalidated", len(saved))
		}
	}()

	for i, addr := range addrs {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		rec, err := s.store.Create(ctx, addr)
		if err != nil {
			return saved, fmt.Errorf("address %d: %w", i, err)
		}
		saved = append(saved, rec)
	}
	return saved, nil
}

// Reload drops the cached index and rebuilds it from the store.
func (s *AddressService) Reload(ctx context.Context) (index.Stat, error) {
	s.registry.Invalidate(DefaultDataset)
	if _, err := s.registry.Get(ctx, DefaultDataset); err != nil {
		return index.Stat{}, err
	}
	for _, st := range s.registry.Stats() {
		if st.ID == DefaultDataset {
			return st, nil
		}
	}
	return index.Stat{ID: DefaultDataset}, nil
}

// Stats describes every registered dataset.
func (s *AddressService) Stats() []index.Stat {
	return s.registry.Stats()
}

// Retriever names the retrieval strategy in use.
func (s *AddressService) Retriever() string {
	return s.engine.Retriever().Name()
}

// Locality is the locality assumed for queries and records without one.
func (s *AddressService) Locality() string {
	return s.locality
}

// Close closes the underlying store.
func (s *AddressService) Close() error {
	return s.store.Close()
}
