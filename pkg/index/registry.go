package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bastiangx/addrserve/internal/logger"
	"github.com/bastiangx/addrserve/pkg/normalize"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrBuildFailure means the record source could not supply records for a dataset.
	ErrBuildFailure = errors.New("index build failed")
	// ErrUnknownDataset is returned for ids that were never registered.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// Source supplies the records an Index is built from.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Record, error)

// Records calls f.
func (f SourceFunc) Records(ctx context.Context) ([]Record, error) {
	return f(ctx)
}

// Stat describes one registered dataset.
type Stat struct {
	ID      string        `json:"id" msgpack:"id"`
	Built   bool          `json:"built" msgpack:"built"`
	Records int           `json:"records" msgpack:"records"`
	Took    time.Duration `json:"took" msgpack:"took"`
}

type dataset struct {
	source Source
	index  *Index
	gen    uint64
	took   time.Duration
}

// Registry builds each registered dataset at most once and shares the result.
// Failed builds are not cached; the next Get retries.
type Registry struct {
	mu       sync.RWMutex
	datasets map[string]*dataset
	group    singleflight.Group
	norm     *normalize.Normalizer
	logger   *log.Logger
}

// NewRegistry creates an empty Registry. n may be nil.
func NewRegistry(n *normalize.Normalizer) *Registry {
	return &Registry{
		datasets: make(map[string]*dataset),
		norm:     n,
		logger:   logger.New("index"),
	}
}

// Register associates id with src, replacing and invalidating any previous source.
func (r *Registry) Register(id string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ds, ok := r.datasets[id]; ok {
		ds.source = src
		ds.index = nil
		ds.gen++
		r.group.Forget(id)
		return
	}
	r.datasets[id] = &dataset{source: src}
}

// Get returns the Index for id, building it on first use.
func (r *Registry) Get(ctx context.Context, id string) (*Index, error) {
	r.mu.RLock()
	ds, ok := r.datasets[id]
	var idx *Index
	if ok {
		idx = ds.index
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, id)
	}
	if idx != nil {
		return idx, nil
	}

	// The build outlives any single caller: it runs under a context that keeps the
	// caller's values but not its cancellation, and each caller waits only as long as it may.
	buildCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(id, func() (any, error) {
		r.mu.RLock()
		src, gen, built := ds.source, ds.gen, ds.index
		r.mu.RUnlock()
		if built != nil {
			return built, nil
		}

		start := time.Now()
		records, err := src.Records(buildCtx)
		if err != nil {
			r.logger.Errorf("Failed to load dataset %q: %v", id, err)
			return nil, fmt.Errorf("%w: dataset %q: %w", ErrBuildFailure, id, err)
		}
		built = Build(records, r.norm)
		took := time.Since(start)

		r.mu.Lock()
		if ds.gen == gen {
			ds.index = built
			ds.took = took
		}
		r.mu.Unlock()

		r.logger.Infof("Built dataset %q: %d records in %v", id, built.Len(), took)
		return built, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Index), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the built Index for id so the next Get rebuilds it.
func (r *Registry) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.datasets[id]
	if !ok {
		return
	}
	ds.index = nil
	ds.gen++
	r.group.Forget(id)
	r.logger.Debugf("Invalidated dataset %q", id)
}

// Stats reports every registered dataset, sorted by id.
func (r *Registry) Stats() []Stat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]Stat, 0, len(r.datasets))
	for id, ds := range r.datasets {
		stats = append(stats, Stat{
			ID:      id,
			Built:   ds.index != nil,
			Records: ds.index.Len(),
			Took:    ds.took,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}
