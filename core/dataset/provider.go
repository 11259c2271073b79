// Package dataset loads the ten flow tables and the population vector from a
// Provider and assembles them into a read-only Dataset.
package dataset

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/logging"
)

// Provider supplies parsed tables by name
type Provider interface {
	// Load returns one flow table
	Load(ctx context.Context, name types.TableName) (*types.FlowTable, error)

	// LoadPopulation returns the population vector
	LoadPopulation(ctx context.Context) (*types.PopulationVector, error)

	// Source describes where tables come from, e.g. a directory or bucket URL
	Source() string
}

// CachedProvider keeps recently parsed tables in an LRU cache.
// Concurrent requests for the same table share one load.
type CachedProvider struct {
	next  Provider
	cache *lru.Cache[types.TableName, *types.FlowTable]
	group singleflight.Group

	mu         sync.Mutex
	population *types.PopulationVector
}

// NewCachedProvider wraps next with a cache of size tables
func NewCachedProvider(next Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = len(types.AllTables())
	}
	cache, err := lru.New[types.TableName, *types.FlowTable](size)
	if err != nil {
		return nil, cgerrors.Config("create table cache", err)
	}
	return &CachedProvider{next: next, cache: cache}, nil
}

// Load returns a cached table or loads it once
func (p *CachedProvider) Load(ctx context.Context, name types.TableName) (*types.FlowTable, error) {
	if t, ok := p.cache.Get(name); ok {
		logging.FromContext(ctx).Debug("table cache hit", zap.String("table", string(name)))
		return t, nil
	}

	v, err, _ := p.group.Do(string(name), func() (interface{}, error) {
		t, err := p.next.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		p.cache.Add(name, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.FlowTable), nil
}

// LoadPopulation returns the population vector, loading it on first use
func (p *CachedProvider) LoadPopulation(ctx context.Context) (*types.PopulationVector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.population != nil {
		return p.population, nil
	}
	pop, err := p.next.LoadPopulation(ctx)
	if err != nil {
		return nil, err
	}
	p.population = pop
	return pop, nil
}

// Source reports the wrapped provider's source
func (p *CachedProvider) Source() string { return p.next.Source() }

// Len is the number of cached tables
func (p *CachedProvider) Len() int { return p.cache.Len() }

// Purge drops every cached table
func (p *CachedProvider) Purge() {
	p.cache.Purge()
	p.mu.Lock()
	p.population = nil
	p.mu.Unlock()
}

// Load reads every table plus population on at most workers goroutines
func Load(ctx context.Context, p Provider, workers int) (*types.Dataset, error) {
	names := types.AllTables()
	tables := make([]*types.FlowTable, len(names))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, name := range names {
		g.Go(func() error {
			t, err := p.Load(ctx, name)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			logging.FromContext(ctx).Debug("table loaded",
				zap.String("table", string(name)),
				zap.Int("rows", t.Rows()),
				zap.Int("cols", t.Cols()),
			)
			tables[i] = t
			return nil
		})
	}

	var pop *types.PopulationVector
	g.Go(func() error {
		v, err := p.LoadPopulation(ctx)
		if err != nil {
			return fmt.Errorf("load %s: %w", types.PopulationFile, err)
		}
		pop = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &types.Dataset{
		Source:     p.Source(),
		Tables:     make(map[types.TableName]*types.FlowTable, len(names)),
		Population: pop,
	}
	for i, name := range names {
		ds.Tables[name] = tables[i]
	}
	return ds, nil
}
