package openalex

import (
	"context"
	"slices"
	"sync"

	"github.com/matsen/citegraph/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher fetches a single work. *Client satisfies it.
type Fetcher interface {
	GetWork(ctx context.Context, id string) (*Work, error)
}

// Cache memoizes work metadata for the lifetime of the process.
// Entries are never evicted or refreshed and failed fetches are never stored.
// It is safe for concurrent use by several sessions.
type Cache struct {
	fetcher      Fetcher
	referenceCap int
	metrics      *metrics.Collector
	logger       zerolog.Logger

	mu      sync.RWMutex
	entries map[string]Metadata

	// group collapses concurrent misses for the same ID into one fetch.
	group singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithReferenceCap sets the maximum number of referenced IDs kept per work.
func WithReferenceCap(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.referenceCap = n
		}
	}
}

// WithCacheMetrics reports hits and misses to a collector.
func WithCacheMetrics(m *metrics.Collector) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(l zerolog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache creates an empty metadata cache in front of f.
func NewCache(f Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher:      f,
		referenceCap: DefaultReferenceCap,
		logger:       zerolog.Nop(),
		entries:      make(map[string]Metadata),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetMetadata returns the metadata for a work, fetching it on first use.
func (c *Cache) GetMetadata(ctx context.Context, id string) (Metadata, error) {
	id = NormalizeID(id)

	if meta, ok := c.lookup(id); ok {
		c.metrics.ObserveCacheHit()
		return meta, nil
	}
	c.metrics.ObserveCacheMiss()

	// The fetch outlives the caller that started it; each caller waits only
	// as long as its own context allows.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		// Another caller may have filled the entry between lookup and DoChan.
		if meta, ok := c.lookup(id); ok {
			return meta, nil
		}

		work, err := c.fetcher.GetWork(fetchCtx, id)
		if err != nil {
			return Metadata{}, err
		}

		meta := ToMetadata(*work, c.referenceCap)
		if meta.ID == "" {
			meta.ID = id
		}

		c.mu.Lock()
		c.entries[id] = meta
		c.mu.Unlock()

		c.logger.Debug().Str("id", id).Int("references", len(meta.ReferencedIDs)).Msg("cached work metadata")
		return meta, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	}
	if res.Err != nil {
		return Metadata{}, res.Err
	}
	if res.Shared {
		c.logger.Debug().Str("id", id).Msg("joined in-flight metadata fetch")
	}

	return cloneMetadata(res.Val.(Metadata)), nil
}

// GetReferences returns the capped, deduplicated set of works cited by id.
func (c *Cache) GetReferences(ctx context.Context, id string) (map[string]struct{}, error) {
	meta, err := c.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]struct{}, len(meta.ReferencedIDs))
	for _, r := range meta.ReferencedIDs {
		refs[r] = struct{}{}
	}
	return refs, nil
}

// Len returns the number of cached works.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(id string) (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.entries[id]
	if !ok {
		return Metadata{}, false
	}
	return cloneMetadata(meta), true
}

// cloneMetadata copies the slices so callers cannot mutate cached entries.
func cloneMetadata(m Metadata) Metadata {
	m.Authors = slices.Clone(m.Authors)
	m.ReferencedIDs = slices.Clone(m.ReferencedIDs)
	return m
}
