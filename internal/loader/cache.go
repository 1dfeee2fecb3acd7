package loader

import (
	"context"
	"sync"
	"time"

	"analizador/internal/cache"
	"analizador/internal/core"
	"analizador/internal/log"
	"analizador/internal/metrics"
	"analizador/internal/sheets"

	"golang.org/x/sync/singleflight"
)

// CacheOptions configure dataset memoization.
type CacheOptions struct {
	Size int
	// TTL of zero keeps entries until evicted or invalidated.
	TTL time.Duration
	// Kind labels load metrics (file, sheets, memory).
	Kind     string
	Recorder metrics.Recorder
	Logger   *log.Logger
}

// Cache memoizes loads by content identity. Concurrent loads of the same
// identity share one parse and failed loads are never stored.
type Cache struct {
	loader *Loader
	lru    *cache.LRUCache[*core.Dataset]
	group  singleflight.Group
	kind   string
	rec    metrics.Recorder
	logger *log.Logger

	mu     sync.Mutex
	byPath map[string]string
}

func NewCache(l *Loader, opts CacheOptions) *Cache {
	if opts.Size <= 0 {
		opts.Size = 16
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Kind == "" {
		opts.Kind = "file"
	}
	return &Cache{
		loader: l,
		lru:    cache.NewLRUCache[*core.Dataset](opts.Size, opts.TTL),
		kind:   opts.Kind,
		rec:    opts.Recorder,
		logger: opts.Logger.WithComponent(log.ComponentCache),
		byPath: make(map[string]string),
	}
}

// Load returns the dataset for src, parsing it only when its identity is not
// cached. key names the source (usually its path) for Invalidate.
func (c *Cache) Load(ctx context.Context, key string, src sheets.WorkbookReader) (*core.Dataset, error) {
	id, err := src.Identity(ctx)
	if err != nil {
		c.rec.RecordLoad(c.kind, metrics.OutcomeError, 0)
		return nil, &core.LoadError{Source: src.Name(), Err: err}
	}

	c.mu.Lock()
	c.byPath[key] = id
	c.mu.Unlock()

	if ds, ok := c.lru.Get(id); ok {
		c.rec.RecordCache(true)
		return ds, nil
	}
	c.rec.RecordCache(false)

	// Other callers may be waiting on this load, so it must outlive the
	// request that started it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(id, func() (any, error) {
		if ds, ok := c.lru.Get(id); ok {
			return ds, nil
		}
		start := time.Now()
		ds, err := c.loader.load(loadCtx, src, id)
		if err != nil {
			c.rec.RecordLoad(c.kind, metrics.OutcomeError, time.Since(start))
			return nil, err
		}
		c.rec.RecordLoad(c.kind, metrics.OutcomeSuccess, time.Since(start))
		c.lru.Set(id, ds)
		c.logger.DebugContext(ctx, "dataset cached", log.FieldSource, ds.Source, log.FieldIdentity, id, log.FieldRows, ds.Joined.Len())
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "shared in-flight load", log.FieldIdentity, id)
	}
	return v.(*core.Dataset), nil
}

// Invalidate drops the entry last loaded under key. It reports whether
// anything was removed.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	id, ok := c.byPath[key]
	delete(c.byPath, key)
	c.mu.Unlock()
	if !ok {
		return false
	}
	before := c.lru.Size()
	c.lru.Delete(id)
	return c.lru.Size() < before
}

// Purge empties the cache.
func (c *Cache) Purge() int {
	c.mu.Lock()
	c.byPath = make(map[string]string)
	c.mu.Unlock()
	return c.lru.Purge()
}

// Stats exposes the underlying LRU counters.
func (c *Cache) Stats() cache.Stats { return c.lru.Stats() }

// Cleaner lets a cache.Manager expire entries when a TTL is configured.
func (c *Cache) Cleaner() cache.Cleaner { return c.lru }
