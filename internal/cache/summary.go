package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"mandir/internal/core"
)

// loadTimeout bounds a shared computation once it no longer follows any
// single request.
const loadTimeout = 30 * time.Second

// SummaryLoader computes a collection summary.
type SummaryLoader interface {
	Aggregate(ctx context.Context, q core.CollectionQuery) (core.CollectionSummary, error)
}

// generational tags a summary with the cache generation it was computed in.
type generational struct {
	gen     int64
	summary core.CollectionSummary
}

// SummaryCache memoizes collection summaries by query. Concurrent misses for
// the same query share one computation. Invalidate after any booking write.
type SummaryCache struct {
	loader SummaryLoader
	lru    *LRUCache[generational]
	group  singleflight.Group
	gen    atomic.Int64
}

func NewSummaryCache(loader SummaryLoader, size int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		loader: loader,
		lru:    NewLRUCache[generational](size, ttl),
	}
}

// Aggregate returns the cached summary for q or computes it. The computation
// runs detached from ctx so that one cancelled caller does not fail the
// others waiting on it; ctx only bounds this caller's wait.
func (c *SummaryCache) Aggregate(ctx context.Context, q core.CollectionQuery) (core.CollectionSummary, error) {
	key := q.Key()
	gen := c.gen.Load()
	if e, ok := c.lru.Get(key); ok {
		if e.gen == gen {
			return e.summary, nil
		}
		c.lru.Delete(key)
	}

	ch := c.group.DoChan(strconv.FormatInt(gen, 10)+"|"+key, func() (interface{}, error) {
		// An entry stored after an Invalidate carries the old generation
		// and is never served.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		s, err := c.loader.Aggregate(loadCtx, q)
		if err != nil {
			return core.CollectionSummary{}, err
		}
		c.lru.Set(key, generational{gen: gen, summary: s})
		return s, nil
	})

	select {
	case <-ctx.Done():
		return core.CollectionSummary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return core.CollectionSummary{}, res.Err
		}
		if res.Shared {
			slog.DebugContext(ctx, "Collection summary computation shared", "key", key)
		}
		return res.Val.(core.CollectionSummary), nil
	}
}

// Invalidate drops every cached summary.
func (c *SummaryCache) Invalidate() {
	c.gen.Add(1)
	c.lru.Purge()
}

func (c *SummaryCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *SummaryCache) Stats() Stats { return c.lru.Stats() }
