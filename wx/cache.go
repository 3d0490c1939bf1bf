// wx/cache.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"context"
	gomath "math"
	"sync/atomic"
	"time"

	"github.com/skyroute/skyroute/math"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheTTL  = time.Hour
	DefaultCacheSize = 4096
)

type cacheKey [2]int32

// Locations are quantized to 1e-4 degrees (about 11m) for caching.
func makeCacheKey(p math.Point2LL) cacheKey {
	return cacheKey{int32(gomath.Round(p[0] * 1e4)), int32(gomath.Round(p[1] * 1e4))}
}

// Cached memoizes another Provider's samples for a fixed time-to-live.
// Synthetic samples are never cached so that real data is picked up as
// soon as the upstream recovers.
type Cached struct {
	Provider Provider

	lru          *expirable.LRU[cacheKey, Sample]
	hits, misses atomic.Int64
}

func NewCached(p Provider, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		Provider: p,
		lru:      expirable.NewLRU[cacheKey, Sample](size, nil, ttl),
	}
}

func (c *Cached) SampleAt(ctx context.Context, p math.Point2LL) (Sample, error) {
	key := makeCacheKey(p)
	if s, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return s, nil
	}
	c.misses.Add(1)

	s, err := c.Provider.SampleAt(ctx, p)
	if err == nil && !s.Synthetic {
		c.lru.Add(key, s)
	}
	return s, err
}

type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func (c *Cached) Stats() CacheStats {
	return CacheStats{Entries: c.lru.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *Cached) Purge() {
	c.lru.Purge()
}
