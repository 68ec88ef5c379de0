// Package cache memoizes expensive renders keyed by path and content
// fingerprint, with LRU eviction and at most one concurrent render per key.
package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CageChen/syntaxia/internal/errs"
	"github.com/CageChen/syntaxia/internal/metrics"
)

// DefaultMaxEntries bounds the cache when no size is configured.
const DefaultMaxEntries = 512

// Key identifies one rendering of a file.
type Key struct {
	Path        string
	Fingerprint uint64
}

// Fingerprint hashes file content together with its length.
func Fingerprint(content []byte) uint64 {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(content)))
	d := xxhash.New()
	_, _ = d.Write(n[:])
	_, _ = d.Write(content)
	return d.Sum64()
}

// Stats holds cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Stale     uint64 `json:"stale"`
	Shared    uint64 `json:"shared"`
	Renders   uint64 `json:"renders"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

// Options configures a Cache.
type Options struct {
	// MaxEntries is the number of entries kept before the least recently used
	// one is evicted.
	MaxEntries int
	// RenderTimeout bounds how long a caller waits for a render. Zero waits
	// until the render finishes.
	RenderTimeout time.Duration
	Logger        *zap.Logger
}

type entry[V any] struct {
	fingerprint uint64
	value       V
}

// Cache is a count-bounded LRU of rendered values. One entry is kept per
// path; an entry is only served while its fingerprint matches the caller's.
// Stored values are shared between callers and must not be mutated.
type Cache[V any] struct {
	entries *lru.Cache[string, entry[V]]
	group   singleflight.Group
	timeout time.Duration
	logger  *zap.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	stale     atomic.Uint64
	shared    atomic.Uint64
	renders   atomic.Uint64
	evictions atomic.Uint64
}

// New creates a Cache.
func New[V any](opts Options) (*Cache[V], error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	entries, err := lru.New[string, entry[V]](opts.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache[V]{entries: entries, timeout: opts.RenderTimeout, logger: opts.Logger}, nil
}

// GetOrRender returns the value cached for key, calling render on a miss or
// when the cached fingerprint differs. Concurrent callers for the same key
// share a single render call. The render runs detached from ctx: a caller
// that gives up, through ctx or the render timeout, stops waiting while the
// render still completes and fills the cache. Render errors are returned to
// every waiter and are not cached.
func (c *Cache[V]) GetOrRender(ctx context.Context, key Key, render func() (V, error)) (V, error) {
	var zero V
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(flightKey(key), func() (any, error) {
		// a flight for this key may have finished between lookup and DoChan
		if e, ok := c.entries.Peek(key.Path); ok && e.fingerprint == key.Fingerprint {
			return e.value, nil
		}
		v, err := c.run(key, render)
		if err != nil {
			return nil, err
		}
		if c.entries.Add(key.Path, entry[V]{fingerprint: key.Fingerprint, value: v}) {
			c.evictions.Add(1)
			metrics.RecordCacheEviction()
		}
		metrics.SetCacheEntries(c.entries.Len())
		return v, nil
	})

	var timeout <-chan time.Time
	if c.timeout > 0 {
		t := time.NewTimer(c.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
			metrics.RecordCacheLookup("shared")
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timeout:
		c.logger.Warn("render timed out",
			zap.String("path", key.Path),
			zap.Duration("timeout", c.timeout),
		)
		return zero, errs.Errorf(errs.RenderTimeout, key.Path, "render did not finish within %s", c.timeout)
	}
}

func (c *Cache[V]) run(key Key, render func() (V, error)) (v V, err error) {
	c.renders.Add(1)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render %s panicked: %v", key.Path, r)
		}
		c.logger.Debug("rendered",
			zap.String("path", key.Path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}()
	return render()
}

func (c *Cache[V]) lookup(key Key) (V, bool) {
	e, ok := c.entries.Get(key.Path)
	switch {
	case !ok:
		c.misses.Add(1)
		metrics.RecordCacheLookup("miss")
	case e.fingerprint != key.Fingerprint:
		c.stale.Add(1)
		metrics.RecordCacheLookup("stale")
	default:
		c.hits.Add(1)
		metrics.RecordCacheLookup("hit")
		return e.value, true
	}
	var zero V
	return zero, false
}

// Invalidate drops the entry for path.
func (c *Cache[V]) Invalidate(path string) bool {
	removed := c.entries.Remove(path)
	metrics.SetCacheEntries(c.entries.Len())
	return removed
}

// InvalidatePrefix drops the entries for dir and every path below it.
func (c *Cache[V]) InvalidatePrefix(dir string) int {
	n := 0
	for _, k := range c.entries.Keys() {
		if dir == "" || k == dir || strings.HasPrefix(k, dir+"/") {
			if c.entries.Remove(k) {
				n++
			}
		}
	}
	metrics.SetCacheEntries(c.entries.Len())
	return n
}

// Purge empties the cache.
func (c *Cache[V]) Purge() {
	c.entries.Purge()
	metrics.SetCacheEntries(0)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Stale:     c.stale.Load(),
		Shared:    c.shared.Load(),
		Renders:   c.renders.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.entries.Len(),
	}
}

func flightKey(k Key) string {
	return k.Path + "\x00" + strconv.FormatUint(k.Fingerprint, 16)
}
