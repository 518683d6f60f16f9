package suntime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Source hands out sun tables for a location and year.
type Source interface {
	Table(ctx context.Context, latitude, longitude float64, year int) (*Table, error)
}

// ProviderSource builds a fresh table on every call.
type ProviderSource struct {
	Provider Provider
}

func (s ProviderSource) Table(ctx context.Context, latitude, longitude float64, year int) (*Table, error) {
	return Build(ctx, s.Provider, latitude, longitude, year)
}

// Cache memoizes tables per (latitude, longitude, year). Tables are
// immutable, so a cached table can be shared between compiles.
type Cache struct {
	provider Provider
	tables   *cache.Cache
	group    singleflight.Group
}

// NewCache creates a cache whose entries expire after ttl. A ttl of zero
// keeps entries until the process exits.
func NewCache(p Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Cache{
		provider: p,
		tables:   cache.New(ttl, 10*time.Minute),
	}
}

// Table returns the cached table or builds it. Concurrent misses for the same
// key share one build. The shared build is not cancelled with any single
// caller's ctx; each caller stops waiting when its own ctx is done.
func (c *Cache) Table(ctx context.Context, latitude, longitude float64, year int) (*Table, error) {
	key := fmt.Sprintf("%.6f,%.6f,%d", latitude, longitude, year)
	if v, ok := c.tables.Get(key); ok {
		return v.(*Table), nil
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		t, err := Build(buildCtx, c.provider, latitude, longitude, year)
		if err != nil {
			return nil, err
		}
		c.tables.SetDefault(key, t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	}
}

// Len reports how many tables are cached.
func (c *Cache) Len() int {
	return c.tables.ItemCount()
}

// Lazy creates its provider on the first table request, so runs that never
// need sun times skip loading timezone data.
type Lazy struct {
	New func() (Provider, error)
	TTL time.Duration

	once  sync.Once
	cache *Cache
	err   error
}

// NewAstroSource is a Lazy cache over an AstroProvider.
func NewAstroSource(ttl time.Duration) *Lazy {
	return &Lazy{
		New: func() (Provider, error) { return NewAstroProvider() },
		TTL: ttl,
	}
}

func (l *Lazy) Table(ctx context.Context, latitude, longitude float64, year int) (*Table, error) {
	l.once.Do(func() {
		p, err := l.New()
		if err != nil {
			l.err = err
			return
		}
		l.cache = NewCache(p, l.TTL)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.cache.Table(ctx, latitude, longitude, year)
}
