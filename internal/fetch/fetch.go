// Package fetch memoizes backend calls by endpoint and parameters.
//
// A Cache is shared by every store of a session. Each store owns a Fetcher,
// which carries that store's loading flag. Cached values are shared between
// callers and must be treated as read-only.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"approvals/internal/cache"
	applog "approvals/internal/log"
)

// Backend endpoint names, also used as cache key prefixes.
const (
	EndpointEmployees              = "employees"
	EndpointPaginatedTransactions  = "paginatedTransactions"
	EndpointTransactionsByEmployee = "transactionsByEmployee"
	EndpointSetTransactionApproval = "setTransactionApproval"
)

const keySeparator = "@"

type Options struct {
	// MaxEntries bounds the cache; zero means unbounded.
	MaxEntries int
	// TTL expires entries; zero keeps them until invalidated.
	TTL     time.Duration
	Metrics *Metrics
}

type Cache struct {
	entries    *cache.LRUCache[any]
	group      singleflight.Group
	generation atomic.Uint64
	metrics    *Metrics
}

func NewCache(opts Options) *Cache {
	return &Cache{
		entries: cache.NewLRUCache[any](opts.MaxEntries, opts.TTL),
		metrics: opts.Metrics,
	}
}

// Invalidate drops every cached response.
func (c *Cache) Invalidate() int {
	c.generation.Add(1)
	n := c.entries.Clear()
	c.metrics.recordInvalidate("all")
	slog.Debug("Fetch cache cleared",
		applog.FieldComponent, applog.ComponentFetch,
		applog.FieldOperation, applog.OpInvalidate,
		applog.FieldCount, n)
	return n
}

// InvalidateEndpoints drops cached responses of the named endpoints only.
func (c *Cache) InvalidateEndpoints(endpoints ...string) int {
	if len(endpoints) == 0 {
		return 0
	}
	c.generation.Add(1)
	n := c.entries.DeleteFunc(func(key string) bool {
		for _, ep := range endpoints {
			if strings.HasPrefix(key, ep+keySeparator) {
				return true
			}
		}
		return false
	})
	c.metrics.recordInvalidate("endpoint")
	slog.Debug("Fetch cache endpoints cleared",
		applog.FieldComponent, applog.ComponentFetch,
		applog.FieldOperation, applog.OpInvalidate,
		"endpoints", endpoints,
		applog.FieldCount, n)
	return n
}

// CleanExpired lets a cache.Manager sweep TTL-expired responses.
func (c *Cache) CleanExpired() int {
	return c.entries.CleanExpired()
}

func (c *Cache) Size() int {
	return c.entries.Size()
}

// NewFetcher returns a Fetcher with its own loading flag over this cache.
func (c *Cache) NewFetcher() *Fetcher {
	return &Fetcher{cache: c}
}

// Fetcher issues calls through a Cache and reports whether any of its own
// calls are in flight.
type Fetcher struct {
	cache    *Cache
	inflight atomic.Int64
}

func (f *Fetcher) Loading() bool {
	return f.inflight.Load() > 0
}

func (f *Fetcher) Cache() *Cache {
	return f.cache
}

func (f *Fetcher) begin() func() {
	f.inflight.Add(1)
	f.cache.metrics.trackInflight(1)
	return func() {
		f.inflight.Add(-1)
		f.cache.metrics.trackInflight(-1)
	}
}

// Key builds the cache key for endpoint and params. Params are normalised
// through a JSON round trip, so field order does not change the key.
func Key(endpoint string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode %s params: %w", endpoint, err)
	}

	var canonical any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&canonical); err != nil {
		return "", fmt.Errorf("normalise %s params: %w", endpoint, err)
	}

	norm, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("encode %s key: %w", endpoint, err)
	}
	return endpoint + keySeparator + string(norm), nil
}

// WithCache returns the cached response for (endpoint, params) or performs
// call and caches its result. Failed calls are never cached.
func WithCache[R, P any](ctx context.Context, f *Fetcher, endpoint string, params P, call func(context.Context, P) (R, error)) (R, error) {
	var zero R
	key, err := Key(endpoint, params)
	if err != nil {
		return zero, err
	}

	c := f.cache
	if v, ok := c.entries.Get(key); ok {
		if r, ok := v.(R); ok {
			c.metrics.recordLookup(endpoint, true)
			slog.DebugContext(ctx, "Fetch cache hit",
				applog.NewFields().WithComponent(applog.ComponentFetch).WithFetch(endpoint, key).ToSlice()...)
			return r, nil
		}
	}
	c.metrics.recordLookup(endpoint, false)

	done := f.begin()
	defer done()

	// Callers arriving after an invalidation start a new flight. The shared
	// call ignores any single caller's cancellation.
	gen := c.generation.Load()
	flight := key + "#" + strconv.FormatUint(gen, 10)
	callCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		r, err := call(callCtx, params)
		if err != nil {
			return nil, err
		}
		// An invalidation during the call must not be undone by this result.
		if c.generation.Load() == gen {
			c.entries.Set(key, r)
		}
		return r, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("fetch %s: %w", endpoint, ctx.Err())
	case res = <-ch:
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		c.metrics.recordFailure(endpoint)
		return zero, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	slog.DebugContext(ctx, "Fetch cache miss served",
		append(applog.NewFields().WithComponent(applog.ComponentFetch).WithFetch(endpoint, key).ToSlice(),
			"shared", shared)...)

	r, _ := v.(R)
	return r, nil
}

// WithoutCache performs call while counting it as loading, bypassing the cache.
func WithoutCache[R, P any](ctx context.Context, f *Fetcher, endpoint string, params P, call func(context.Context, P) (R, error)) (R, error) {
	done := f.begin()
	defer done()

	r, err := call(ctx, params)
	if err != nil {
		f.cache.metrics.recordFailure(endpoint)
		var zero R
		return zero, fmt.Errorf("%s: %w", endpoint, err)
	}
	return r, nil
}
