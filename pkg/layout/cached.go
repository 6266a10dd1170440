package layout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/observability"
)

// CachedEngine memoizes the responses of another engine by request hash.
// Cache errors are treated as misses.
type CachedEngine struct {
	Inner Engine
	Cache cache.Cache
	Keyer cache.Keyer
}

// NewCachedEngine wraps inner. A nil cache disables caching; a nil keyer
// uses the default key layout.
func NewCachedEngine(inner Engine, c cache.Cache, keyer cache.Keyer) *CachedEngine {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &CachedEngine{Inner: inner, Cache: c, Keyer: keyer}
}

// Name implements Engine.
func (e *CachedEngine) Name() string { return e.Inner.Name() }

// Layout implements Engine.
func (e *CachedEngine) Layout(ctx context.Context, req Request) (Response, error) {
	key := e.Keyer.LayoutKey(req.Hash(), cache.LayoutKeyOpts{
		Engine:   e.Inner.Name(),
		Settings: fmt.Sprintf("%+v", e.Inner),
	})

	if data, hit, err := e.Cache.Get(ctx, key); err == nil && hit {
		var resp Response
		if json.Unmarshal(data, &resp) == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			return resp, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	resp, err := e.Inner.Layout(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if data, err := json.Marshal(resp); err == nil {
		if e.Cache.Set(ctx, key, data, cache.TTLLayout) == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return resp, nil
}
