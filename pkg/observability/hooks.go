// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the hook interfaces defined here without
// depending on a specific backend. The CLI registers concrete hooks at
// startup; the [prometheus] subpackage provides a Prometheus implementation.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    hooks := prometheus.NewHooks(prom.DefaultRegisterer)
//	    observability.SetLayoutHooks(hooks)
//	    observability.SetGraphHooks(hooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnLayoutStart(ctx, engine, nodes, edges)
//	// ... run the engine ...
//	observability.Layout().OnLayoutComplete(ctx, engine, duration, err)
//
// [prometheus]: github.com/matzehuels/flowscope/pkg/observability/prometheus
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout adapter.
type LayoutHooks interface {
	// OnLayoutStart is called before a request is handed to an engine.
	OnLayoutStart(ctx context.Context, engine string, nodes, edges int)

	// OnLayoutComplete is called when the engine returns.
	OnLayoutComplete(ctx context.Context, engine string, duration time.Duration, err error)

	// OnLayoutDiscarded is called when a result is dropped because the graph
	// changed while the engine was running.
	OnLayoutDiscarded(ctx context.Context, engine string)
}

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives events from collapse/expand transitions.
type GraphHooks interface {
	// OnTransition records a collapse, expand or toggle of one container.
	OnTransition(ctx context.Context, op, containerID string, duration time.Duration, err error)

	// OnHyperEdges reports the hyperedge count after a transition.
	OnHyperEdges(ctx context.Context, count int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutStart(context.Context, string, int, int)                  {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, string, time.Duration, error) {}
func (NoopLayoutHooks) OnLayoutDiscarded(context.Context, string)                       {}

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnTransition(context.Context, string, string, time.Duration, error) {}
func (NoopGraphHooks) OnHyperEdges(context.Context, int)                                 {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	graphHooks  GraphHooks  = NoopGraphHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetGraphHooks registers custom graph hooks.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	graphHooks = NoopGraphHooks{}
	cacheHooks = NoopCacheHooks{}
}
