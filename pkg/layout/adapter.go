package layout

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
	"github.com/matzehuels/flowscope/pkg/observability"
)

// Adapter runs an engine against a graph and writes the result back.
//
// The engine runs without holding the graph lock. A result computed for a
// generation that is no longer current is discarded, so a slow layout never
// overwrites geometry for a structure that has since changed.
type Adapter struct {
	graph  *hgraph.Graph
	engine Engine
	mu     sync.Locker
	logger *log.Logger
}

// AdapterOption configures an [Adapter].
type AdapterOption func(*Adapter)

// WithLocker guards graph access with l. Callers that mutate the graph from
// other goroutines must share the same lock.
func WithLocker(l sync.Locker) AdapterOption {
	return func(a *Adapter) { a.mu = l }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *log.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter returns an adapter laying out g with engine.
func NewAdapter(g *hgraph.Graph, engine Engine, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		graph:  g,
		engine: engine,
		mu:     &sync.Mutex{},
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Engine returns the engine in use.
func (a *Adapter) Engine() Engine { return a.engine }

// Result describes one layout pass.
type Result struct {
	Generation uint64        `json:"generation"`
	Discarded  bool          `json:"discarded"`
	Applied    int           `json:"applied"`
	Missing    int           `json:"missing"`
	Duration   time.Duration `json:"duration"`
}

// Run lays out the visible graph. Engine failures are returned as
// LAYOUT_FAILURE errors and leave the graph untouched.
func (a *Adapter) Run(ctx context.Context) (Result, error) {
	return a.run(ctx, BuildRequest, func(req Request, resp Response) (int, int) {
		stats := Apply(a.graph, req, resp)
		if stats.Unknown > 0 {
			a.logger.Warn("layout returned unknown ids", "count", stats.Unknown)
		}
		return stats.Applied, stats.Missing
	})
}

// Measure lays out the fully expanded graph and caches the resulting
// container sizes as expanded dimensions. Geometry is not modified.
func (a *Adapter) Measure(ctx context.Context) (Result, error) {
	return a.run(ctx, BuildFullRequest, func(req Request, resp Response) (int, int) {
		n := ApplyMeasurements(a.graph, req, resp)
		return n, len(req.Containers) - n
	})
}

func (a *Adapter) run(ctx context.Context, build func(*hgraph.Graph) Request, apply func(Request, Response) (int, int)) (Result, error) {
	name := a.engine.Name()

	a.mu.Lock()
	gen := a.graph.Generation()
	req := build(a.graph)
	a.mu.Unlock()

	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, name, req.Len(), len(req.Edges))
	start := time.Now()
	resp, err := a.engine.Layout(ctx, req)
	elapsed := time.Since(start)
	hooks.OnLayoutComplete(ctx, name, elapsed, err)

	result := Result{Generation: gen, Duration: elapsed}
	if err != nil {
		a.logger.Error("layout failed", "engine", name, "err", err)
		return result, errors.LayoutFailure(name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if cur := a.graph.Generation(); cur != gen {
		hooks.OnLayoutDiscarded(ctx, name)
		a.logger.Debug("discarded stale layout", "engine", name, "generation", gen, "current", cur)
		result.Discarded = true
		return result, nil
	}
	result.Applied, result.Missing = apply(req, resp)
	a.logger.Debug("applied layout",
		"engine", name,
		"elements", result.Applied,
		"missing", result.Missing,
		"duration", elapsed)
	return result, nil
}
