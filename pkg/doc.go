// Package pkg provides the core libraries for flowscope, an interactive
// viewer for hierarchical dataflow graphs.
//
// # Overview
//
// A dataflow graph of operators and edges is grouped into a nesting of
// containers (loops, closures, source locations). Containers can be
// collapsed into a single box, in which case the edges crossing its boundary
// are replaced by aggregated hyperedges, and expanded again later.
//
// The typical data flow:
//
//	JSON document
//	     ↓
//	[io] package (parse, select hierarchy)
//	     ↓
//	[hgraph] package (graph state, collapse/expand, hyperedges)
//	     ↓
//	[layout] package (engine adapter, generation guard, debouncing)
//	     ↓
//	[render] package (positioned elements, SVG/PDF/PNG/JSON)
//
// [session] ties these together per viewer and persists state through a
// [session.Store]; [server] exposes sessions over HTTP and WebSocket.
//
// # Quick Start
//
//	g, err := io.ImportJSON("flow.json")
//	if err != nil {
//	    return err
//	}
//	s, err := session.New(ctx, g, session.Config{
//	    Engine:   layout.NewEngine(layout.EngineLayered, layout.DirectionDown),
//	    Debounce: -1,
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	_ = s.Collapse(ctx, "loc_0")
//	svg := render.ToSVG(s.Render())
//
// # Packages
//
// [hgraph] - Graph model with container hierarchy, collapse/expand lineage
// and hyperedge aggregation.
//
// [coords] - Translation between absolute layout coordinates and
// parent-relative render coordinates.
//
// [layout] - Layout requests, the layered and Graphviz engines, result
// application and the viewport collapse policy.
//
// [render] - Render output construction and encoders.
//
// [cache] - Memory and file caches for layout results.
//
// [errors] - Coded errors shared by all packages.
//
// [observability] - Hooks for layout, transition and cache events.
//
// [hgraph]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/hgraph
// [coords]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/coords
// [layout]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/render
// [io]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/io
// [session]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/session
// [session.Store]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/session#Store
// [server]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/flowscope/pkg/observability
package pkg
