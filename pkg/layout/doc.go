// Package layout connects a [hgraph.Graph] to a layout engine.
//
// # Overview
//
// Layout runs in three steps:
//
//  1. [BuildRequest] extracts the visible state: nodes, plain and hyper edges
//     combined, and containers with either their collapsed footprint or their
//     expanded size, nested through their children lists.
//  2. An [Engine] places every element and returns absolute top-left
//     coordinates and final sizes.
//  3. [Apply] writes positions and sizes back into the graph and caches the
//     measured size of every expanded container.
//
// Hyperedges are always part of the request. Without them a collapsed
// container is placed with no knowledge of its connections and ends up on top
// of the nodes it is linked to.
//
// # Engines
//
//   - [GraphvizEngine] runs Graphviz dot with one cluster per expanded
//     container and reads positions back from the xdot output
//   - [LayeredEngine] is a pure-Go layered placement used offline and in tests
//   - [CachedEngine] memoizes any engine by request hash
//
// # Staleness
//
// The engine call is the only slow step and runs without holding the graph
// lock. [Adapter.Run] records the graph generation when it builds the request
// and applies the response only if the generation is unchanged; otherwise
// the result is discarded and reported with [Result.Discarded]. [Debouncer]
// coalesces bursts of interactive changes into a single run.
//
// [hgraph.Graph]: github.com/matzehuels/flowscope/pkg/hgraph
package layout
