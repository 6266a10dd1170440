// Package hgraph holds the authoritative state of a hierarchical dataflow
// graph: leaf nodes, directed edges between them, nested containers, and the
// synthetic hyperedges that stand in for edges crossing a collapsed container.
//
// # Overview
//
// A viewer shows a large graph with containers that can be collapsed and
// expanded on demand. When a container collapses, every edge that crosses its
// boundary is lifted into a hyperedge between the container and the edge's
// far endpoint. When it expands again the hyperedge is grounded: each original
// edge is recomputed from its lineage and either becomes visible again or
// moves into an intermediate hyperedge if its other end is still hidden
// behind another collapsed container.
//
// # Basic Usage
//
//	g := hgraph.New()
//	_ = g.SetNode(hgraph.Node{ID: "1"})
//	_ = g.SetNode(hgraph.Node{ID: "2"})
//	_ = g.SetNode(hgraph.Node{ID: "3"})
//	_ = g.SetContainer(hgraph.Container{ID: "A"})
//	_ = g.AddChild("A", "1")
//	_ = g.AddChild("A", "2")
//	_ = g.SetEdge(hgraph.Edge{ID: "e1", Source: "1", Target: "3"})
//
//	_ = g.CollapseContainer("A") // e1 now lives in hyperedge A -> 3
//
// Query visible state with [Graph.VisibleNodes], [Graph.VisibleEdges] and
// [Graph.VisibleContainers]. Visible edges are returned as [EdgeView] values
// tagged [KindPlain] or [KindHyper]; callers switch on the kind.
//
// # Visibility
//
// Visibility is derived, never stored:
//
//   - a node is visible iff it is not hidden and no ancestor container is
//     collapsed or hidden
//   - a container is visible under the same rule applied to its ancestors only
//   - an edge is visible iff it is not hidden and both its current endpoints
//     are visible
//
// The current endpoint of a leaf is its outermost collapsed ancestor, or the
// leaf itself when no ancestor is collapsed. Because visibility is computed
// from flags on demand, collapse followed by expand restores exactly the
// previous visible state.
//
// # Hyperedges and Lineage
//
// Each hyperedge aggregates a set of original edge ids. The original edges keep
// their leaf endpoints, so the lineage of a hyperedge (aggregated id to leaf
// source and target) is always complete, even after further nested collapses
// re-target the hyperedge. Edges whose two current endpoints are the same
// collapsed container are absorbed by that container rather than drawn.
//
// The style of a hyperedge is computed by [MergeStyles] from its constituent
// edges, independent of aggregation order.
//
// # Generations
//
// Every mutation that changes what a layout engine would be asked to place
// advances [Graph.Generation]. The layout package uses it to discard layout
// results computed against a superseded state.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. The session package
// serializes access to one graph per viewer.
package hgraph
