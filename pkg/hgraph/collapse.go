package hgraph

import (
	"maps"
	"slices"

	"github.com/matzehuels/flowscope/pkg/errors"
)

// HyperPrefix starts the id of every hyperedge.
const HyperPrefix = "hyper_"

// Endpoints are the original leaf endpoints of an aggregated edge.
type Endpoints struct {
	Source string
	Target string
}

// HyperEdge is a synthetic edge standing in for one or more original edges
// that cross a collapsed container boundary.
type HyperEdge struct {
	ID         string
	Source     string
	Target     string
	Style      string
	Aggregated []string             // Original edge ids, sorted
	Lineage    map[string]Endpoints // Aggregated edge id -> leaf endpoints
}

type pair struct{ source, target string }

type hyperEdge struct {
	id      string
	source  string
	target  string
	style   string
	members map[string]struct{}
}

func (h *hyperEdge) view() EdgeView {
	return EdgeView{
		Kind:       KindHyper,
		ID:         h.id,
		Source:     h.source,
		Target:     h.target,
		Style:      h.style,
		Aggregated: slices.Sorted(maps.Keys(h.members)),
	}
}

// HyperEdgeID returns the id used for the hyperedge between two current
// endpoints.
func HyperEdgeID(source, target string) string {
	return HyperPrefix + source + "_to_" + target
}

// =============================================================================
// Transitions
// =============================================================================

// CollapseContainer collapses a container. Its descendants become invisible
// and every edge crossing its boundary is lifted into a hyperedge between the
// container and the edge's current far endpoint; hyperedges owned by nested
// collapsed containers are re-targeted to this container. Collapsing an
// already collapsed container is a no-op.
func (g *Graph) CollapseContainer(id string) error {
	c, ok := g.containers[id]
	if !ok {
		return errors.NotFound("container", id)
	}
	if c.Collapsed {
		return nil
	}
	c.Collapsed = true
	g.relift(g.subtreeEdges(id))
	g.bump()
	return nil
}

// ExpandContainer expands a collapsed container. Only this container's flag
// changes; collapsed children stay collapsed. Every hyperedge ending at the
// container is grounded: aggregated edges whose endpoints are now both visible
// leaves become plain edges again, the rest move into intermediate hyperedges.
//
// The container must have cached expanded dimensions from a prior layout pass
// (see [Graph.SetExpandedSize]); otherwise a MISSING_DIMENSIONS error is
// returned and nothing changes.
func (g *Graph) ExpandContainer(id string) error {
	c, ok := g.containers[id]
	if !ok {
		return errors.NotFound("container", id)
	}
	if !c.Collapsed {
		return nil
	}
	if _, ok := g.expanded[id]; !ok {
		return errors.MissingDimensions(id)
	}
	c.Collapsed = false
	g.relift(g.subtreeEdges(id))
	g.bump()
	return nil
}

// ToggleContainer expands a collapsed container and collapses an expanded one.
func (g *Graph) ToggleContainer(id string) error {
	c, ok := g.containers[id]
	if !ok {
		return errors.NotFound("container", id)
	}
	if c.Collapsed {
		return g.ExpandContainer(id)
	}
	return g.CollapseContainer(id)
}

// CollapseAll collapses every container.
func (g *Graph) CollapseAll() {
	changed := false
	for _, c := range g.containers {
		if !c.Collapsed {
			c.Collapsed = true
			changed = true
		}
	}
	if !changed {
		return
	}
	g.relift(slices.Sorted(maps.Keys(g.edges)))
	g.bump()
}

// ExpandAll expands every container. It fails without changes if any
// collapsed container lacks cached expanded dimensions.
func (g *Graph) ExpandAll() error {
	var collapsed []string
	for _, id := range slices.Sorted(maps.Keys(g.containers)) {
		if g.containers[id].Collapsed {
			if _, ok := g.expanded[id]; !ok {
				return errors.MissingDimensions(id)
			}
			collapsed = append(collapsed, id)
		}
	}
	if len(collapsed) == 0 {
		return nil
	}
	for _, id := range collapsed {
		g.containers[id].Collapsed = false
	}
	g.relift(slices.Sorted(maps.Keys(g.edges)))
	g.bump()
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// HyperEdge returns the hyperedge with the given id, including its lineage.
func (g *Graph) HyperEdge(id string) (HyperEdge, bool) {
	h, ok := g.hyper[id]
	if !ok {
		return HyperEdge{}, false
	}
	return g.export(h), true
}

// HyperEdges returns all hyperedges, visible or not, sorted by id.
func (g *Graph) HyperEdges() []HyperEdge {
	out := make([]HyperEdge, 0, len(g.hyper))
	for _, id := range slices.Sorted(maps.Keys(g.hyper)) {
		out = append(out, g.export(g.hyper[id]))
	}
	return out
}

// HyperEdgeCount returns the number of hyperedges.
func (g *Graph) HyperEdgeCount() int { return len(g.hyper) }

// Absorbed returns the ids of edges whose endpoints both lie inside the
// collapsed container id, sorted.
func (g *Graph) Absorbed(id string) []string {
	return slices.Sorted(maps.Keys(g.absorbed[id]))
}

// LiftedInto returns the hyperedge aggregating an original edge.
func (g *Graph) LiftedInto(edgeID string) (string, bool) {
	hid, ok := g.liftedTo[edgeID]
	return hid, ok
}

func (g *Graph) export(h *hyperEdge) HyperEdge {
	agg := slices.Sorted(maps.Keys(h.members))
	lineage := make(map[string]Endpoints, len(agg))
	for _, eid := range agg {
		e := g.edges[eid]
		lineage[eid] = Endpoints{Source: e.Source, Target: e.Target}
	}
	return HyperEdge{
		ID:         h.id,
		Source:     h.source,
		Target:     h.target,
		Style:      h.style,
		Aggregated: agg,
		Lineage:    lineage,
	}
}

// =============================================================================
// Lift / ground
// =============================================================================

// lifts reports whether an edge takes part in aggregation at all. Hidden
// edges and edges touching a hidden leaf are never aggregated.
func (g *Graph) lifts(e *Edge) bool {
	if e.Hidden {
		return false
	}
	return !g.nodes[e.Source].Hidden && !g.nodes[e.Target].Hidden
}

// relift recomputes the placement of the given edges from their lineage:
// grounded (both current endpoints are the original leaves), absorbed (both
// current endpoints are the same container) or aggregated into the hyperedge
// of the current endpoint pair. Hyperedges left empty are deleted and styles
// of touched hyperedges are recomputed.
func (g *Graph) relift(edgeIDs []string) {
	touched := make(map[string]struct{})
	for _, eid := range edgeIDs {
		if hid := g.detachEdge(eid); hid != "" {
			touched[hid] = struct{}{}
		}
	}

	for _, eid := range edgeIDs {
		e, ok := g.edges[eid]
		if !ok || !g.lifts(e) {
			continue
		}
		src, tgt := g.current(e.Source), g.current(e.Target)
		switch {
		case src == e.Source && tgt == e.Target:
			// Grounded: the original edge is drawn as is.
		case src == tgt:
			set, ok := g.absorbed[src]
			if !ok {
				set = make(map[string]struct{})
				g.absorbed[src] = set
			}
			set[eid] = struct{}{}
			g.absorbedBy[eid] = src
		default:
			h := g.hyperFor(src, tgt)
			h.members[eid] = struct{}{}
			g.liftedTo[eid] = h.id
			touched[h.id] = struct{}{}
		}
	}

	for hid := range touched {
		g.refresh(hid)
	}
}

// detachEdge removes an edge from whatever hyperedge or absorbed set holds it
// and returns the hyperedge id it was taken from.
func (g *Graph) detachEdge(eid string) string {
	if cid, ok := g.absorbedBy[eid]; ok {
		delete(g.absorbed[cid], eid)
		if len(g.absorbed[cid]) == 0 {
			delete(g.absorbed, cid)
		}
		delete(g.absorbedBy, eid)
	}
	hid, ok := g.liftedTo[eid]
	if !ok {
		return ""
	}
	delete(g.hyper[hid].members, eid)
	delete(g.liftedTo, eid)
	return hid
}

// unlift detaches a single edge and settles its former hyperedge.
func (g *Graph) unlift(eid string) {
	if hid := g.detachEdge(eid); hid != "" {
		g.refresh(hid)
	}
}

// refresh deletes an empty hyperedge or recomputes its style.
func (g *Graph) refresh(hid string) {
	h, ok := g.hyper[hid]
	if !ok {
		return
	}
	if len(h.members) == 0 {
		delete(g.hyper, hid)
		delete(g.pairs, pair{h.source, h.target})
		return
	}
	styles := make([]string, 0, len(h.members))
	for eid := range h.members {
		styles = append(styles, g.edges[eid].Style)
	}
	h.style = MergeStyles(styles...)
}

// hyperFor returns the hyperedge for a current endpoint pair, creating it if
// needed. Direction is preserved: A->B and B->A are distinct hyperedges.
func (g *Graph) hyperFor(source, target string) *hyperEdge {
	key := pair{source, target}
	if hid, ok := g.pairs[key]; ok {
		return g.hyper[hid]
	}
	id := HyperEdgeID(source, target)
	for g.hyper[id] != nil {
		// Ids containing "_to_" can produce the same name for different pairs.
		id += "'"
	}
	h := &hyperEdge{
		id:      id,
		source:  source,
		target:  target,
		members: make(map[string]struct{}),
	}
	g.hyper[id] = h
	g.pairs[key] = id
	return h
}
