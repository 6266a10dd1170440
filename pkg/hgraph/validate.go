package hgraph

import (
	"maps"
	"slices"

	"github.com/matzehuels/flowscope/pkg/errors"
)

// Validate checks the structural invariants of the graph:
//
//   - the container hierarchy is acyclic and parent/children indices agree
//   - every edge connects existing nodes
//   - every edge sits in exactly the place its lineage dictates: grounded,
//     absorbed by its common collapsed container, or aggregated into the
//     hyperedge of its current endpoint pair
//   - hyperedges are non-empty, touch a collapsed container and carry the
//     merged style of their members
//
// Every exported mutation preserves these invariants, so a failure indicates
// a bug rather than bad input.
func (g *Graph) Validate() error {
	for child, p := range g.parent {
		if _, ok := g.containers[p]; !ok {
			return errors.New(errors.ErrCodeInternal, "%q has unknown parent %q", child, p)
		}
		if _, ok := g.children[p][child]; !ok {
			return errors.New(errors.ErrCodeInternal, "%q missing from children of %q", child, p)
		}
		if g.cyclic(child) {
			return errors.Cycle(p, child)
		}
	}
	for p, set := range g.children {
		for child := range set {
			if g.parent[child] != p {
				return errors.New(errors.ErrCodeInternal, "children of %q list %q with parent %q", p, child, g.parent[child])
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(g.edges)) {
		if err := g.validateEdge(g.edges[id]); err != nil {
			return err
		}
	}

	for _, id := range slices.Sorted(maps.Keys(g.hyper)) {
		h := g.hyper[id]
		if len(h.members) == 0 {
			return errors.New(errors.ErrCodeInternal, "hyperedge %q aggregates no edges", id)
		}
		if !g.isCollapsed(h.source) && !g.isCollapsed(h.target) {
			return errors.New(errors.ErrCodeInternal, "hyperedge %q touches no collapsed container", id)
		}
		if g.pairs[pair{h.source, h.target}] != id {
			return errors.New(errors.ErrCodeInternal, "hyperedge %q missing from pair index", id)
		}
		styles := make([]string, 0, len(h.members))
		for eid := range h.members {
			styles = append(styles, g.edges[eid].Style)
		}
		if want := MergeStyles(styles...); h.style != want {
			return errors.New(errors.ErrCodeInternal, "hyperedge %q style %q, want %q", id, h.style, want)
		}
	}

	s := g.Stats()
	if s.Aggregated+s.Absorbed+s.Grounded != s.Eligible {
		return errors.New(errors.ErrCodeInternal,
			"edge conservation violated: %d aggregated + %d absorbed + %d grounded != %d eligible",
			s.Aggregated, s.Absorbed, s.Grounded, s.Eligible)
	}
	return nil
}

func (g *Graph) validateEdge(e *Edge) error {
	if _, ok := g.nodes[e.Source]; !ok {
		return errors.New(errors.ErrCodeInternal, "edge %q has unknown source %q", e.ID, e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return errors.New(errors.ErrCodeInternal, "edge %q has unknown target %q", e.ID, e.Target)
	}
	if _, ok := g.incident[e.Source][e.ID]; !ok {
		return errors.New(errors.ErrCodeInternal, "edge %q missing from incident index", e.ID)
	}

	hid, lifted := g.liftedTo[e.ID]
	cid, absorbed := g.absorbedBy[e.ID]
	if !g.lifts(e) {
		if lifted || absorbed {
			return errors.New(errors.ErrCodeInternal, "hidden edge %q is aggregated", e.ID)
		}
		return nil
	}

	src, tgt := g.current(e.Source), g.current(e.Target)
	switch {
	case src == e.Source && tgt == e.Target:
		if lifted || absorbed {
			return errors.New(errors.ErrCodeInternal, "grounded edge %q is aggregated", e.ID)
		}
	case src == tgt:
		if !absorbed || cid != src || lifted {
			return errors.New(errors.ErrCodeInternal, "edge %q should be absorbed by %q", e.ID, src)
		}
	default:
		h, ok := g.hyper[hid]
		if !lifted || absorbed || !ok || h.source != src || h.target != tgt {
			return errors.New(errors.ErrCodeInternal, "edge %q should be aggregated into %s", e.ID, HyperEdgeID(src, tgt))
		}
		if _, ok := h.members[e.ID]; !ok {
			return errors.New(errors.ErrCodeInternal, "hyperedge %q does not list %q", hid, e.ID)
		}
	}
	return nil
}

// cyclic walks up from id and reports whether the walk returns to id. The
// walk is bounded so a corrupted index cannot hang validation.
func (g *Graph) cyclic(id string) bool {
	steps := 0
	for p, ok := g.parent[id]; ok; p, ok = g.parent[p] {
		if p == id || steps > len(g.parent) {
			return true
		}
		steps++
	}
	return false
}

func (g *Graph) isCollapsed(id string) bool {
	c, ok := g.containers[id]
	return ok && c.Collapsed
}

// Stats summarizes the graph state.
type Stats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Containers int `json:"containers"`
	Collapsed  int `json:"collapsed"`
	HyperEdges int `json:"hyper_edges"`

	VisibleNodes      int `json:"visible_nodes"`
	VisibleContainers int `json:"visible_containers"`
	VisiblePlain      int `json:"visible_plain"`
	VisibleHyper      int `json:"visible_hyper"`

	// Eligible counts edges that are not hidden and whose leaves are not
	// hidden. Each of them is exactly one of aggregated, absorbed or grounded.
	Eligible   int `json:"eligible"`
	Aggregated int `json:"aggregated"`
	Absorbed   int `json:"absorbed"`
	Grounded   int `json:"grounded"`
}

// Stats computes counts over the current state.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:      len(g.nodes),
		Edges:      len(g.edges),
		Containers: len(g.containers),
		HyperEdges: len(g.hyper),
		Absorbed:   len(g.absorbedBy),
		Aggregated: len(g.liftedTo),
	}
	for id, c := range g.containers {
		if c.Collapsed {
			s.Collapsed++
		}
		if g.IsContainerVisible(id) {
			s.VisibleContainers++
		}
	}
	for id := range g.nodes {
		if g.IsNodeVisible(id) {
			s.VisibleNodes++
		}
	}
	for id, e := range g.edges {
		if g.IsEdgeVisible(id) {
			s.VisiblePlain++
		}
		if !g.lifts(e) {
			continue
		}
		s.Eligible++
		_, lifted := g.liftedTo[id]
		_, absorbed := g.absorbedBy[id]
		if !lifted && !absorbed {
			s.Grounded++
		}
	}
	for id := range g.hyper {
		if g.IsEdgeVisible(id) {
			s.VisibleHyper++
		}
	}
	return s
}
