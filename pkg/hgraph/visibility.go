package hgraph

import (
	"cmp"
	"slices"
)

// EdgeView is a visible edge as seen by layout and render consumers. Kind
// distinguishes original edges from hyperedges; Aggregated is only set for
// hyperedges.
type EdgeView struct {
	Kind       Kind
	ID         string
	Source     string
	Target     string
	Style      string
	Aggregated []string
}

// Count returns the number of original edges this view stands for.
func (v EdgeView) Count() int {
	if v.Kind == KindHyper {
		return len(v.Aggregated)
	}
	return 1
}

// IsNodeVisible reports whether a node is shown: it is not hidden and no
// ancestor container is collapsed or hidden.
func (g *Graph) IsNodeVisible(id string) bool {
	n, ok := g.nodes[id]
	if !ok || n.Hidden {
		return false
	}
	return g.ancestorsOpen(id)
}

// IsContainerVisible reports whether a container is shown. Its own collapsed
// flag does not matter, only the state of its ancestors.
func (g *Graph) IsContainerVisible(id string) bool {
	c, ok := g.containers[id]
	if !ok || c.Hidden {
		return false
	}
	return g.ancestorsOpen(id)
}

// IsEdgeVisible reports whether an original edge or a hyperedge is shown.
func (g *Graph) IsEdgeVisible(id string) bool {
	if e, ok := g.edges[id]; ok {
		return !e.Hidden && g.IsNodeVisible(e.Source) && g.IsNodeVisible(e.Target)
	}
	if h, ok := g.hyper[id]; ok {
		return g.isVisible(h.source) && g.isVisible(h.target)
	}
	return false
}

func (g *Graph) isVisible(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return g.IsNodeVisible(id)
	}
	return g.IsContainerVisible(id)
}

func (g *Graph) ancestorsOpen(id string) bool {
	for p, ok := g.parent[id]; ok; p, ok = g.parent[p] {
		c := g.containers[p]
		if c.Collapsed || c.Hidden {
			return false
		}
	}
	return true
}

// current returns the element standing in for a leaf: the outermost collapsed
// ancestor, or the leaf itself.
func (g *Graph) current(leaf string) string {
	rep := leaf
	for p, ok := g.parent[leaf]; ok; p, ok = g.parent[p] {
		if g.containers[p].Collapsed {
			rep = p
		}
	}
	return rep
}

// CurrentEndpoint exposes the collapse substitution for a leaf node. It returns
// false for unknown nodes.
func (g *Graph) CurrentEndpoint(nodeID string) (string, bool) {
	if _, ok := g.nodes[nodeID]; !ok {
		return "", false
	}
	return g.current(nodeID), true
}

// VisibleNodes returns the visible nodes sorted by id.
func (g *Graph) VisibleNodes() []Node {
	var out []Node
	for _, n := range g.Nodes() {
		if g.IsNodeVisible(n.ID) {
			out = append(out, n)
		}
	}
	return out
}

// VisibleContainers returns the visible containers sorted by id, collapsed
// ones included.
func (g *Graph) VisibleContainers() []Container {
	var out []Container
	for _, c := range g.Containers() {
		if g.IsContainerVisible(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

// VisibleEdges returns visible original edges and visible hyperedges,
// together sorted by id.
func (g *Graph) VisibleEdges() []EdgeView {
	var out []EdgeView
	for _, e := range g.edges {
		if g.IsEdgeVisible(e.ID) {
			out = append(out, EdgeView{
				Kind:   KindPlain,
				ID:     e.ID,
				Source: e.Source,
				Target: e.Target,
				Style:  e.Style,
			})
		}
	}
	for _, h := range g.hyper {
		if g.IsEdgeVisible(h.id) {
			out = append(out, h.view())
		}
	}
	slices.SortFunc(out, func(a, b EdgeView) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
