package hgraph

import (
	"maps"
	"slices"

	"github.com/matzehuels/flowscope/pkg/errors"
)

// AddChild places child (a node or container) inside the container parent.
// A child that already has a parent is moved. The assignment is rejected
// with a CYCLE error, before anything is modified, when parent is child itself
// or one of its descendants.
func (g *Graph) AddChild(parentID, childID string) error {
	if _, ok := g.containers[parentID]; !ok {
		return errors.NotFound("container", parentID)
	}
	if !g.exists(childID) {
		return errors.NotFound("element", childID)
	}
	if parentID == childID || slices.Contains(g.Ancestors(parentID), childID) {
		return errors.Cycle(parentID, childID)
	}
	if cur, ok := g.parent[childID]; ok && cur == parentID {
		return nil
	}

	g.detach(childID)
	g.attach(parentID, childID)
	g.relift(g.subtreeEdges(childID))
	g.bump()
	return nil
}

// RemoveChild detaches child from parent, making it top-level.
func (g *Graph) RemoveChild(parentID, childID string) error {
	if _, ok := g.containers[parentID]; !ok {
		return errors.NotFound("container", parentID)
	}
	if cur, ok := g.parent[childID]; !ok || cur != parentID {
		return errors.New(errors.ErrCodeNotFound, "%q is not a child of %q", childID, parentID)
	}
	g.detach(childID)
	g.relift(g.subtreeEdges(childID))
	g.bump()
	return nil
}

// Parent returns the id of the container holding id.
func (g *Graph) Parent(id string) (string, bool) {
	p, ok := g.parent[id]
	return p, ok
}

// Children returns the direct children of a container, sorted by id.
func (g *Graph) Children(id string) []string {
	return slices.Sorted(maps.Keys(g.children[id]))
}

// Ancestors returns the containers enclosing id, nearest first.
func (g *Graph) Ancestors(id string) []string {
	var out []string
	for p, ok := g.parent[id]; ok; p, ok = g.parent[p] {
		out = append(out, p)
	}
	return out
}

// Descendants returns every node and container transitively inside a
// container, sorted by id.
func (g *Graph) Descendants(id string) []string {
	var out []string
	g.walk(id, func(d string) { out = append(out, d) })
	slices.Sort(out)
	return out
}

// Roots returns elements without a parent container, sorted by id.
func (g *Graph) Roots() []string {
	var out []string
	for id := range g.nodes {
		if _, ok := g.parent[id]; !ok {
			out = append(out, id)
		}
	}
	for id := range g.containers {
		if _, ok := g.parent[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Depth returns the number of containers enclosing id.
func (g *Graph) Depth(id string) int {
	d := 0
	for p, ok := g.parent[id]; ok; p, ok = g.parent[p] {
		d++
	}
	return d
}

// walk visits all descendants of id in no particular order.
func (g *Graph) walk(id string, visit func(string)) {
	for child := range g.children[id] {
		visit(child)
		if _, ok := g.containers[child]; ok {
			g.walk(child, visit)
		}
	}
}

// leaves returns the leaf nodes in the subtree rooted at id (id itself when
// it is a node).
func (g *Graph) leaves(id string) []string {
	if _, ok := g.nodes[id]; ok {
		return []string{id}
	}
	var out []string
	g.walk(id, func(d string) {
		if _, ok := g.nodes[d]; ok {
			out = append(out, d)
		}
	})
	return out
}

// subtreeEdges returns the ids of all edges incident to a leaf in the subtree
// rooted at id, sorted and deduplicated.
func (g *Graph) subtreeEdges(id string) []string {
	set := make(map[string]struct{})
	for _, leaf := range g.leaves(id) {
		for eid := range g.incident[leaf] {
			set[eid] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

func (g *Graph) exists(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return true
	}
	_, ok := g.containers[id]
	return ok
}

func (g *Graph) attach(parentID, childID string) {
	set, ok := g.children[parentID]
	if !ok {
		set = make(map[string]struct{})
		g.children[parentID] = set
	}
	set[childID] = struct{}{}
	g.parent[childID] = parentID
}

func (g *Graph) detach(childID string) {
	p, ok := g.parent[childID]
	if !ok {
		return
	}
	delete(g.children[p], childID)
	delete(g.parent, childID)
}
