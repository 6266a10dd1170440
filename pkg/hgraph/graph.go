package hgraph

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/flowscope/pkg/errors"
)

// Metadata stores arbitrary key-value pairs attached to elements.
// It carries ingestion payload (node types, backtraces, locations) through to
// the render output. Metadata maps are never nil after insertion.
type Metadata map[string]any

// Kind tags the two edge variants returned by [Graph.VisibleEdges].
type Kind string

const (
	// KindPlain is an original edge between two leaf nodes.
	KindPlain Kind = "plain"
	// KindHyper is a synthetic edge aggregating original edges that cross a
	// collapsed container boundary.
	KindHyper Kind = "hyper"
)

// Node is a leaf graph element.
type Node struct {
	ID     string
	Label  string   // Display label (defaults to ID)
	Style  string   // Style tag, see [ParseStyle]
	Hidden bool     // Explicitly hidden by the user
	Meta   Metadata // Arbitrary key-value metadata
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is an original directed edge between two leaf nodes.
type Edge struct {
	ID     string
	Source string
	Target string
	Style  string // Comma-separated semantic tags
	Hidden bool
	Meta   Metadata
}

// Container groups nodes and other containers. Width and Height are the raw
// requested size; see [Graph.AdjustedSize] for the size used by layouts.
type Container struct {
	ID        string
	Label     string
	Collapsed bool
	Hidden    bool
	Width     float64
	Height    float64
	Meta      Metadata
}

// DisplayLabel returns the label if set, otherwise the ID.
func (c Container) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// Graph is the authoritative state of a hierarchical graph: nodes, edges,
// containers and the hyperedges derived from collapsed containers.
//
// Elements live in flat tables keyed by id; the container hierarchy is kept
// in separate parent/children indices. Every exported mutation leaves the
// graph in a state that satisfies [Graph.Validate].
//
// The zero value is not usable - use New. Graph is not safe for concurrent
// use; callers serialize access (see the session package).
type Graph struct {
	nodes      map[string]*Node
	edges      map[string]*Edge
	containers map[string]*Container

	parent   map[string]string              // child id -> container id
	children map[string]map[string]struct{} // container id -> child ids
	incident map[string]map[string]struct{} // node id -> edge ids

	hyper      map[string]*hyperEdge          // hyperedge id -> hyperedge
	pairs      map[pair]string                // current endpoints -> hyperedge id
	liftedTo   map[string]string              // edge id -> hyperedge id
	absorbed   map[string]map[string]struct{} // container id -> edge ids
	absorbedBy map[string]string              // edge id -> container id

	geometry map[string]Geometry // absolute layout output
	expanded map[string]Size     // dimension cache for expanded containers

	constants  Constants
	generation uint64
}

// Option configures a Graph.
type Option func(*Graph)

// WithConstants overrides the layout constants used for size adjustment.
func WithConstants(c Constants) Option {
	return func(g *Graph) { g.constants = c }
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{constants: DefaultConstants()}
	g.init()
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Graph) init() {
	g.nodes = make(map[string]*Node)
	g.edges = make(map[string]*Edge)
	g.containers = make(map[string]*Container)
	g.parent = make(map[string]string)
	g.children = make(map[string]map[string]struct{})
	g.incident = make(map[string]map[string]struct{})
	g.hyper = make(map[string]*hyperEdge)
	g.pairs = make(map[pair]string)
	g.liftedTo = make(map[string]string)
	g.absorbed = make(map[string]map[string]struct{})
	g.absorbedBy = make(map[string]string)
	g.geometry = make(map[string]Geometry)
	g.expanded = make(map[string]Size)
}

// Reset discards every element, hyperedge, geometry and cached dimension.
// The generation keeps increasing so pending layouts computed before the
// reset are recognized as stale.
func (g *Graph) Reset() {
	g.init()
	g.bump()
}

// Generation returns a counter that increases on every mutation that can
// change what a layout engine would be asked to place. Writing geometry or
// dimension cache entries does not advance it.
func (g *Graph) Generation() uint64 { return g.generation }

func (g *Graph) bump() { g.generation++ }

// Constants returns the layout constants used by this graph.
func (g *Graph) Constants() Constants { return g.constants }

// =============================================================================
// Nodes
// =============================================================================

// SetNode inserts or replaces a node. Replacing keeps the node's position in
// the hierarchy and its edges. Changing the Hidden flag re-lifts the node's
// edges so that hidden leaves never contribute to hyperedges.
func (g *Graph) SetNode(n Node) error {
	if err := errors.ValidateElementID(n.ID); err != nil {
		return err
	}
	if _, isContainer := g.containers[n.ID]; isContainer {
		return errors.New(errors.ErrCodeInvalidID, "id %q is already used by a container", n.ID)
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	prev, exists := g.nodes[n.ID]
	node := n
	g.nodes[n.ID] = &node
	g.bump()
	if exists && prev.Hidden != n.Hidden {
		g.relift(g.incidentEdges(n.ID))
	}
	return nil
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// RemoveNode deletes a node together with its incident edges and detaches
// it from its parent container.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return errors.NotFound("node", id)
	}
	for _, eid := range g.incidentEdges(id) {
		g.removeEdge(eid)
	}
	g.detach(id)
	delete(g.nodes, id)
	delete(g.incident, id)
	delete(g.geometry, id)
	g.bump()
	return nil
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		out = append(out, *g.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// =============================================================================
// Edges
// =============================================================================

// SetEdge inserts or replaces an edge. Both endpoints must be existing nodes.
// If an endpoint lies inside a collapsed container the edge is lifted into the
// matching hyperedge immediately. Ids starting with [HyperPrefix] are reserved
// for hyperedges.
func (g *Graph) SetEdge(e Edge) error {
	if err := errors.ValidateElementID(e.ID); err != nil {
		return err
	}
	if strings.HasPrefix(e.ID, HyperPrefix) {
		return errors.New(errors.ErrCodeInvalidID, "edge id %q uses the reserved prefix %q", e.ID, HyperPrefix)
	}
	if _, ok := g.nodes[e.Source]; !ok {
		return errors.NotFound("node", e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return errors.NotFound("node", e.Target)
	}
	if _, exists := g.edges[e.ID]; exists {
		g.removeEdge(e.ID)
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	edge := e
	g.edges[e.ID] = &edge
	g.index(e.Source, e.ID)
	g.index(e.Target, e.ID)
	g.relift([]string{e.ID})
	g.bump()
	return nil
}

// Edge returns a copy of the original edge with the given id.
func (g *Graph) Edge(id string) (Edge, bool) {
	e, ok := g.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// RemoveEdge deletes an original edge. A hyperedge left without aggregated
// edges is deleted with it.
func (g *Graph) RemoveEdge(id string) error {
	if _, ok := g.edges[id]; !ok {
		return errors.NotFound("edge", id)
	}
	g.removeEdge(id)
	g.bump()
	return nil
}

func (g *Graph) removeEdge(id string) {
	e := g.edges[id]
	g.unlift(id)
	delete(g.incident[e.Source], id)
	delete(g.incident[e.Target], id)
	delete(g.edges, id)
}

// Edges returns all original edges sorted by id.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, id := range slices.Sorted(maps.Keys(g.edges)) {
		out = append(out, *g.edges[id])
	}
	return out
}

// EdgeCount returns the number of original edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) index(nodeID, edgeID string) {
	set, ok := g.incident[nodeID]
	if !ok {
		set = make(map[string]struct{})
		g.incident[nodeID] = set
	}
	set[edgeID] = struct{}{}
}

// incidentEdges returns the ids of edges touching a node, sorted.
func (g *Graph) incidentEdges(nodeID string) []string {
	return slices.Sorted(maps.Keys(g.incident[nodeID]))
}

// =============================================================================
// Containers
// =============================================================================

// SetContainer inserts or replaces a container. Children are managed with
// [Graph.AddChild] and survive replacement.
//
// SetContainer is the raw ingestion path: a changed Collapsed flag is applied
// without the dimension check performed by [Graph.ExpandContainer], but the
// hyperedges are rebuilt so the graph stays consistent.
func (g *Graph) SetContainer(c Container) error {
	if err := errors.ValidateElementID(c.ID); err != nil {
		return err
	}
	if _, isNode := g.nodes[c.ID]; isNode {
		return errors.New(errors.ErrCodeInvalidID, "id %q is already used by a node", c.ID)
	}
	if c.Meta == nil {
		c.Meta = Metadata{}
	}
	prev, exists := g.containers[c.ID]
	container := c
	g.containers[c.ID] = &container
	g.bump()
	if exists && prev.Collapsed != c.Collapsed {
		g.relift(g.subtreeEdges(c.ID))
	}
	return nil
}

// Container returns a copy of the container with the given id.
func (g *Graph) Container(id string) (Container, bool) {
	c, ok := g.containers[id]
	if !ok {
		return Container{}, false
	}
	return *c, true
}

// RemoveContainer deletes a container. Its children move up to the removed
// container's parent (or become top-level) and its hyperedges are grounded.
func (g *Graph) RemoveContainer(id string) error {
	if _, ok := g.containers[id]; !ok {
		return errors.NotFound("container", id)
	}
	affected := g.subtreeEdges(id)
	grand, hasParent := g.parent[id]
	for _, child := range g.Children(id) {
		g.detach(child)
		if hasParent {
			g.attach(grand, child)
		}
	}
	g.detach(id)
	delete(g.containers, id)
	delete(g.children, id)
	delete(g.geometry, id)
	delete(g.expanded, id)
	g.relift(affected)
	g.bump()
	return nil
}

// Containers returns all containers sorted by id.
func (g *Graph) Containers() []Container {
	out := make([]Container, 0, len(g.containers))
	for _, id := range slices.Sorted(maps.Keys(g.containers)) {
		out = append(out, *g.containers[id])
	}
	return out
}

// ContainerCount returns the number of containers.
func (g *Graph) ContainerCount() int { return len(g.containers) }

// IsContainer reports whether id names a container.
func (g *Graph) IsContainer(id string) bool {
	_, ok := g.containers[id]
	return ok
}

// =============================================================================
// Geometry
// =============================================================================

// Geometry returns the absolute geometry last written by a layout pass.
func (g *Graph) Geometry(id string) (Geometry, bool) {
	geo, ok := g.geometry[id]
	return geo, ok
}

// SetGeometry records the absolute position and final size of a node or
// container. The layout adapter is the only caller.
func (g *Graph) SetGeometry(id string, geo Geometry) error {
	if _, ok := g.nodes[id]; !ok {
		if _, ok := g.containers[id]; !ok {
			return errors.NotFound("element", id)
		}
	}
	g.geometry[id] = geo
	return nil
}
