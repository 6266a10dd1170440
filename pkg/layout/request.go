package layout

import (
	"encoding/json"
	"slices"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/hgraph"
)

// NodeSpec is a leaf (or a childless element) to be placed.
type NodeSpec struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EdgeSpec connects two placed elements. Sources and Targets always hold one
// id each; the list form follows the ELK JSON graph format.
type EdgeSpec struct {
	ID      string      `json:"id"`
	Sources []string    `json:"sources"`
	Targets []string    `json:"targets"`
	Kind    hgraph.Kind `json:"type"`
}

// Source returns the first source id.
func (e EdgeSpec) Source() string { return e.Sources[0] }

// Target returns the first target id.
func (e EdgeSpec) Target() string { return e.Targets[0] }

// ContainerSpec is a container with its requested size. Collapsed containers
// have no children.
type ContainerSpec struct {
	ID        string   `json:"id"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	Collapsed bool     `json:"collapsed,omitempty"`
	Children  []string `json:"children"`
}

// Request is the visible state handed to an engine.
type Request struct {
	Nodes      []NodeSpec      `json:"nodes"`
	Edges      []EdgeSpec      `json:"edges"`
	Containers []ContainerSpec `json:"containers"`
	Roots      []string        `json:"roots"`
}

// Hash returns a stable fingerprint of the request.
func (r Request) Hash() string {
	data, _ := json.Marshal(r)
	return cache.Hash(data)
}

// Len returns the number of placed elements.
func (r Request) Len() int { return len(r.Nodes) + len(r.Containers) }

// Placement is the absolute top-left position and final size of one element.
// A zero width or height means "keep the requested size".
type Placement struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Response is an engine's answer. Ids absent from it keep their previous
// geometry.
type Response struct {
	Nodes      []Placement `json:"nodes"`
	Containers []Placement `json:"containers"`
}

// BuildRequest extracts the currently visible elements of g. Collapsed
// containers get the fixed collapsed footprint; expanded containers get
// their cached expanded size, or their adjusted size if none is cached.
func BuildRequest(g *hgraph.Graph) Request {
	var req Request
	consts := g.Constants()

	for _, n := range g.VisibleNodes() {
		size := consts.Node()
		req.Nodes = append(req.Nodes, NodeSpec{ID: n.ID, Width: size.Width, Height: size.Height})
	}

	for _, c := range g.VisibleContainers() {
		spec := ContainerSpec{ID: c.ID, Collapsed: c.Collapsed, Children: []string{}}
		var size hgraph.Size
		switch {
		case c.Collapsed:
			size = consts.Collapsed()
		default:
			if cached, ok := g.ExpandedSize(c.ID); ok {
				size = cached
			} else {
				size, _ = g.AdjustedSize(c.ID)
			}
			for _, child := range g.Children(c.ID) {
				if g.IsNodeVisible(child) || g.IsContainerVisible(child) {
					spec.Children = append(spec.Children, child)
				}
			}
		}
		spec.Width, spec.Height = size.Width, size.Height
		req.Containers = append(req.Containers, spec)
	}

	for _, e := range g.VisibleEdges() {
		req.Edges = append(req.Edges, EdgeSpec{
			ID:      e.ID,
			Sources: []string{e.Source},
			Targets: []string{e.Target},
			Kind:    e.Kind,
		})
	}

	for _, id := range g.Roots() {
		if g.IsNodeVisible(id) || g.IsContainerVisible(id) {
			req.Roots = append(req.Roots, id)
		}
	}
	return req
}

// BuildFullRequest describes g as if every container were expanded. It is
// used to measure expanded container sizes before the first expand. Hidden
// elements stay out; all edges are plain.
func BuildFullRequest(g *hgraph.Graph) Request {
	var req Request
	consts := g.Constants()

	shown := func(id string) bool {
		if n, ok := g.Node(id); ok && n.Hidden {
			return false
		}
		if c, ok := g.Container(id); ok && c.Hidden {
			return false
		}
		for _, a := range g.Ancestors(id) {
			if c, _ := g.Container(a); c.Hidden {
				return false
			}
		}
		return true
	}

	for _, n := range g.Nodes() {
		if shown(n.ID) {
			size := consts.Node()
			req.Nodes = append(req.Nodes, NodeSpec{ID: n.ID, Width: size.Width, Height: size.Height})
		}
	}
	for _, c := range g.Containers() {
		if !shown(c.ID) {
			continue
		}
		size, _ := g.AdjustedSize(c.ID)
		spec := ContainerSpec{ID: c.ID, Width: size.Width, Height: size.Height, Children: []string{}}
		for _, child := range g.Children(c.ID) {
			if shown(child) {
				spec.Children = append(spec.Children, child)
			}
		}
		req.Containers = append(req.Containers, spec)
	}
	for _, e := range g.Edges() {
		if !e.Hidden && shown(e.Source) && shown(e.Target) {
			req.Edges = append(req.Edges, EdgeSpec{
				ID:      e.ID,
				Sources: []string{e.Source},
				Targets: []string{e.Target},
				Kind:    hgraph.KindPlain,
			})
		}
	}
	for _, id := range g.Roots() {
		if shown(id) {
			req.Roots = append(req.Roots, id)
		}
	}
	return req
}

// ApplyStats summarizes what [Apply] wrote.
type ApplyStats struct {
	Applied int // Elements whose geometry was written
	Missing int // Requested elements absent from the response
	Unknown int // Response ids that are not in the graph
}

// Apply writes the response into g. Ids missing from the response keep their
// previous geometry; unknown ids are ignored. Every expanded container that
// was placed gets its final size cached as expanded dimensions.
func Apply(g *hgraph.Graph, req Request, resp Response) ApplyStats {
	requested := make(map[string]hgraph.Size, req.Len())
	expanded := make(map[string]bool)
	for _, n := range req.Nodes {
		requested[n.ID] = hgraph.Size{Width: n.Width, Height: n.Height}
	}
	for _, c := range req.Containers {
		requested[c.ID] = hgraph.Size{Width: c.Width, Height: c.Height}
		expanded[c.ID] = !c.Collapsed
	}

	var stats ApplyStats
	placed := make(map[string]bool, req.Len())
	for _, p := range slices.Concat(resp.Nodes, resp.Containers) {
		size, ok := requested[p.ID]
		if !ok {
			stats.Unknown++
			continue
		}
		if p.Width > 0 {
			size.Width = p.Width
		}
		if p.Height > 0 {
			size.Height = p.Height
		}
		geo := hgraph.Geometry{X: p.X, Y: p.Y, Width: size.Width, Height: size.Height}
		if err := g.SetGeometry(p.ID, geo); err != nil {
			stats.Unknown++
			continue
		}
		if expanded[p.ID] {
			_ = g.SetExpandedSize(p.ID, size)
		}
		placed[p.ID] = true
		stats.Applied++
	}
	stats.Missing = len(requested) - len(placed)
	return stats
}

// ApplyMeasurements caches the container sizes of a response to a
// [BuildFullRequest] request without touching geometry.
func ApplyMeasurements(g *hgraph.Graph, req Request, resp Response) int {
	requested := make(map[string]hgraph.Size, len(req.Containers))
	for _, c := range req.Containers {
		requested[c.ID] = hgraph.Size{Width: c.Width, Height: c.Height}
	}
	n := 0
	for _, p := range resp.Containers {
		size, ok := requested[p.ID]
		if !ok {
			continue
		}
		if p.Width > 0 {
			size.Width = p.Width
		}
		if p.Height > 0 {
			size.Height = p.Height
		}
		if g.SetExpandedSize(p.ID, size) == nil {
			n++
		}
	}
	return n
}
