package layout

import (
	"context"
	"fmt"

	"github.com/matzehuels/flowscope/pkg/hgraph"
)

// LayeredEngine is a deterministic pure-Go engine. Within every container it
// assigns children to layers by breadth-first search from the elements
// without incoming edges, then packs layers along the flow direction.
// Members of a layer are reordered by barycenter sweeps to reduce
// crossings. Containers grow to fit their content.
type LayeredEngine struct {
	Direction    string
	Sweeps       int     // Barycenter sweeps per container; 0 keeps BFS order
	NodeSpacing  float64 // Gap between elements of one layer
	LayerSpacing float64 // Gap between layers
	Padding      float64 // Inner container padding
	LabelHeight  float64 // Space reserved for container labels
}

// NewLayeredEngine returns an engine with default spacing.
func NewLayeredEngine() *LayeredEngine {
	c := hgraph.DefaultConstants()
	return &LayeredEngine{
		Direction:    DirectionDown,
		Sweeps:       4,
		NodeSpacing:  40,
		LayerSpacing: 60,
		Padding:      c.LabelPadding + 8,
		LabelHeight:  c.LabelHeight,
	}
}

// Name implements Engine.
func (e *LayeredEngine) Name() string { return EngineLayered }

type box struct {
	x, y, w, h float64
}

// Layout implements Engine.
func (e *LayeredEngine) Layout(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	h := index(req)

	scoped := make(map[string][][2]string)
	for _, edge := range req.Edges {
		if len(edge.Sources) == 0 || len(edge.Targets) == 0 {
			return Response{}, fmt.Errorf("edge %q has no endpoints", edge.ID)
		}
		if scope, a, b, ok := h.lift(edge.Source(), edge.Target()); ok {
			scoped[scope] = append(scoped[scope], [2]string{a, b})
		}
	}

	rel := make(map[string]box)
	var place func(scope string, children []string) (float64, float64)
	place = func(scope string, children []string) (float64, float64) {
		for _, id := range children {
			w, ht := e.size(h, id)
			if c, ok := h.containers[id]; ok && len(c.Children) > 0 {
				cw, ch := place(id, c.Children)
				w = max(w, cw+2*e.Padding)
				ht = max(ht, ch+2*e.Padding+e.LabelHeight)
			}
			rel[id] = box{w: w, h: ht}
		}
		return e.pack(children, scoped[scope], rel)
	}
	place("", req.Roots)

	var resp Response
	var emit func(children []string, ox, oy float64)
	emit = func(children []string, ox, oy float64) {
		for _, id := range children {
			b := rel[id]
			p := Placement{ID: id, X: ox + b.x, Y: oy + b.y, Width: b.w, Height: b.h}
			if c, ok := h.containers[id]; ok {
				resp.Containers = append(resp.Containers, p)
				emit(c.Children, p.X+e.Padding, p.Y+e.Padding+e.LabelHeight)
			} else {
				resp.Nodes = append(resp.Nodes, p)
			}
		}
	}
	emit(req.Roots, 0, 0)
	return resp, nil
}

func (e *LayeredEngine) size(h hierarchy, id string) (float64, float64) {
	if n, ok := h.nodes[id]; ok {
		return n.Width, n.Height
	}
	c := h.containers[id]
	return c.Width, c.Height
}

// pack assigns layers to children and writes their offsets into rel. It
// returns the extent of the packed content.
func (e *LayeredEngine) pack(children []string, edges [][2]string, rel map[string]box) (float64, float64) {
	if len(children) == 0 {
		return 0, 0
	}
	layers := layerize(children, edges)
	if e.Sweeps > 0 {
		layers = orderLayers(layers, edges, e.Sweeps)
	}

	// Along the flow axis each layer is as thick as its largest member;
	// across it members sit side by side.
	along := func(b box) float64 { return b.h }
	across := func(b box) float64 { return b.w }
	if e.Direction == DirectionRight {
		along, across = across, along
	}

	widths := make([]float64, len(layers))
	var maxWidth float64
	for i, layer := range layers {
		for j, id := range layer {
			if j > 0 {
				widths[i] += e.NodeSpacing
			}
			widths[i] += across(rel[id])
		}
		maxWidth = max(maxWidth, widths[i])
	}

	var depth float64
	for i, layer := range layers {
		var thick float64
		for _, id := range layer {
			thick = max(thick, along(rel[id]))
		}
		if i > 0 {
			depth += e.LayerSpacing
		}
		offset := (maxWidth - widths[i]) / 2
		for _, id := range layer {
			b := rel[id]
			if e.Direction == DirectionRight {
				b.x, b.y = depth, offset
			} else {
				b.x, b.y = offset, depth
			}
			rel[id] = b
			offset += across(b) + e.NodeSpacing
		}
		depth += thick
	}

	if e.Direction == DirectionRight {
		return depth, maxWidth
	}
	return maxWidth, depth
}

// layerize groups ids into layers by breadth-first search from ids without
// incoming edges. Ids unreachable from any source (cycles) go to the last
// layer.
func layerize(ids []string, edges [][2]string) [][]string {
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	out := make(map[string][]string)
	indeg := make(map[string]int)
	seen := make(map[[2]string]bool)
	for _, e := range edges {
		if !member[e[0]] || !member[e[1]] || e[0] == e[1] || seen[e] {
			continue
		}
		seen[e] = true
		out[e[0]] = append(out[e[0]], e[1])
		indeg[e[1]]++
	}

	var current []string
	for _, id := range ids {
		if indeg[id] == 0 {
			current = append(current, id)
		}
	}
	if len(current) == 0 {
		current = []string{ids[0]}
	}

	visited := make(map[string]bool, len(ids))
	for _, id := range current {
		visited[id] = true
	}
	var layers [][]string
	for len(current) > 0 {
		layers = append(layers, current)
		var next []string
		for _, id := range current {
			for _, t := range out[id] {
				if !visited[t] {
					visited[t] = true
					next = append(next, t)
				}
			}
		}
		current = next
	}

	for _, id := range ids {
		if !visited[id] {
			layers[len(layers)-1] = append(layers[len(layers)-1], id)
		}
	}
	return layers
}
