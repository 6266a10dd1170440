package render

import (
	"encoding/json"
	"strconv"

	"github.com/matzehuels/flowscope/pkg/coords"
	"github.com/matzehuels/flowscope/pkg/hgraph"
)

// ElementKind distinguishes leaves from containers.
type ElementKind string

const (
	KindNode      ElementKind = "node"
	KindContainer ElementKind = "container"
)

// Element is a visible node or container.
type Element struct {
	ID        string          `json:"id"`
	Kind      ElementKind     `json:"kind"`
	Label     string          `json:"label"`
	Style     string          `json:"style,omitempty"`
	ParentID  string          `json:"parentId,omitempty"`
	Position  coords.Point    `json:"position"`
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
	Collapsed bool            `json:"collapsed,omitempty"`
	Placed    bool            `json:"placed"`
	Meta      hgraph.Metadata `json:"meta,omitempty"`
}

// Link is a visible edge.
type Link struct {
	ID     string      `json:"id"`
	Type   hgraph.Kind `json:"type"`
	Source string      `json:"source"`
	Target string      `json:"target"`
	Style  string      `json:"style,omitempty"`
	Label  string      `json:"label,omitempty"`
	Count  int         `json:"count"`
}

// Output is everything a front-end needs to draw the current state.
type Output struct {
	Generation uint64    `json:"generation"`
	Elements   []Element `json:"nodes"`
	Links      []Link    `json:"edges"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
}

// Build converts the visible state of g. Elements without geometry are
// reported at their parent's origin with their requested size and Placed
// set to false.
func Build(g *hgraph.Graph) Output {
	out := Output{Generation: g.Generation()}
	consts := g.Constants()
	abs := make(map[string]coords.Point)

	visible := func(id string) bool {
		return g.IsNodeVisible(id) || g.IsContainerVisible(id)
	}

	// Breadth-first from the roots emits parents before children.
	var queue []string
	for _, id := range g.Roots() {
		if visible(id) {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		el := Element{ID: id}
		var parent *coords.Point
		if p, ok := g.Parent(id); ok {
			el.ParentID = p
			origin := abs[p]
			parent = &origin
		}

		geo, placed := g.Geometry(id)
		el.Placed = placed
		if n, ok := g.Node(id); ok {
			el.Kind = KindNode
			el.Label = n.DisplayLabel()
			el.Style = n.Style
			el.Meta = n.Meta
			if !placed {
				size := consts.Node()
				geo.Width, geo.Height = size.Width, size.Height
			}
		} else {
			c, _ := g.Container(id)
			el.Kind = KindContainer
			el.Label = c.DisplayLabel()
			el.Collapsed = c.Collapsed
			el.Meta = c.Meta
			if !placed {
				size := requestedSize(g, c)
				geo.Width, geo.Height = size.Width, size.Height
			}
			if !c.Collapsed {
				for _, child := range g.Children(id) {
					if visible(child) {
						queue = append(queue, child)
					}
				}
			}
		}

		pos := coords.Point{X: geo.X, Y: geo.Y}
		if !placed {
			pos = coords.ToLayoutSpace(coords.Point{}, parent)
		}
		abs[id] = pos
		el.Position = coords.ToRenderSpace(pos, parent)
		el.Width, el.Height = geo.Width, geo.Height
		if len(el.Meta) == 0 {
			el.Meta = nil
		}
		out.Elements = append(out.Elements, el)

		out.Width = max(out.Width, pos.X+geo.Width)
		out.Height = max(out.Height, pos.Y+geo.Height)
	}

	for _, e := range g.VisibleEdges() {
		l := Link{
			ID:     e.ID,
			Type:   e.Kind,
			Source: e.Source,
			Target: e.Target,
			Style:  e.Style,
			Count:  e.Count(),
		}
		if l.Type == hgraph.KindHyper && l.Count > 1 {
			l.Label = strconv.Itoa(l.Count)
		}
		out.Links = append(out.Links, l)
	}
	return out
}

func requestedSize(g *hgraph.Graph, c hgraph.Container) hgraph.Size {
	if c.Collapsed {
		return g.Constants().Collapsed()
	}
	if size, ok := g.ExpandedSize(c.ID); ok {
		return size
	}
	size, _ := g.AdjustedSize(c.ID)
	return size
}

// Absolute returns the absolute position of every element, undoing the
// parent-relative translation.
func (o Output) Absolute() map[string]coords.Point {
	abs := make(map[string]coords.Point, len(o.Elements))
	for _, el := range o.Elements {
		var parent *coords.Point
		if p, ok := abs[el.ParentID]; ok && el.ParentID != "" {
			parent = &p
		}
		abs[el.ID] = coords.ToLayoutSpace(el.Position, parent)
	}
	return abs
}

// MarshalOutput encodes o as indented JSON.
func MarshalOutput(o Output) ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}
