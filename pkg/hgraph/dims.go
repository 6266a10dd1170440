package hgraph

import "github.com/matzehuels/flowscope/pkg/errors"

// Size is a width and height in layout units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry is an absolute top-left position plus the final size of an element.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the size part of g.
func (g Geometry) Size() Size { return Size{Width: g.Width, Height: g.Height} }

// Constants controls how raw container sizes are adjusted and how large
// collapsed containers and leaf nodes are drawn.
type Constants struct {
	MinContainerWidth  float64 `toml:"min_container_width"`
	MinContainerHeight float64 `toml:"min_container_height"`
	LabelHeight        float64 `toml:"label_height"`
	LabelPadding       float64 `toml:"label_padding"`
	CollapsedWidth     float64 `toml:"collapsed_width"`
	CollapsedHeight    float64 `toml:"collapsed_height"`
	NodeWidth          float64 `toml:"node_width"`
	NodeHeight         float64 `toml:"node_height"`
}

// DefaultConstants returns the constants used when none are configured.
func DefaultConstants() Constants {
	return Constants{
		MinContainerWidth:  200,
		MinContainerHeight: 150,
		LabelHeight:        32,
		LabelPadding:       12,
		CollapsedWidth:     200,
		CollapsedHeight:    150,
		NodeWidth:          180,
		NodeHeight:         60,
	}
}

// Adjust enforces the minimum container size and reserves room for the
// container label. The result is never smaller than raw in either dimension.
func (c Constants) Adjust(raw Size) Size {
	return Size{
		Width:  max(raw.Width, c.MinContainerWidth),
		Height: max(raw.Height, c.MinContainerHeight) + c.LabelHeight + c.LabelPadding,
	}
}

// Collapsed returns the fixed footprint of a collapsed container.
func (c Constants) Collapsed() Size {
	return Size{Width: c.CollapsedWidth, Height: c.CollapsedHeight}
}

// Node returns the footprint of a leaf node.
func (c Constants) Node() Size {
	return Size{Width: c.NodeWidth, Height: c.NodeHeight}
}

// RawSize returns the requested size of a container, or the node footprint
// for a leaf.
func (g *Graph) RawSize(id string) (Size, error) {
	if _, ok := g.nodes[id]; ok {
		return g.constants.Node(), nil
	}
	c, ok := g.containers[id]
	if !ok {
		return Size{}, errors.NotFound("element", id)
	}
	return Size{Width: c.Width, Height: c.Height}, nil
}

// AdjustedSize returns the raw size after [Constants.Adjust] for containers.
// Leaf nodes are not adjusted.
func (g *Graph) AdjustedSize(id string) (Size, error) {
	raw, err := g.RawSize(id)
	if err != nil {
		return Size{}, err
	}
	if _, ok := g.containers[id]; !ok {
		return raw, nil
	}
	return g.constants.Adjust(raw), nil
}

// ExpandedSize returns the cached size of a container measured while it was
// expanded.
func (g *Graph) ExpandedSize(id string) (Size, bool) {
	s, ok := g.expanded[id]
	return s, ok
}

// SetExpandedSize records the measured size of an expanded container. The
// layout adapter writes it after every pass; expanding requires it.
func (g *Graph) SetExpandedSize(id string, s Size) error {
	if _, ok := g.containers[id]; !ok {
		return errors.NotFound("container", id)
	}
	g.expanded[id] = s
	return nil
}
