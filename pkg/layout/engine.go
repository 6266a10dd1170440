package layout

import (
	"context"
	"fmt"
	"slices"
)

// Engine places the elements of a request.
//
// Implementations return absolute top-left coordinates. They may omit ids
// they could not place; [Apply] keeps the previous geometry for those.
type Engine interface {
	Name() string
	Layout(ctx context.Context, req Request) (Response, error)
}

// Engine names accepted by [NewEngine].
const (
	EngineGraphviz = "graphviz"
	EngineLayered  = "layered"
)

// EngineNames lists the supported engines.
func EngineNames() []string { return []string{EngineGraphviz, EngineLayered} }

// Direction of the main flow.
const (
	DirectionDown  = "TB"
	DirectionRight = "LR"
)

// NewEngine returns the engine registered under name with default settings.
func NewEngine(name, direction string) (Engine, error) {
	if direction == "" {
		direction = DirectionDown
	}
	if direction != DirectionDown && direction != DirectionRight {
		return nil, fmt.Errorf("unknown direction %q (want %s or %s)", direction, DirectionDown, DirectionRight)
	}
	switch name {
	case EngineGraphviz:
		e := NewGraphvizEngine()
		e.Direction = direction
		return e, nil
	case EngineLayered, "":
		e := NewLayeredEngine()
		e.Direction = direction
		return e, nil
	}
	return nil, fmt.Errorf("unknown layout engine %q (want one of %v)", name, EngineNames())
}

// hierarchy indexes the parent of every element in a request.
type hierarchy struct {
	parent     map[string]string
	containers map[string]ContainerSpec
	nodes      map[string]NodeSpec
}

func index(req Request) hierarchy {
	h := hierarchy{
		parent:     make(map[string]string),
		containers: make(map[string]ContainerSpec, len(req.Containers)),
		nodes:      make(map[string]NodeSpec, len(req.Nodes)),
	}
	for _, n := range req.Nodes {
		h.nodes[n.ID] = n
	}
	for _, c := range req.Containers {
		h.containers[c.ID] = c
		for _, child := range c.Children {
			h.parent[child] = c.ID
		}
	}
	return h
}

// chain returns id and its enclosing containers, outermost first.
func (h hierarchy) chain(id string) []string {
	out := []string{id}
	for p, ok := h.parent[id]; ok; p, ok = h.parent[p] {
		out = append(out, p)
	}
	slices.Reverse(out)
	return out
}

// lift projects an edge onto the innermost scope holding both endpoints. It
// returns the scope ("" for the top level) and the two children of that scope
// that contain the endpoints. ok is false when both ends fall into the same
// child.
func (h hierarchy) lift(src, tgt string) (scope, a, b string, ok bool) {
	cs, ct := h.chain(src), h.chain(tgt)
	i := 0
	for i < len(cs) && i < len(ct) && cs[i] == ct[i] {
		i++
	}
	if i == len(cs) || i == len(ct) {
		return "", "", "", false
	}
	if i > 0 {
		scope = cs[i-1]
	}
	return scope, cs[i], ct[i], true
}
