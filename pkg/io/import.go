package io

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
)

// Option configures reading.
type Option func(*readOptions)

type readOptions struct {
	hierarchy string
	graphOpts []hgraph.Option
}

// WithHierarchy selects a hierarchy choice of the producer format.
func WithHierarchy(id string) Option {
	return func(o *readOptions) { o.hierarchy = id }
}

// WithConstants sets the layout constants of the returned graph.
func WithConstants(c hgraph.Constants) Option {
	return func(o *readOptions) { o.graphOpts = append(o.graphOpts, hgraph.WithConstants(c)) }
}

// ReadJSON decodes a graph document from r.
//
// ReadJSON returns an INVALID_FORMAT error for malformed JSON, NOT_FOUND for
// edges or assignments that reference unknown ids, and CYCLE for container
// trees that nest into themselves. ReadJSON does not close r.
func ReadJSON(r io.Reader, opts ...Option) (*hgraph.Graph, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph document")
	}

	g := hgraph.New(o.graphOpts...)
	for _, n := range doc.Nodes {
		if err := g.SetNode(toNode(n)); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}

	containers := doc.Containers
	if len(doc.HierarchyChoices) > 0 {
		cs, err := fromChoice(doc, o.hierarchy)
		if err != nil {
			return nil, err
		}
		containers = append(containers, cs...)
	}
	if err := addContainers(g, containers); err != nil {
		return nil, err
	}

	// Edges with explicit ids go first so generated ids cannot shadow them.
	var unnamed []edge
	for _, e := range doc.Edges {
		if e.ID == "" {
			unnamed = append(unnamed, e)
			continue
		}
		if err := g.SetEdge(toEdge(e)); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	for _, e := range unnamed {
		e.ID = e.Source + "->" + e.Target
		for k := 2; ; k++ {
			if _, taken := g.Edge(e.ID); !taken {
				break
			}
			e.ID = e.Source + "->" + e.Target + "#" + strconv.Itoa(k)
		}
		if err := g.SetEdge(toEdge(e)); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	for id, size := range doc.ExpandedSizes {
		if err := g.SetExpandedSize(id, size); err != nil {
			return nil, fmt.Errorf("expanded size %s: %w", id, err)
		}
	}
	for id, geo := range doc.Geometry {
		if err := g.SetGeometry(id, geo); err != nil {
			return nil, fmt.Errorf("geometry %s: %w", id, err)
		}
	}
	return g, nil
}

// ImportJSON reads the graph document at path.
func ImportJSON(path string, opts ...Option) (*hgraph.Graph, error) {
	if err := errors.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, opts...)
}

// Hierarchies lists the hierarchy choice ids of a producer-format document,
// with the selected one first.
func Hierarchies(r io.Reader) ([]string, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph document")
	}
	var ids []string
	for _, c := range doc.HierarchyChoices {
		ids = append(ids, c.ID)
	}
	if i := slices.Index(ids, doc.SelectedHierarchy); i > 0 {
		ids = slices.Insert(slices.Delete(ids, i, i+1), 0, doc.SelectedHierarchy)
	}
	return ids, nil
}

func toNode(n node) hgraph.Node {
	out := hgraph.Node{ID: n.ID, Style: n.Style, Hidden: n.Hidden, Meta: n.Meta}
	out.Label = cmp.Or(n.Label, n.ShortLabel, n.FullLabel)
	if out.Meta == nil {
		out.Meta = hgraph.Metadata{}
	}
	if n.NodeType != "" {
		out.Meta[MetaNodeType] = n.NodeType
		if out.Style == "" {
			out.Style = n.NodeType
		}
	}
	if n.FullLabel != "" && n.FullLabel != out.Label {
		out.Meta[MetaFullLabel] = n.FullLabel
	}
	if n.Data != nil {
		if n.Data.LocationKey != nil {
			out.Meta[MetaLocationKey] = n.Data.LocationKey
		}
		if n.Data.LocationType != nil {
			out.Meta[MetaLocationType] = n.Data.LocationType
		}
	}
	return out
}

func toEdge(e edge) hgraph.Edge {
	out := hgraph.Edge{ID: e.ID, Source: e.Source, Target: e.Target, Style: e.Style, Hidden: e.Hidden, Meta: e.Meta}
	if len(e.SemanticTags) > 0 {
		tags := hgraph.ParseStyle(strings.Join(append(slices.Clone(e.SemanticTags), e.Style), ","))
		out.Style = strings.Join(tags, ",")
	}
	if e.Label != "" {
		if out.Meta == nil {
			out.Meta = hgraph.Metadata{}
		}
		out.Meta[MetaEdgeLabel] = e.Label
	}
	return out
}

// addContainers creates every container before nesting them, so children
// may be listed in any order.
func addContainers(g *hgraph.Graph, cs []container) error {
	for _, c := range cs {
		err := g.SetContainer(hgraph.Container{
			ID:        c.ID,
			Label:     c.Label,
			Collapsed: c.Collapsed,
			Hidden:    c.Hidden,
			Width:     c.Width,
			Height:    c.Height,
			Meta:      c.Meta,
		})
		if err != nil {
			return fmt.Errorf("container %s: %w", c.ID, err)
		}
	}
	owner := make(map[string]string)
	for _, c := range cs {
		for _, child := range c.Children {
			if prev, ok := owner[child]; ok && prev != c.ID {
				return errors.New(errors.ErrCodeInvalidInput, "element %q is listed in containers %q and %q", child, prev, c.ID)
			}
			owner[child] = c.ID
			if err := g.AddChild(c.ID, child); err != nil {
				return fmt.Errorf("container %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

// fromChoice flattens the selected hierarchy choice into containers.
func fromChoice(doc document, id string) ([]container, error) {
	if id == "" {
		id = cmp.Or(doc.SelectedHierarchy, doc.HierarchyChoices[0].ID)
	}
	i := slices.IndexFunc(doc.HierarchyChoices, func(c choice) bool { return c.ID == id })
	if i < 0 {
		return nil, errors.NotFound("hierarchy", id)
	}

	var out []container
	index := make(map[string]int)
	var walk func(c choice)
	walk = func(c choice) {
		index[c.ID] = len(out)
		out = append(out, container{ID: c.ID, Label: c.Name, Children: []string{}})
		for _, child := range c.Children {
			out[index[c.ID]].Children = append(out[index[c.ID]].Children, child.ID)
			walk(child)
		}
	}
	for _, c := range doc.HierarchyChoices[i].Children {
		walk(c)
	}

	assignments := doc.NodeAssignments[id]
	nodes := make([]string, 0, len(assignments))
	for n := range assignments {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		target := assignments[n]
		j, ok := index[target]
		if !ok {
			return nil, fmt.Errorf("assignment of %s: %w", n, errors.NotFound("container", target))
		}
		out[j].Children = append(out[j].Children, n)
	}
	return out, nil
}
