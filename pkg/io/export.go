package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/flowscope/pkg/hgraph"
)

// WriteJSON encodes g in the plain format together with its viewer state.
// The output can be read back with [ReadJSON].
func WriteJSON(g *hgraph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalJSON returns the compact form of [WriteJSON].
func MarshalJSON(g *hgraph.Graph) ([]byte, error) {
	return json.Marshal(snapshot(g))
}

// ExportJSON writes g to the file at path.
func ExportJSON(g *hgraph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func snapshot(g *hgraph.Graph) document {
	doc := document{
		Nodes:         make([]node, 0, g.NodeCount()),
		Edges:         make([]edge, 0, g.EdgeCount()),
		Geometry:      make(map[string]hgraph.Geometry),
		ExpandedSizes: make(map[string]hgraph.Size),
	}
	for _, n := range g.Nodes() {
		nd := node{ID: n.ID, Label: n.Label, Style: n.Style, Hidden: n.Hidden}
		if len(n.Meta) > 0 {
			nd.Meta = n.Meta
		}
		doc.Nodes = append(doc.Nodes, nd)
		if geo, ok := g.Geometry(n.ID); ok {
			doc.Geometry[n.ID] = geo
		}
	}
	for _, c := range g.Containers() {
		ct := container{
			ID:        c.ID,
			Label:     c.Label,
			Children:  g.Children(c.ID),
			Collapsed: c.Collapsed,
			Hidden:    c.Hidden,
			Width:     c.Width,
			Height:    c.Height,
		}
		if ct.Children == nil {
			ct.Children = []string{}
		}
		if len(c.Meta) > 0 {
			ct.Meta = c.Meta
		}
		doc.Containers = append(doc.Containers, ct)
		if geo, ok := g.Geometry(c.ID); ok {
			doc.Geometry[c.ID] = geo
		}
		if size, ok := g.ExpandedSize(c.ID); ok {
			doc.ExpandedSizes[c.ID] = size
		}
	}
	for _, e := range g.Edges() {
		ed := edge{ID: e.ID, Source: e.Source, Target: e.Target, Style: e.Style, Hidden: e.Hidden}
		if len(e.Meta) > 0 {
			ed.Meta = e.Meta
		}
		doc.Edges = append(doc.Edges, ed)
	}
	return doc
}
