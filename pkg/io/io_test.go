package io

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
)

const plainDoc = `{
  "nodes": [{"id": "1", "label": "map"}, {"id": "2"}, {"id": "3"}],
  "edges": [
    {"id": "e1", "source": "1", "target": "3", "style": "Network"},
    {"source": "2", "target": "3"}
  ],
  "containers": [
    {"id": "outer", "children": ["A"]},
    {"id": "A", "label": "Stage A", "children": ["1", "2"], "collapsed": true}
  ]
}`

const producerDoc = `{
  "nodes": [
    {"id": "1", "nodeType": "Source", "shortLabel": "src", "fullLabel": "source_iter(0..10)", "label": "src", "data": {"locationKey": 0, "locationType": "Process"}},
    {"id": "2", "nodeType": "Transform", "shortLabel": "map", "fullLabel": "map(|x| x + 1)", "label": "map"},
    {"id": "3", "nodeType": "Sink", "shortLabel": "out", "label": "out"}
  ],
  "edges": [
    {"id": "e1", "source": "1", "target": "2", "semanticTags": ["Local", "Bounded"]},
    {"id": "e2", "source": "2", "target": "3", "semanticTags": ["Unbounded", "Network"], "label": "send"}
  ],
  "hierarchyChoices": [
    {"id": "location", "name": "Location", "children": [
      {"id": "loc_0", "name": "Process 0", "children": []},
      {"id": "loc_1", "name": "Cluster 1", "children": []}
    ]},
    {"id": "backtrace", "name": "Backtrace", "children": [
      {"id": "bt_1", "name": "main", "children": [{"id": "bt_2", "name": "pipeline", "children": []}]}
    ]}
  ],
  "nodeAssignments": {
    "location": {"1": "loc_0", "2": "loc_0", "3": "loc_1"},
    "backtrace": {"1": "bt_2", "2": "bt_2", "3": "bt_1"}
  },
  "selectedHierarchy": "location",
  "edgeStyleConfig": {"ignored": true}
}`

func TestReadJSON_Plain(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(plainDoc))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 2 || g.ContainerCount() != 2 {
		t.Fatalf("counts = %d/%d/%d", g.NodeCount(), g.EdgeCount(), g.ContainerCount())
	}
	if p, _ := g.Parent("A"); p != "outer" {
		t.Errorf("Parent(A) = %q, want outer", p)
	}
	if n, _ := g.Node("1"); n.DisplayLabel() != "map" {
		t.Errorf("label = %q", n.DisplayLabel())
	}
	if _, ok := g.Edge("2->3"); !ok {
		t.Error("edge without id should get one from its endpoints")
	}
	if _, ok := g.Edge("e1"); !ok || g.IsEdgeVisible("e1") {
		t.Error("e1 should be lifted into a hyperedge")
	}
	h, ok := g.HyperEdge(hgraph.HyperEdgeID("A", "3"))
	if !ok || len(h.Aggregated) != 2 {
		t.Fatalf("hyperedge A->3 = %+v, %v", h, ok)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestReadJSON_Producer(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(producerDoc))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got := g.Children("loc_0"); !slices.Equal(got, []string{"1", "2"}) {
		t.Errorf("Children(loc_0) = %v", got)
	}
	c, _ := g.Container("loc_1")
	if c.DisplayLabel() != "Cluster 1" {
		t.Errorf("container label = %q", c.DisplayLabel())
	}

	n, _ := g.Node("1")
	if n.Label != "src" || n.Meta[MetaNodeType] != "Source" || n.Meta[MetaFullLabel] != "source_iter(0..10)" {
		t.Errorf("node 1 = %+v", n)
	}
	if n.Meta[MetaLocationType] != "Process" {
		t.Errorf("location type = %v", n.Meta[MetaLocationType])
	}
	if n.Style != "Source" {
		t.Errorf("node style = %q, want node type", n.Style)
	}

	e1, _ := g.Edge("e1")
	if e1.Style != "Bounded,Local" {
		t.Errorf("e1 style = %q", e1.Style)
	}
	e2, _ := g.Edge("e2")
	if e2.Style != "Network,Unbounded" || e2.Meta[MetaEdgeLabel] != "send" {
		t.Errorf("e2 = %+v", e2)
	}
}

func TestReadJSON_SelectHierarchy(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(producerDoc), WithHierarchy("backtrace"))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if g.IsContainer("loc_0") {
		t.Error("location containers should not be created")
	}
	if got := g.Ancestors("1"); !slices.Equal(got, []string{"bt_2", "bt_1"}) {
		t.Errorf("Ancestors(1) = %v", got)
	}
	if p, _ := g.Parent("3"); p != "bt_1" {
		t.Errorf("Parent(3) = %q", p)
	}

	_, err = ReadJSON(strings.NewReader(producerDoc), WithHierarchy("missing"))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown hierarchy: %v", err)
	}
}

func TestReadJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errors.Code
	}{
		{"malformed", `{"nodes": [`, errors.ErrCodeInvalidFormat},
		{"unknown endpoint", `{"nodes": [{"id": "a"}], "edges": [{"id": "e", "source": "a", "target": "b"}]}`, errors.ErrCodeNotFound},
		{"unknown child", `{"nodes": [], "edges": [], "containers": [{"id": "A", "children": ["x"]}]}`, errors.ErrCodeNotFound},
		{"cycle", `{"nodes": [], "edges": [], "containers": [{"id": "A", "children": ["B"]}, {"id": "B", "children": ["A"]}]}`, errors.ErrCodeCycle},
		{"bad assignment", `{"nodes": [{"id": "a"}], "edges": [], "hierarchyChoices": [{"id": "h", "name": "H", "children": []}], "nodeAssignments": {"h": {"a": "nope"}}}`, errors.ErrCodeNotFound},
		{"empty id", `{"nodes": [{"id": ""}], "edges": []}`, errors.ErrCodeInvalidID},
		{"two parents", `{"nodes": [{"id": "1"}, {"id": "2"}], "edges": [], "containers": [{"id": "A", "children": ["1"]}, {"id": "B", "children": ["1", "2"]}]}`, errors.ErrCodeInvalidInput},
		{"reserved edge id", `{"nodes": [{"id": "a"}], "edges": [{"id": "hyper_a_to_a", "source": "a", "target": "a"}]}`, errors.ErrCodeInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.doc))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(plainDoc))
	if err != nil {
		t.Fatal(err)
	}
	_ = g.SetExpandedSize("A", hgraph.Size{Width: 420, Height: 260})
	_ = g.SetGeometry("A", hgraph.Geometry{X: 5, Y: 6, Width: 200, Height: 150})
	_ = g.SetNode(hgraph.Node{ID: "2", Hidden: true})

	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if !sameHyper(back, g) {
		t.Errorf("hyperedges differ: %+v vs %+v", back.HyperEdges(), g.HyperEdges())
	}
	if c, _ := back.Container("A"); !c.Collapsed || c.Label != "Stage A" {
		t.Errorf("container A = %+v", c)
	}
	if size, ok := back.ExpandedSize("A"); !ok || size.Width != 420 {
		t.Errorf("ExpandedSize(A) = %v, %v", size, ok)
	}
	if geo, ok := back.Geometry("A"); !ok || geo.X != 5 {
		t.Errorf("Geometry(A) = %v, %v", geo, ok)
	}
	if n, _ := back.Node("2"); !n.Hidden {
		t.Error("hidden flag lost")
	}
	if err := back.ExpandContainer("A"); err != nil {
		t.Errorf("restored graph should expand: %v", err)
	}

	compact, err := MarshalJSON(g)
	if err != nil || bytes.Contains(compact, []byte("\n  ")) {
		t.Errorf("MarshalJSON should be compact: %v", err)
	}
}

func sameHyper(a, b *hgraph.Graph) bool {
	ha, hb := a.HyperEdges(), b.HyperEdges()
	if len(ha) != len(hb) {
		return false
	}
	for i := range ha {
		if ha[i].ID != hb[i].ID || !slices.Equal(ha[i].Aggregated, hb[i].Aggregated) {
			return false
		}
	}
	return true
}

func TestImportExportJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(in, []byte(producerDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := ImportJSON(in)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}

	out := filepath.Join(dir, "snapshot.json")
	if err := ExportJSON(g, out); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	back, err := ImportJSON(out)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if back.NodeCount() != g.NodeCount() || back.ContainerCount() != g.ContainerCount() {
		t.Error("round trip lost elements")
	}

	if _, err := ImportJSON(filepath.Join(dir, "graph.yaml")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("non-JSON path: %v", err)
	}
	if _, err := ImportJSON(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestHierarchies(t *testing.T) {
	doc := strings.Replace(producerDoc, `"selectedHierarchy": "location"`, `"selectedHierarchy": "backtrace"`, 1)
	ids, err := Hierarchies(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"backtrace", "location"}) {
		t.Errorf("Hierarchies = %v", ids)
	}
}
