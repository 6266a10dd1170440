package session

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
	graphio "github.com/matzehuels/flowscope/pkg/io"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/render"
)

const doc = `{
  "nodes": [{"id": "1"}, {"id": "2"}, {"id": "3"}, {"id": "4"}],
  "edges": [
    {"id": "e1", "source": "1", "target": "3"},
    {"id": "e2", "source": "2", "target": "3"},
    {"id": "e3", "source": "3", "target": "4"}
  ],
  "containers": [
    {"id": "A", "children": ["1", "2"]},
    {"id": "B", "children": ["3"]}
  ]
}`

func testGraph(t *testing.T) *hgraph.Graph {
	t.Helper()
	g, err := graphio.ReadJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// countingEngine counts layout calls.
type countingEngine struct {
	layout.Engine
	calls *atomic.Int32
}

func (c countingEngine) Layout(ctx context.Context, req layout.Request) (layout.Response, error) {
	c.calls.Add(1)
	return c.Engine.Layout(ctx, req)
}

func syncSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(context.Background(), testGraph(t), Config{Debounce: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func links(out render.Output) map[string]render.Link {
	m := make(map[string]render.Link)
	for _, l := range out.Links {
		m[l.ID] = l
	}
	return m
}

func TestNew_LaysOut(t *testing.T) {
	s := syncSession(t)
	out := s.Render()
	if len(out.Elements) != 6 {
		t.Fatalf("elements = %d, want 6", len(out.Elements))
	}
	for _, el := range out.Elements {
		if !el.Placed {
			t.Errorf("%s not placed after open", el.ID)
		}
	}
	if err := errors.ValidateSessionID(s.ID); err != nil {
		t.Errorf("session id: %v", err)
	}
}

func TestSession_CollapseExpand(t *testing.T) {
	s := syncSession(t)
	ctx := context.Background()

	if err := s.Collapse(ctx, "A"); err != nil {
		t.Fatalf("Collapse: %v", err)
	}
	l := links(s.Render())
	h, ok := l[hgraph.HyperEdgeID("A", "3")]
	if !ok || h.Count != 2 || h.Label != "2" {
		t.Fatalf("links = %+v", l)
	}

	if err := s.Collapse(ctx, "B"); err != nil {
		t.Fatal(err)
	}
	l = links(s.Render())
	if _, ok := l[hgraph.HyperEdgeID("A", "B")]; !ok {
		t.Errorf("collapsing B should retarget A->3 to A->B: %+v", l)
	}

	if err := s.Expand(ctx, "A"); err != nil {
		t.Fatal(err)
	}
	if err := s.Toggle(ctx, "B"); err != nil {
		t.Fatal(err)
	}
	for _, link := range s.Render().Links {
		if link.Type != hgraph.KindPlain {
			t.Errorf("hyperedge %s left after expanding everything", link.ID)
		}
	}
	if st := s.Stats(); st.Aggregated+st.Absorbed+st.Grounded != st.Eligible {
		t.Errorf("conservation broken: %+v", st)
	}

	if err := s.Collapse(ctx, "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown container: %v", err)
	}
}

func TestSession_ExpandMeasuresOnDemand(t *testing.T) {
	s := syncSession(t)
	ctx := context.Background()

	s.View(func(g *hgraph.Graph) {
		_ = g.SetNode(hgraph.Node{ID: "5"})
		_ = g.SetContainer(hgraph.Container{ID: "C", Collapsed: true})
		_ = g.AddChild("C", "5")
	})
	if err := s.Expand(ctx, "C"); err != nil {
		t.Fatalf("Expand of unmeasured container: %v", err)
	}
	s.View(func(g *hgraph.Graph) {
		if !g.IsNodeVisible("5") {
			t.Error("node 5 should be visible")
		}
	})
}

func TestSession_Debounce(t *testing.T) {
	var calls atomic.Int32
	eng := countingEngine{layout.NewLayeredEngine(), &calls}
	s, err := New(context.Background(), testGraph(t), Config{Engine: eng, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	opened := calls.Load()

	updates, cancel := s.Subscribe(1)
	defer cancel()

	ctx := context.Background()
	_ = s.Collapse(ctx, "A")
	_ = s.Collapse(ctx, "B")
	_ = s.Expand(ctx, "A")
	if !s.Pending() {
		t.Error("relayout should be pending")
	}

	select {
	case out := <-updates:
		if _, ok := links(out)[hgraph.HyperEdgeID("3", "4")]; ok {
			t.Error("unexpected hyperedge")
		}
		if _, ok := links(out)[hgraph.HyperEdgeID("B", "4")]; !ok {
			t.Errorf("update should reflect the final state: %+v", out.Links)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update after debounce window")
	}
	if got := calls.Load() - opened; got != 1 {
		t.Errorf("layout ran %d times for one burst, want 1", got)
	}
}

func TestSession_Flush(t *testing.T) {
	s, err := New(context.Background(), testGraph(t), Config{Debounce: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_ = s.Collapse(context.Background(), "A")
	if !s.Flush() {
		t.Fatal("Flush should run the pending layout")
	}
	if s.Pending() || s.Flush() {
		t.Error("nothing should be pending after Flush")
	}
	for _, el := range s.Render().Elements {
		if el.ID == "A" && (!el.Placed || el.Width != s.Constants().CollapsedWidth) {
			t.Errorf("A should be laid out collapsed: %+v", el)
		}
	}
}

func TestSession_RelayoutCancelsScheduled(t *testing.T) {
	s, err := New(context.Background(), testGraph(t), Config{Debounce: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	_ = s.Collapse(ctx, "A")
	if !s.Pending() {
		t.Fatal("collapse should schedule a layout")
	}
	if _, err := s.Relayout(ctx); err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	if s.Pending() || s.Flush() {
		t.Error("Relayout should drop the scheduled layout")
	}
	_ = s.Expand(ctx, "A")
	if !s.Pending() {
		t.Error("later transitions should schedule again")
	}
}

func TestSession_Reset(t *testing.T) {
	s := syncSession(t)
	ctx := context.Background()
	_ = s.Collapse(ctx, "A")
	_ = s.Collapse(ctx, "B")

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st := s.Stats(); st.Collapsed != 0 || st.HyperEdges != 0 {
		t.Errorf("after reset: %+v", st)
	}
	if err := s.Collapse(ctx, "A"); err != nil {
		t.Errorf("session should stay usable after reset: %v", err)
	}
}

func TestSession_Snapshot(t *testing.T) {
	s := syncSession(t)
	_ = s.Collapse(context.Background(), "A")
	data, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	g, err := graphio.ReadJSON(strings.NewReader(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := g.Container("A"); !c.Collapsed {
		t.Error("snapshot lost collapsed flag")
	}
	if _, ok := g.ExpandedSize("A"); !ok {
		t.Error("snapshot lost measured size")
	}
}

func TestSession_Policy(t *testing.T) {
	s, err := New(context.Background(), testGraph(t), Config{
		Debounce: -1,
		Policy:   layout.SmartCollapse{Budget: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if st := s.Stats(); st.Collapsed != 2 {
		t.Errorf("collapsed = %d, want both containers", st.Collapsed)
	}
	if err := s.Expand(context.Background(), "A"); err != nil {
		t.Errorf("policy-collapsed container should expand: %v", err)
	}
}

func TestSession_Subscribe(t *testing.T) {
	s := syncSession(t)
	updates, cancel := s.Subscribe(1)

	_ = s.Collapse(context.Background(), "A")
	_ = s.Collapse(context.Background(), "B")
	out := <-updates
	if out.Generation != s.Render().Generation {
		t.Error("slow subscriber should get the latest output")
	}

	cancel()
	cancel()
	if _, ok := <-updates; ok {
		t.Error("channel should be closed after cancel")
	}

	other, _ := s.Subscribe(1)
	s.Close()
	if _, ok := <-other; ok {
		t.Error("Close should close subscriptions")
	}
}

func TestSession_LayoutFailure(t *testing.T) {
	_, err := New(context.Background(), testGraph(t), Config{Debounce: -1, Engine: failingEngine{}})
	if !errors.Is(err, errors.ErrCodeLayoutFailure) {
		t.Errorf("err = %v, want LAYOUT_FAILURE", err)
	}
}

type failingEngine struct{}

func (failingEngine) Name() string { return "failing" }

func (failingEngine) Layout(context.Context, layout.Request) (layout.Response, error) {
	return layout.Response{}, context.DeadlineExceeded
}
