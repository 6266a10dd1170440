package layout

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"testing"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
)

// sample builds container A{1, 2} and node 3 with edges e1: 1->3 and
// e2: 1->2.
func sample(t *testing.T) *hgraph.Graph {
	t.Helper()
	g := hgraph.New()
	for _, id := range []string{"1", "2", "3"} {
		if err := g.SetNode(hgraph.Node{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.SetContainer(hgraph.Container{ID: "A"}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"1", "2"} {
		if err := g.AddChild("A", id); err != nil {
			t.Fatal(err)
		}
	}
	for id, ends := range map[string][2]string{"e1": {"1", "3"}, "e2": {"1", "2"}} {
		if err := g.SetEdge(hgraph.Edge{ID: id, Source: ends[0], Target: ends[1]}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

// fakeEngine places every element on a diagonal and lets tests hook into
// the call.
type fakeEngine struct {
	calls  int
	err    error
	during func()
	skip   map[string]bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Layout(_ context.Context, req Request) (Response, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return Response{}, f.err
	}
	var resp Response
	for i, n := range req.Nodes {
		if !f.skip[n.ID] {
			resp.Nodes = append(resp.Nodes, Placement{ID: n.ID, X: float64(i * 10), Y: float64(i * 10)})
		}
	}
	for i, c := range req.Containers {
		if !f.skip[c.ID] {
			resp.Containers = append(resp.Containers, Placement{ID: c.ID, X: float64(i * 100), Width: c.Width + 5, Height: c.Height + 5})
		}
	}
	return resp, nil
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	slices.Sort(out)
	return out
}

func TestBuildRequest_Collapsed(t *testing.T) {
	g := sample(t)
	if err := g.CollapseContainer("A"); err != nil {
		t.Fatal(err)
	}
	req := BuildRequest(g)

	if got := ids(req.Nodes, func(n NodeSpec) string { return n.ID }); !slices.Equal(got, []string{"3"}) {
		t.Errorf("nodes = %v, want [3]", got)
	}
	if len(req.Containers) != 1 {
		t.Fatalf("containers = %v", req.Containers)
	}
	a := req.Containers[0]
	want := g.Constants().Collapsed()
	if !a.Collapsed || a.Width != want.Width || a.Height != want.Height || len(a.Children) != 0 {
		t.Errorf("collapsed container spec = %+v", a)
	}
	if len(req.Edges) != 1 || req.Edges[0].Kind != hgraph.KindHyper || req.Edges[0].Source() != "A" || req.Edges[0].Target() != "3" {
		t.Errorf("edges = %+v, want one hyperedge A -> 3", req.Edges)
	}
	if !slices.Equal(req.Roots, []string{"3", "A"}) {
		t.Errorf("roots = %v", req.Roots)
	}
}

func TestBuildRequest_Expanded(t *testing.T) {
	g := sample(t)
	req := BuildRequest(g)

	if got := ids(req.Nodes, func(n NodeSpec) string { return n.ID }); !slices.Equal(got, []string{"1", "2", "3"}) {
		t.Errorf("nodes = %v", got)
	}
	adjusted, _ := g.AdjustedSize("A")
	a := req.Containers[0]
	if a.Width != adjusted.Width || a.Height != adjusted.Height {
		t.Errorf("uncached container size = %vx%v, want adjusted %v", a.Width, a.Height, adjusted)
	}
	if !slices.Equal(a.Children, []string{"1", "2"}) {
		t.Errorf("children = %v", a.Children)
	}
	if got := ids(req.Edges, func(e EdgeSpec) string { return e.ID }); !slices.Equal(got, []string{"e1", "e2"}) {
		t.Errorf("edges = %v", got)
	}

	_ = g.SetExpandedSize("A", hgraph.Size{Width: 500, Height: 400})
	if c := BuildRequest(g).Containers[0]; c.Width != 500 || c.Height != 400 {
		t.Errorf("cached container size = %vx%v, want 500x400", c.Width, c.Height)
	}
}

func TestBuildRequest_HashStable(t *testing.T) {
	g := sample(t)
	if BuildRequest(g).Hash() != BuildRequest(g).Hash() {
		t.Error("request hash should be stable")
	}
	h := BuildRequest(g).Hash()
	_ = g.CollapseContainer("A")
	if BuildRequest(g).Hash() == h {
		t.Error("collapsing should change the request hash")
	}
}

func TestBuildFullRequest(t *testing.T) {
	g := sample(t)
	_ = g.SetNode(hgraph.Node{ID: "2", Hidden: true})
	_ = g.CollapseContainer("A")

	req := BuildFullRequest(g)
	if got := ids(req.Nodes, func(n NodeSpec) string { return n.ID }); !slices.Equal(got, []string{"1", "3"}) {
		t.Errorf("nodes = %v, want [1 3]", got)
	}
	if c := req.Containers[0]; c.Collapsed || !slices.Equal(c.Children, []string{"1"}) {
		t.Errorf("container = %+v, want expanded with child 1", c)
	}
	for _, e := range req.Edges {
		if e.Kind != hgraph.KindPlain {
			t.Errorf("edge %s kind = %s, want plain", e.ID, e.Kind)
		}
	}
	if got := ids(req.Edges, func(e EdgeSpec) string { return e.ID }); !slices.Equal(got, []string{"e1"}) {
		t.Errorf("edges = %v", got)
	}
}

func TestApply(t *testing.T) {
	g := sample(t)
	_ = g.SetGeometry("2", hgraph.Geometry{X: 7, Y: 8, Width: 180, Height: 60})
	gen := g.Generation()

	req := BuildRequest(g)
	resp := Response{
		Nodes: []Placement{
			{ID: "1", X: 10, Y: 20},
			{ID: "3", X: 30, Y: 40, Width: 90, Height: 30},
			{ID: "ghost", X: 1, Y: 1},
		},
		Containers: []Placement{{ID: "A", X: 0, Y: 0, Width: 400, Height: 300}},
	}
	stats := Apply(g, req, resp)
	if stats != (ApplyStats{Applied: 3, Missing: 1, Unknown: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	if geo, _ := g.Geometry("1"); geo != (hgraph.Geometry{X: 10, Y: 20, Width: 180, Height: 60}) {
		t.Errorf("geometry(1) = %+v, want requested size kept", geo)
	}
	if geo, _ := g.Geometry("3"); geo.Width != 90 || geo.Height != 30 {
		t.Errorf("geometry(3) = %+v, want engine size", geo)
	}
	if geo, _ := g.Geometry("2"); geo.X != 7 || geo.Y != 8 {
		t.Errorf("missing id should keep its geometry, got %+v", geo)
	}
	if size, ok := g.ExpandedSize("A"); !ok || size != (hgraph.Size{Width: 400, Height: 300}) {
		t.Errorf("ExpandedSize(A) = %v, %v", size, ok)
	}
	if g.Generation() != gen {
		t.Error("Apply should not bump the generation")
	}
}

func TestApply_CollapsedSizeNotCached(t *testing.T) {
	g := sample(t)
	_ = g.CollapseContainer("A")
	req := BuildRequest(g)
	Apply(g, req, Response{Containers: []Placement{{ID: "A", Width: 200, Height: 150}}})
	if _, ok := g.ExpandedSize("A"); ok {
		t.Error("collapsed placement must not be cached as expanded size")
	}
}

func TestAdapter_Run(t *testing.T) {
	g := sample(t)
	eng := &fakeEngine{skip: map[string]bool{"2": true}}
	a := NewAdapter(g, eng)

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Discarded || res.Applied != 3 || res.Missing != 1 || res.Generation != g.Generation() {
		t.Errorf("result = %+v", res)
	}
	if _, ok := g.Geometry("1"); !ok {
		t.Error("node 1 should be placed")
	}
}

func TestAdapter_DiscardsStaleResult(t *testing.T) {
	g := sample(t)
	eng := &fakeEngine{}
	a := NewAdapter(g, eng)
	eng.during = func() {
		if err := g.CollapseContainer("A"); err != nil {
			t.Error(err)
		}
	}

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Discarded {
		t.Fatal("result computed for an older generation should be discarded")
	}
	if _, ok := g.Geometry("3"); ok {
		t.Error("discarded result must not write geometry")
	}

	eng.during = nil
	res, err = a.Run(context.Background())
	if err != nil || res.Discarded {
		t.Fatalf("second run: %+v, %v", res, err)
	}
	if _, ok := g.Geometry("3"); !ok {
		t.Error("fresh run should write geometry")
	}
}

func TestAdapter_EngineFailure(t *testing.T) {
	g := sample(t)
	cause := stderrors.New("boom")
	a := NewAdapter(g, &fakeEngine{err: cause})

	_, err := a.Run(context.Background())
	if !errors.Is(err, errors.ErrCodeLayoutFailure) {
		t.Fatalf("err = %v, want LAYOUT_FAILURE", err)
	}
	if !stderrors.Is(err, cause) {
		t.Error("layout failure should wrap the engine error")
	}
	if _, ok := g.Geometry("1"); ok {
		t.Error("failed layout must leave geometry untouched")
	}
}

func TestAdapter_Measure(t *testing.T) {
	g := sample(t)
	_ = g.CollapseContainer("A")
	a := NewAdapter(g, NewLayeredEngine())

	if err := g.ExpandContainer("A"); !errors.Is(err, errors.ErrCodeMissingDimensions) {
		t.Fatalf("ExpandContainer before measuring = %v", err)
	}
	res, err := a.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if res.Applied != 1 {
		t.Errorf("measured %d containers, want 1", res.Applied)
	}
	if _, ok := g.Geometry("3"); ok {
		t.Error("Measure should not write geometry")
	}
	if err := g.ExpandContainer("A"); err != nil {
		t.Errorf("ExpandContainer after measuring: %v", err)
	}
}

func TestAdapter_SharedLocker(t *testing.T) {
	g := sample(t)
	var mu sync.Mutex
	a := NewAdapter(g, NewLayeredEngine(), WithLocker(&mu))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := a.Run(context.Background()); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			_ = g.ToggleContainer("A")
		}()
	}
	wg.Wait()
}

// countingEngine counts calls through a pointer so its printed settings
// stay stable.
type countingEngine struct {
	Engine
	calls *int
}

func (c countingEngine) Layout(ctx context.Context, req Request) (Response, error) {
	*c.calls++
	return c.Engine.Layout(ctx, req)
}

func TestCachedEngine(t *testing.T) {
	g := sample(t)
	mem, err := cache.NewMemoryCache(0)
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	eng := NewCachedEngine(countingEngine{NewLayeredEngine(), &calls}, mem, nil)
	req := BuildRequest(g)

	first, err := eng.Layout(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := eng.Layout(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("inner engine called %d times, want 1", calls)
	}
	if !slices.Equal(first.Nodes, second.Nodes) || !slices.Equal(first.Containers, second.Containers) {
		t.Error("cached response differs")
	}

	_ = g.CollapseContainer("A")
	if _, err := eng.Layout(context.Background(), BuildRequest(g)); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("changed request should miss, calls = %d", calls)
	}
	if eng.Name() != EngineLayered {
		t.Errorf("Name() = %q", eng.Name())
	}
}

func TestNewEngine(t *testing.T) {
	for _, name := range EngineNames() {
		e, err := NewEngine(name, DirectionRight)
		if err != nil {
			t.Fatalf("NewEngine(%q): %v", name, err)
		}
		if e.Name() != name {
			t.Errorf("Name() = %q, want %q", e.Name(), name)
		}
	}
	if _, err := NewEngine("elk", ""); err == nil {
		t.Error("unknown engine should fail")
	}
	if _, err := NewEngine(EngineLayered, "BT"); err == nil {
		t.Error("unknown direction should fail")
	}
}

func TestHierarchyLift(t *testing.T) {
	h := index(Request{
		Containers: []ContainerSpec{
			{ID: "A", Children: []string{"B", "1"}},
			{ID: "B", Children: []string{"2"}},
		},
	})
	tests := []struct {
		src, tgt    string
		scope, a, b string
		ok          bool
	}{
		{"1", "3", "", "A", "3", true},
		{"2", "1", "A", "B", "1", true},
		{"2", "B", "", "", "", false},
		{"B", "2", "", "", "", false},
		{"3", "4", "", "3", "4", true},
	}
	for _, tt := range tests {
		scope, a, b, ok := h.lift(tt.src, tt.tgt)
		if scope != tt.scope || a != tt.a || b != tt.b || ok != tt.ok {
			t.Errorf("lift(%s, %s) = %q %q %q %v", tt.src, tt.tgt, scope, a, b, ok)
		}
	}
}
