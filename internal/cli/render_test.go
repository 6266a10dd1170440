package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/flowscope/pkg/hgraph"
	"github.com/matzehuels/flowscope/pkg/render"
)

const testDoc = `{
  "nodes": [{"id": "1", "label": "source"}, {"id": "2"}, {"id": "3"}, {"id": "4"}],
  "edges": [
    {"id": "e1", "source": "1", "target": "3"},
    {"id": "e2", "source": "2", "target": "3"},
    {"id": "e3", "source": "3", "target": "4"}
  ],
  "containers": [
    {"id": "A", "label": "ingest", "children": ["1", "2"]},
    {"id": "B", "children": ["3"]}
  ]
}`

// isolate points config and cache lookups at temp directories.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"svg"}},
		{"json", []string{"json"}},
		{"svg,png", []string{"svg", "png"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.input); !slices.Equal(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if err := validateFormats([]string{"svg", "gif"}); err == nil {
		t.Error("validateFormats should reject gif")
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "graph.json", "graph"},
		{"", "dir/flow.json", "dir/flow"},
		{"out.svg", "graph.json", "out"},
		{"out", "graph.json", "out"},
		{"out.v2", "graph.json", "out.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	single := renderOpts{output: "view.svg", formats: []string{"svg"}}
	if got := outputPath(single, "g.json", "svg"); got != "view.svg" {
		t.Errorf("single = %q", got)
	}
	multi := renderOpts{output: "view.svg", formats: []string{"svg", "json"}}
	if got := outputPath(multi, "g.json", "json"); got != "view.json" {
		t.Errorf("multi = %q", got)
	}
}

func TestRunRender(t *testing.T) {
	isolate(t)
	input := writeFile(t, "flow.json", testDoc)
	c := New(os.Stderr, LogInfo)

	opts := renderOpts{
		formats: []string{"svg", "json"},
		view:    viewOpts{collapse: []string{"A"}, noCache: true},
	}
	if err := c.runRender(context.Background(), input, opts); err != nil {
		t.Fatalf("runRender: %v", err)
	}

	base := strings.TrimSuffix(input, filepath.Ext(input))
	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("svg output missing root element")
	}

	data, err := os.ReadFile(base + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var out render.Output
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	var hyper []string
	for _, l := range out.Links {
		if l.Type == hgraph.KindHyper {
			hyper = append(hyper, l.ID)
		}
	}
	if !slices.Equal(hyper, []string{"hyper_A_to_3"}) {
		t.Errorf("hyper links = %v", hyper)
	}
}

func TestRunLayout(t *testing.T) {
	isolate(t)
	input := writeFile(t, "flow.json", testDoc)
	c := New(os.Stderr, LogInfo)
	ctx := context.Background()

	out := filepath.Join(t.TempDir(), "laid.json")
	if err := c.runLayout(ctx, input, viewOpts{collapse: []string{"B"}, noCache: true}, out, false); err != nil {
		t.Fatalf("runLayout: %v", err)
	}

	// The saved document reopens with B still collapsed and expandable.
	sess, err := c.openSession(ctx, out, viewOpts{noCache: true}, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer sess.Close()
	if st := sess.Stats(); st.Collapsed != 1 {
		t.Errorf("reopened stats = %+v", st)
	}
	if err := sess.Expand(ctx, "B"); err != nil {
		t.Errorf("expand after reopen: %v", err)
	}

	req := filepath.Join(t.TempDir(), "req.json")
	if err := c.runLayout(ctx, input, viewOpts{noCache: true}, req, true); err != nil {
		t.Fatalf("runLayout --request: %v", err)
	}
	data, _ := os.ReadFile(req)
	if !strings.Contains(string(data), `"roots"`) {
		t.Errorf("request output = %.80s", data)
	}
}
