package layout

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// GraphvizEngine lays out requests with Graphviz dot, run in-process.
// Expanded containers become clusters; collapsed and empty containers are
// fixed-size boxes.
type GraphvizEngine struct {
	Direction   string
	NodeSep     float64 // Points between neighbors in a rank
	RankSep     float64 // Points between ranks
	Padding     float64 // Cluster margin in points
	LabelHeight float64 // Space reserved for cluster labels
}

// NewGraphvizEngine returns an engine with default spacing.
func NewGraphvizEngine() *GraphvizEngine {
	return &GraphvizEngine{
		Direction:   DirectionDown,
		NodeSep:     30,
		RankSep:     45,
		Padding:     12,
		LabelHeight: 32,
	}
}

// Name implements Engine.
func (e *GraphvizEngine) Name() string { return EngineGraphviz }

const pointsPerInch = 72

// Layout implements Engine.
func (e *GraphvizEngine) Layout(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if len(req.Roots) == 0 {
		return Response{}, nil
	}
	dot, names := e.DOT(req)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return Response{}, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return Response{}, fmt.Errorf("render: %w", err)
	}
	return parseXDOT(buf.Bytes(), names, index(req).containers)
}

// DOT converts req to Graphviz source. Element ids are replaced by synthetic
// names so arbitrary ids need no quoting; the returned map resolves them.
func (e *GraphvizEngine) DOT(req Request) (string, map[string]string) {
	h := index(req)
	names := make(map[string]string)
	ids := make(map[string]string)
	clusters := 0
	nodes := 0

	// Expanded containers with children become clusters.
	isCluster := func(id string) bool {
		c, ok := h.containers[id]
		return ok && !c.Collapsed && len(c.Children) > 0
	}

	var buf bytes.Buffer
	rankdir := e.Direction
	if rankdir == "" {
		rankdir = DirectionDown
	}
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  compound=true;\n")
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(e.NodeSep))
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(e.RankSep))
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")

	var write func(id, indent string)
	write = func(id, indent string) {
		if isCluster(id) {
			name := "cluster_" + strconv.Itoa(clusters)
			clusters++
			names[name] = id
			ids[id] = name
			fmt.Fprintf(&buf, "%ssubgraph %s {\n", indent, name)
			fmt.Fprintf(&buf, "%s  graph [label=\" \", labelloc=t, fontsize=%s, margin=%s];\n",
				indent, num(e.LabelHeight*0.75), num(e.Padding))
			for _, child := range h.containers[id].Children {
				write(child, indent+"  ")
			}
			fmt.Fprintf(&buf, "%s}\n", indent)
			return
		}
		w, ht := e.size(h, id)
		name := "n" + strconv.Itoa(nodes)
		nodes++
		names[name] = id
		ids[id] = name
		fmt.Fprintf(&buf, "%s%s [width=%s, height=%s];\n", indent, name, inches(w), inches(ht))
	}
	for _, id := range req.Roots {
		write(id, "  ")
	}

	// Edges touching a cluster attach to a node inside it and clip at its
	// border.
	var anchor func(id string) string
	anchor = func(id string) string {
		if !isCluster(id) {
			return ids[id]
		}
		for _, child := range h.containers[id].Children {
			if a := anchor(child); a != "" {
				return a
			}
		}
		return ""
	}
	for _, edge := range req.Edges {
		src, tgt := anchor(edge.Source()), anchor(edge.Target())
		if src == "" || tgt == "" || src == tgt {
			continue
		}
		var attrs []string
		if isCluster(edge.Source()) {
			attrs = append(attrs, "ltail="+ids[edge.Source()])
		}
		if isCluster(edge.Target()) {
			attrs = append(attrs, "lhead="+ids[edge.Target()])
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %s -> %s [%s];\n", src, tgt, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %s -> %s;\n", src, tgt)
		}
	}
	buf.WriteString("}\n")
	return buf.String(), names
}

func (e *GraphvizEngine) size(h hierarchy, id string) (float64, float64) {
	if n, ok := h.nodes[id]; ok {
		return n.Width, n.Height
	}
	c := h.containers[id]
	return c.Width, c.Height
}

func inches(points float64) string { return num(points / pointsPerInch) }

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

var (
	attrList    = `\[((?:[^\]"]|"(?:[^"\\]|\\.)*")*)\]`
	nodeStmtRe  = regexp.MustCompile(`(?m)^\s*(n\d+)\s*` + attrList)
	clusterRe   = regexp.MustCompile(`subgraph\s+(cluster_\d+)\s*\{\s*graph\s*` + attrList)
	bbRe        = regexp.MustCompile(`bb="([^"]*)"`)
	attrPairRe  = regexp.MustCompile(`(\w+)=("(?:[^"\\]|\\.)*"|[^,\s\]]+)`)
	continueSeq = []byte("\\\n")
)

// parseXDOT reads positions from Graphviz's annotated DOT output. Graphviz
// uses a bottom-left origin with center positions for nodes; placements are
// flipped to top-left corners.
func parseXDOT(out []byte, names map[string]string, containers map[string]ContainerSpec) (Response, error) {
	out = bytes.ReplaceAll(out, continueSeq, nil)

	root := bbRe.FindSubmatch(out)
	if root == nil {
		return Response{}, fmt.Errorf("graphviz output has no bounding box")
	}
	bb, err := floats(string(root[1]), 4)
	if err != nil {
		return Response{}, fmt.Errorf("root bounding box: %w", err)
	}
	top := bb[3]

	var resp Response
	for _, m := range nodeStmtRe.FindAllSubmatch(out, -1) {
		id, ok := names[string(m[1])]
		if !ok {
			continue
		}
		attrs := parseAttrs(string(m[2]))
		pos, err := floats(attrs["pos"], 2)
		if err != nil {
			return Response{}, fmt.Errorf("node %q position: %w", id, err)
		}
		w, _ := strconv.ParseFloat(attrs["width"], 64)
		h, _ := strconv.ParseFloat(attrs["height"], 64)
		w, h = w*pointsPerInch, h*pointsPerInch
		p := Placement{ID: id, X: pos[0] - w/2, Y: top - (pos[1] + h/2), Width: w, Height: h}
		if _, ok := containers[id]; ok {
			resp.Containers = append(resp.Containers, p)
		} else {
			resp.Nodes = append(resp.Nodes, p)
		}
	}
	for _, m := range clusterRe.FindAllSubmatch(out, -1) {
		id, ok := names[string(m[1])]
		if !ok {
			continue
		}
		b, err := floats(parseAttrs(string(m[2]))["bb"], 4)
		if err != nil {
			return Response{}, fmt.Errorf("cluster %q bounding box: %w", id, err)
		}
		resp.Containers = append(resp.Containers, Placement{
			ID: id, X: b[0], Y: top - b[3], Width: b[2] - b[0], Height: b[3] - b[1],
		})
	}
	return resp, nil
}

func parseAttrs(list string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPairRe.FindAllStringSubmatch(list, -1) {
		attrs[m[1]] = strings.Trim(m[2], `"`)
	}
	return attrs
}

// floats parses a comma-separated list of exactly n numbers.
func floats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) < n {
		return nil, fmt.Errorf("want %d numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i := range n {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
