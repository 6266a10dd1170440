// Package render converts graph state into what a viewer front-end draws.
//
// # Overview
//
// [Build] walks the visible part of an [hgraph.Graph] and produces an
// [Output]: one [Element] per visible node or container and one [Link] per
// visible edge. Layout engines work in absolute coordinates; elements carry
// positions relative to their parent container, translated with
// [coords.ToRenderSpace]. Parents always precede their children in
// [Output.Elements], so a front-end can create them in order.
//
// Links carry a type tag (plain or hyper). A hyperedge that aggregates more
// than one edge gets its count as label.
//
// # Static Output
//
// [ToSVG] draws an [Output] as a standalone SVG document: containers as
// rounded frames, collapsed containers as filled boxes, hyperedges dashed
// with a count badge. [ToPDF] and [ToPNG] convert the SVG with rsvg-convert.
//
//	out := render.Build(g)
//	svg := render.ToSVG(out)
//	png, err := render.ToPNG(svg, 2.0)
//
// [hgraph.Graph]: github.com/matzehuels/flowscope/pkg/hgraph.Graph
// [coords.ToRenderSpace]: github.com/matzehuels/flowscope/pkg/coords.ToRenderSpace
package render
