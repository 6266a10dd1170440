package render

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/flowscope/pkg/coords"
	"github.com/matzehuels/flowscope/pkg/hgraph"
)

const (
	svgMargin  = 20
	fontFamily = "Helvetica, Arial, sans-serif"
)

const svgCSS = `
    .container { fill: #f6f8fa; stroke: #8c959f; stroke-width: 1.5; }
    .container.collapsed { fill: #ddf4ff; stroke: #0969da; }
    .node { fill: #ffffff; stroke: #24292f; stroke-width: 1.5; }
    .edge { stroke: #57606a; stroke-width: 1.5; fill: none; marker-end: url(#arrow); }
    .edge.hyper { stroke: #0969da; stroke-dasharray: 6 4; stroke-width: 2; }
    .badge { fill: #0969da; }
    .badge-text { fill: #ffffff; font-size: 11px; font-weight: bold; }
    text { font-family: ` + fontFamily + `; fill: #24292f; }`

// ToSVG draws o as a standalone SVG document. Links are drawn between
// element centers, on top of containers and below nodes.
func ToSVG(o Output) []byte {
	abs := o.Absolute()
	w, h := o.Width+2*svgMargin, o.Height+2*svgMargin

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n", w, h, w, h)
	buf.WriteString("  <style>" + svgCSS + "\n  </style>\n")
	buf.WriteString(`  <defs><marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse"><path d="M0,0 L10,5 L0,10 z" fill="#57606a"/></marker></defs>` + "\n")
	fmt.Fprintf(&buf, `  <g transform="translate(%d,%d)">`+"\n", svgMargin, svgMargin)

	byID := make(map[string]Element, len(o.Elements))
	for _, el := range o.Elements {
		byID[el.ID] = el
		if el.Kind == KindContainer {
			renderContainer(&buf, el, abs[el.ID])
		}
	}
	for _, l := range o.Links {
		src, ok1 := byID[l.Source]
		tgt, ok2 := byID[l.Target]
		if ok1 && ok2 {
			renderLink(&buf, l, center(src, abs[src.ID]), center(tgt, abs[tgt.ID]))
		}
	}
	for _, el := range o.Elements {
		if el.Kind == KindNode {
			renderNode(&buf, el, abs[el.ID])
		}
	}

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

func center(el Element, p coords.Point) coords.Point {
	return coords.Point{X: p.X + el.Width/2, Y: p.Y + el.Height/2}
}

func renderContainer(buf *bytes.Buffer, el Element, p coords.Point) {
	class := "container"
	if el.Collapsed {
		class += " collapsed"
	}
	fmt.Fprintf(buf, `    <rect id="container-%s" class="%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" ry="8"/>`+"\n",
		escapeXML(el.ID), class, p.X, p.Y, el.Width, el.Height)
	if el.Collapsed {
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-size="14">%s</text>`+"\n",
			p.X+el.Width/2, p.Y+el.Height/2, escapeXML(el.Label))
		return
	}
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="13" font-weight="bold">%s</text>`+"\n",
		p.X+10, p.Y+20, escapeXML(el.Label))
}

func renderNode(buf *bytes.Buffer, el Element, p coords.Point) {
	fmt.Fprintf(buf, `    <rect id="node-%s" class="node" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" ry="4"/>`+"\n",
		escapeXML(el.ID), p.X, p.Y, el.Width, el.Height)
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-size="12">%s</text>`+"\n",
		p.X+el.Width/2, p.Y+el.Height/2, escapeXML(el.Label))
}

func renderLink(buf *bytes.Buffer, l Link, a, b coords.Point) {
	class := "edge"
	if l.Type == hgraph.KindHyper {
		class += " hyper"
	}
	fmt.Fprintf(buf, `    <line id="edge-%s" class="%s" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n",
		escapeXML(l.ID), class, a.X, a.Y, b.X, b.Y)
	if l.Label == "" {
		return
	}
	mx, my := (a.X+b.X)/2, (a.Y+b.Y)/2
	fmt.Fprintf(buf, `    <circle class="badge" cx="%.1f" cy="%.1f" r="10"/>`+"\n", mx, my)
	fmt.Fprintf(buf, `    <text class="badge-text" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="central">%s</text>`+"\n",
		mx, my, escapeXML(l.Label))
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
