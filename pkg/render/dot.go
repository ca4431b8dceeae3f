package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/jeannie068/analogplace/pkg/place/hb"
)

// DOTOption configures tree rendering.
type DOTOption func(*dotRenderer)

type dotRenderer struct {
	detailed bool
}

// WithDetail includes coordinates and dimensions in node labels. When off,
// only names are shown.
func WithDetail(on bool) DOTOption {
	return func(r *dotRenderer) { r.detailed = on }
}

// ToDOT converts an HB*-tree to Graphviz DOT format. Module nodes are plain
// boxes, hierarchy nodes doubled boxes, contour nodes dashed grey. The DOT
// string renders with [GraphSVG] or any graphviz tool.
func ToDOT(t *hb.Tree, opts ...DOTOption) string {
	r := dotRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	buf.WriteString("digraph placement {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.08\"];\n")
	buf.WriteString("\n")

	ids := make(map[*hb.Node]string)
	seq := 0
	var walk func(n *hb.Node)
	walk = func(n *hb.Node) {
		if n == nil {
			return
		}
		id := fmt.Sprintf("n%d", seq)
		seq++
		ids[n] = id
		fmt.Fprintf(&buf, "  %s [%s];\n", id, strings.Join(r.nodeAttrs(t, n), ", "))
		walk(n.Left)
		walk(n.Right)
	}
	walk(t.Root())

	buf.WriteString("\n")
	var edges func(n *hb.Node)
	edges = func(n *hb.Node) {
		if n == nil {
			return
		}
		if n.Left != nil {
			fmt.Fprintf(&buf, "  %s -> %s [label=\"L\"];\n", ids[n], ids[n.Left])
			edges(n.Left)
		}
		if n.Right != nil {
			fmt.Fprintf(&buf, "  %s -> %s [label=\"R\"];\n", ids[n], ids[n.Right])
			edges(n.Right)
		}
	}
	edges(t.Root())

	buf.WriteString("}\n")
	return buf.String()
}

func (r *dotRenderer) nodeAttrs(t *hb.Tree, n *hb.Node) []string {
	label := n.Name
	switch n.Kind {
	case hb.KindModule:
		if r.detailed {
			if m, ok := t.Modules()[n.Name]; ok {
				label = fmt.Sprintf("%s\n%dx%d @ (%d,%d)", n.Name, m.Width(), m.Height(), m.X, m.Y)
			}
		}
		return []string{fmt.Sprintf("label=%q", label)}
	case hb.KindHierarchy:
		if r.detailed && n.Island != nil {
			label = fmt.Sprintf("%s\n%s, %d modules",
				n.Name, n.Island.Group().Axis, len(n.Island.Modules()))
		}
		return []string{fmt.Sprintf("label=%q", label), `peripheries=2`, `fillcolor="#e8f0fe"`}
	case hb.KindContour:
		label = fmt.Sprintf("%d..%d @ %d", n.X1, n.X2, n.Y)
		return []string{fmt.Sprintf("label=%q", label),
			`style="rounded,filled,dashed"`, `fillcolor=lightgrey`, `fontsize=10`}
	}
	return []string{fmt.Sprintf("label=%q", label)}
}

// GraphSVG renders a DOT graph to SVG using Graphviz. The bytes are ready
// for display or further conversion with [ToPDF] or [ToPNG].
func GraphSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// GraphPNG renders a DOT graph to PNG in-process.
func GraphPNG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the graphviz svg tag so the viewBox starts at the
// origin and pixel size matches the box.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
