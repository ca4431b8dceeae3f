package render

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jeannie068/analogplace/pkg/netlist"
)

// SVGOption configures placement rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	scale    int
	showAxes bool
	labels   bool
}

// WithScale sets how many pixels one placement unit spans (default 10).
func WithScale(s int) SVGOption {
	return func(r *svgRenderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithAxes toggles the coordinate axes along the left and bottom edges.
func WithAxes(on bool) SVGOption {
	return func(r *svgRenderer) { r.showAxes = on }
}

// WithLabels toggles the module name labels (default on).
func WithLabels(on bool) SVGOption {
	return func(r *svgRenderer) { r.labels = on }
}

const svgMargin = 20

// groupPalette colors symmetry islands; free modules stay grey.
var groupPalette = []string{
	"#7eb2dd", "#e8a87c", "#9ed9a0", "#d99ed4", "#dddb7e", "#8ce0dd",
}

const freeFill = "#d7d7d7"

// SVG renders a placement as a standalone SVG document. Modules of one
// symmetry group share a fill color; the placement's y axis points up, so
// rows are flipped into SVG screen coordinates.
func SVG(p *netlist.Placement, groups []*netlist.SymmetryGroup, opts ...SVGOption) []byte {
	r := svgRenderer{scale: 10, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	fill := make(map[string]string)
	for i, g := range groups {
		color := groupPalette[i%len(groupPalette)]
		for _, name := range g.Modules() {
			fill[name] = color
		}
	}

	maxX, maxY := 0, 0
	names := make([]string, 0, len(p.Modules))
	for name, m := range p.Modules {
		names = append(names, name)
		if x := m.X + m.Width(); x > maxX {
			maxX = x
		}
		if y := m.Y + m.Height(); y > maxY {
			maxY = y
		}
	}
	sort.Strings(names)

	width := maxX*r.scale + 2*svgMargin
	height := maxY*r.scale + 2*svgMargin

	var buf bytes.Buffer
	fmt.Fprintf(&buf,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		width, height, width, height)
	buf.WriteString(`  <rect width="100%" height="100%" fill="white"/>` + "\n")

	for _, name := range names {
		m := p.Modules[name]
		x := svgMargin + m.X*r.scale
		y := svgMargin + (maxY-m.Y-m.Height())*r.scale
		w := m.Width() * r.scale
		h := m.Height() * r.scale

		color, grouped := fill[name]
		if !grouped {
			color = freeFill
		}
		fmt.Fprintf(&buf,
			`  <rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="#333" stroke-width="1"/>`+"\n",
			x, y, w, h, color)

		if r.labels {
			fontSize := h / 3
			if fw := w / (len(name) + 1); fw < fontSize {
				fontSize = fw
			}
			if fontSize < 6 {
				fontSize = 6
			}
			fmt.Fprintf(&buf,
				`  <text x="%d" y="%d" font-family="monospace" font-size="%d" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
				x+w/2, y+h/2, fontSize, name)
		}
	}

	if r.showAxes {
		writeAxes(&buf, r.scale, maxX, maxY, height)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writeAxes(buf *bytes.Buffer, scale, maxX, maxY, height int) {
	origin := height - svgMargin
	fmt.Fprintf(buf,
		`  <line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#999" stroke-width="1"/>`+"\n",
		svgMargin, origin, svgMargin+maxX*scale, origin)
	fmt.Fprintf(buf,
		`  <line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#999" stroke-width="1"/>`+"\n",
		svgMargin, origin, svgMargin, origin-maxY*scale)

	step := axisStep(maxX)
	for x := 0; x <= maxX; x += step {
		fmt.Fprintf(buf,
			`  <text x="%d" y="%d" font-family="monospace" font-size="8" text-anchor="middle" fill="#666">%d</text>`+"\n",
			svgMargin+x*scale, origin+12, x)
	}
	step = axisStep(maxY)
	for y := 0; y <= maxY; y += step {
		fmt.Fprintf(buf,
			`  <text x="%d" y="%d" font-family="monospace" font-size="8" text-anchor="end" fill="#666">%d</text>`+"\n",
			svgMargin-4, origin-y*scale+3, y)
	}
}

// axisStep picks a tick spacing that keeps roughly ten ticks per axis.
func axisStep(extent int) int {
	step := 1
	for extent/step > 10 {
		step *= 10
	}
	if step > 1 && extent/step < 3 {
		step /= 2
	}
	return step
}
