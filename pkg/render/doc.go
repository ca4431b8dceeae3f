// Package render turns solved placements into visual outputs.
//
// # Overview
//
// Two renderers live here:
//
//   - Placement SVG: every module drawn to scale as a rectangle, symmetry
//     groups sharing a color, with optional axes and labels.
//   - Tree DOT: the HB*-tree topology as a Graphviz digraph, rendered to
//     SVG in-process via goccy/go-graphviz.
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG to other formats using the external
// rsvg-convert tool (from librsvg):
//
//	svg := render.SVG(placement, groups)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
package render
