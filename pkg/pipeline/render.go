package pipeline

import (
	"encoding/json"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/render"
)

// pngScale is the resolution multiplier for PNG export.
const pngScale = 2.0

// RenderArtifacts generates output artifacts in the requested formats.
// The SVG is rendered once; PNG and PDF are converted from it, so a request
// for all three pays for a single placement render.
func RenderArtifacts(p *netlist.Placement, groups []*netlist.SymmetryGroup, opts Options) (map[string][]byte, error) {
	opts.SetRenderDefaults()
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}

	svgOpts := []render.SVGOption{
		render.WithScale(opts.Scale),
		render.WithAxes(opts.ShowAxes),
		render.WithLabels(opts.Labels),
	}

	var svg []byte
	renderSVG := func() []byte {
		if svg == nil {
			svg = render.SVG(p, groups, svgOpts...)
		}
		return svg
	}

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = renderSVG()
		case FormatPNG:
			data, err = render.ToPNG(renderSVG(), pngScale)
		case FormatPDF:
			data, err = render.ToPDF(renderSVG())
		case FormatJSON:
			data, err = json.MarshalIndent(p, "", "  ")
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig,
				"unsupported format: %s", format)
		}

		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
