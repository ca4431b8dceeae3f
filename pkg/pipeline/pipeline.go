// Package pipeline provides the parse → solve → write flow shared by every
// entry point.
//
// This package implements the complete placement pipeline that can be used
// by the CLI and the HTTP server. By centralizing this logic, both entry
// points validate options, cache results, and report statistics the same
// way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: Read the netlist text format into modules and symmetry groups
//  2. Solve: Pack an HB*-tree and improve it by simulated annealing
//  3. Write: Normalize the placement and emit the output file plus any
//     requested artifacts (SVG, PNG, PDF, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:     "circuit.txt",
//	    Output:    "placement.out",
//	    AreaRatio: 1.0,
//	    Seed:      42,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Placement.Area)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeannie068/analogplace/pkg/cache"
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/anneal"
)

// Default values shared by CLI and server.
const (
	// DefaultAreaRatio puts the whole cost weight on area. The input format
	// carries no net connectivity, so this is almost always what you want.
	DefaultAreaRatio = 1.0

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = int64(42)

	// DefaultTimeout bounds one solve; the emergency margin comes on top.
	DefaultTimeout = 240 * time.Second

	// DefaultScale is the default SVG pixels-per-unit.
	DefaultScale = 10
)

// Quality presets trade runtime for placement area.
const (
	QualityFast     = "fast"
	QualityBalanced = "balanced"
	QualityOptimal  = "optimal"
)

// DefaultQuality is the default annealing preset.
const DefaultQuality = QualityBalanced

// ValidQualities is the set of supported presets.
var ValidQualities = map[string]bool{
	QualityFast:     true,
	QualityBalanced: true,
	QualityOptimal:  true,
}

// Format constants for artifact formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// Options contains all configuration for the placement pipeline.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Parse options
	Input string `json:"input"`

	// Solve options
	AreaRatio   float64       `json:"area_ratio,omitempty"`
	Seed        int64         `json:"seed,omitempty"`
	Quality     string        `json:"quality,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	InitialTemp float64       `json:"initial_temp,omitempty"`
	FinalTemp   float64       `json:"final_temp,omitempty"`
	CoolingRate float64       `json:"cooling_rate,omitempty"`
	MovesPerT   int           `json:"moves_per_t,omitempty"`
	Refresh     bool          `json:"refresh,omitempty"`

	// Probabilities overrides the initial perturbation distribution.
	// Zero means the solver default.
	Probabilities anneal.Probabilities `json:"probabilities,omitempty"`

	// Write options
	Output   string   `json:"output,omitempty"`
	Formats  []string `json:"formats,omitempty"`
	Scale    int      `json:"scale,omitempty"`
	ShowAxes bool     `json:"show_axes,omitempty"`
	Labels   bool     `json:"labels,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Netlist is the parsed input.
	Netlist *netlist.Netlist

	// InputHash is the content hash of the canonical input.
	InputHash string

	// Placement is the solved, normalized layout.
	Placement *netlist.Placement

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Anneal carries the solver's run statistics; zero on a cache hit.
	Anneal anneal.Stats

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ModuleCount int
	GroupCount  int
	ParseTime   time.Duration
	SolveTime   time.Duration
	RenderTime  time.Duration
	WriteTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SolveHit  bool // Whether the placement came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQuality checks that a quality preset is valid.
func ValidateQuality(quality string) error {
	if !ValidQualities[quality] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid quality: %q (must be one of: fast, balanced, optimal)", quality)
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "input is required")
	}
	if err := o.ValidateForSolve(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForSolve validates and sets defaults for the solve stage.
func (o *Options) ValidateForSolve() error {
	o.SetSolveDefaults()
	if o.AreaRatio < 0 || o.AreaRatio > 1 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"area ratio %g outside [0, 1]", o.AreaRatio)
	}
	return ValidateQuality(o.Quality)
}

// SetSolveDefaults sets default values for the solve stage.
func (o *Options) SetSolveDefaults() {
	if o.AreaRatio == 0 {
		o.AreaRatio = DefaultAreaRatio
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Quality == "" {
		o.Quality = DefaultQuality
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for artifact rendering.
func (o *Options) SetRenderDefaults() {
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// AnnealParams maps the options onto solver parameters: the quality preset
// first, then explicit overrides on top.
func (o *Options) AnnealParams() anneal.Params {
	p := anneal.DefaultParams()
	switch o.Quality {
	case QualityFast:
		p.InitialTemperature = 500
		p.MovesPerTemperature = 100
		p.CoolingRate = 0.8
	case QualityOptimal:
		p.InitialTemperature = 2000
		p.MovesPerTemperature = 500
		p.CoolingRate = 0.95
	}
	if o.InitialTemp > 0 {
		p.InitialTemperature = o.InitialTemp
	}
	if o.FinalTemp > 0 {
		p.FinalTemperature = o.FinalTemp
	}
	if o.CoolingRate > 0 {
		p.CoolingRate = o.CoolingRate
	}
	if o.MovesPerT > 0 {
		p.MovesPerTemperature = o.MovesPerT
	}
	if o.Probabilities != (anneal.Probabilities{}) {
		p.Probabilities = o.Probabilities
	}
	p.AreaWeight = o.AreaRatio
	p.WirelengthWeight = 1 - o.AreaRatio
	p.Seed = o.Seed
	p.Timeout = o.Timeout
	return p
}

// PlacementKeyOpts returns cache key options for the solve stage.
func (o *Options) PlacementKeyOpts() cache.PlacementKeyOpts {
	p := o.AnnealParams()
	return cache.PlacementKeyOpts{
		AreaRatio:   o.AreaRatio,
		Seed:        o.Seed,
		Quality:     o.Quality,
		InitialTemp: p.InitialTemperature,
		FinalTemp:   p.FinalTemperature,
		CoolingRate: p.CoolingRate,
		MovesPerT:   p.MovesPerTemperature,
		Probabilities: [5]float64{
			p.Probabilities.Rotate,
			p.Probabilities.Move,
			p.Probabilities.Swap,
			p.Probabilities.ChangeRepresentative,
			p.Probabilities.ConvertSymmetry,
		},
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Scale:    o.Scale,
		ShowAxes: o.ShowAxes,
		Labels:   o.Labels,
	}
}
