package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeannie068/analogplace/pkg/cache"
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/observability"
	"github.com/jeannie068/analogplace/pkg/place/anneal"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → solve → write pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Parse
	parseStart := time.Now()
	nl, inputHash, err := Parse(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Netlist = nl
	result.InputHash = inputHash
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.ModuleCount = len(nl.Modules)
	result.Stats.GroupCount = len(nl.Groups)

	r.Logger.Info("parsed netlist",
		"modules", len(nl.Modules),
		"groups", len(nl.Groups),
		"duration", result.Stats.ParseTime)

	// Stage 2: Solve
	solveStart := time.Now()
	p, stats, solveHit, err := r.SolveWithCacheInfo(ctx, nl, inputHash, opts)
	if err != nil {
		return nil, err
	}
	result.Placement = p
	result.Anneal = stats
	result.Stats.SolveTime = time.Since(solveStart)
	result.CacheInfo.SolveHit = solveHit

	r.Logger.Info("solved placement",
		"area", p.Area,
		"cached", solveHit,
		"duration", result.Stats.SolveTime)

	// Stage 3: Write
	if opts.Output != "" {
		writeStart := time.Now()
		if err := r.writePlacement(ctx, opts.Output, p); err != nil {
			return nil, err
		}
		result.Stats.WriteTime = time.Since(writeStart)

		r.Logger.Info("wrote placement",
			"path", opts.Output,
			"duration", result.Stats.WriteTime)
	}

	// Stage 4: Render artifacts
	if len(opts.Formats) > 0 {
		renderStart := time.Now()
		artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, p, nl.Groups, opts)
		if err != nil {
			return nil, err
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(renderStart)
		result.CacheInfo.RenderHit = renderHit

		r.Logger.Info("rendered artifacts",
			"formats", opts.Formats,
			"cached", renderHit,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// SolveWithCacheInfo solves with caching and returns cache hit info.
// The anneal stats are zero on a cache hit.
func (r *Runner) SolveWithCacheInfo(ctx context.Context, nl *netlist.Netlist, inputHash string, opts Options) (*netlist.Placement, anneal.Stats, bool, error) {
	if err := opts.ValidateForSolve(); err != nil {
		return nil, anneal.Stats{}, false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.PlacementKey(inputHash, opts.PlacementKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if p, err := unmarshalPlacement(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "placement")
				return p, anneal.Stats{}, true, nil
			}
			// Corrupt entry; fall through to recompute.
		}
		observability.Cache().OnCacheMiss(ctx, "placement")
	}

	p, stats, err := Solve(ctx, nl, opts)
	if err != nil {
		return nil, stats, false, err
	}

	// Interrupted solves may be far from converged; don't pin them in
	// the cache.
	if !stats.TimedOut {
		if data, err := json.Marshal(p); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLPlacement)
			observability.Cache().OnCacheSet(ctx, "placement", len(data))
		}
	}

	return p, stats, false, nil
}

// Solve is a convenience wrapper that calls SolveWithCacheInfo and discards the cache hit info.
func (r *Runner) Solve(ctx context.Context, nl *netlist.Netlist, inputHash string, opts Options) (*netlist.Placement, anneal.Stats, error) {
	p, stats, _, err := r.SolveWithCacheInfo(ctx, nl, inputHash, opts)
	return p, stats, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, p *netlist.Placement, groups []*netlist.SymmetryGroup, opts Options) (map[string][]byte, bool, error) {
	opts.SetRenderDefaults()
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	placementData, err := json.Marshal(p)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err,
			"serialize placement for cache key")
	}
	placementHash := cache.Hash(placementData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(placementHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	rendered, err := RenderArtifacts(p, groups, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(placementHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, p *netlist.Placement, groups []*netlist.SymmetryGroup, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, p, groups, opts)
	return artifacts, err
}

// writePlacement writes the placement file with write hooks.
func (r *Runner) writePlacement(ctx context.Context, path string, p *netlist.Placement) error {
	hooks := observability.Solver()
	hooks.OnWriteStart(ctx, path)
	start := time.Now()

	err := netlist.WriteFile(path, p)
	hooks.OnWriteComplete(ctx, path, p.Area, time.Since(start), err)
	return err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// unmarshalPlacement decodes a cached placement and sanity checks it.
func unmarshalPlacement(data []byte) (*netlist.Placement, error) {
	var p netlist.Placement
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode placement")
	}
	if len(p.Modules) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "cached placement is empty")
	}
	return &p, nil
}
