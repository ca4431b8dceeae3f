package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeannie068/analogplace/pkg/cache"
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/place/anneal"
)

const testInput = `# small amplifier stage
M1 4 3
M2 4 3
C1 6 2
F1 5 5
F2 3 3

SymGroup SG1 vertical
SymPair M1 M2
SymSelf C1
`

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "circuit.txt")
	if err := os.WriteFile(path, []byte(testInput), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

// quickOptions keeps solve time in the milliseconds for tests.
func quickOptions(input string) Options {
	return Options{
		Input:       input,
		Seed:        42,
		InitialTemp: 100,
		FinalTemp:   1,
		CoolingRate: 0.7,
		MovesPerT:   25,
		Timeout:     30 * time.Second,
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Input: "in.txt"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.AreaRatio != DefaultAreaRatio {
		t.Errorf("AreaRatio = %g, want %g", opts.AreaRatio, DefaultAreaRatio)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed = %d, want %d", opts.Seed, DefaultSeed)
	}
	if opts.Quality != DefaultQuality {
		t.Errorf("Quality = %q, want %q", opts.Quality, DefaultQuality)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale = %d, want %d", opts.Scale, DefaultScale)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}

	// Idempotent: a second call must not re-validate mutated fields.
	opts.Quality = "nonsense"
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call not idempotent: %v", err)
	}
}

func TestValidateRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing input", Options{}},
		{"area ratio above one", Options{Input: "in.txt", AreaRatio: 1.5}},
		{"area ratio negative", Options{Input: "in.txt", AreaRatio: -0.1}},
		{"unknown quality", Options{Input: "in.txt", Quality: "ludicrous"}},
		{"unknown format", Options{Input: "in.txt", Formats: []string{"bmp"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestAnnealParamsPresets(t *testing.T) {
	base := Options{Input: "in.txt", Quality: QualityFast}
	base.SetSolveDefaults()
	fast := base.AnnealParams()
	if fast.InitialTemperature != 500 || fast.MovesPerTemperature != 100 {
		t.Errorf("fast preset = T0 %g, moves %d", fast.InitialTemperature, fast.MovesPerTemperature)
	}

	opt := Options{Input: "in.txt", Quality: QualityOptimal}
	opt.SetSolveDefaults()
	optimal := opt.AnnealParams()
	if optimal.InitialTemperature != 2000 || optimal.MovesPerTemperature != 500 {
		t.Errorf("optimal preset = T0 %g, moves %d", optimal.InitialTemperature, optimal.MovesPerTemperature)
	}

	// Explicit overrides win over the preset.
	over := Options{Input: "in.txt", Quality: QualityFast, InitialTemp: 1234, MovesPerT: 7}
	over.SetSolveDefaults()
	p := over.AnnealParams()
	if p.InitialTemperature != 1234 || p.MovesPerTemperature != 7 {
		t.Errorf("overrides lost: T0 %g, moves %d", p.InitialTemperature, p.MovesPerTemperature)
	}

	// The cost weights split by area ratio.
	split := Options{Input: "in.txt", AreaRatio: 0.6}
	split.SetSolveDefaults()
	sp := split.AnnealParams()
	if sp.AreaWeight != 0.6 || sp.WirelengthWeight != 0.4 {
		t.Errorf("weights = %g/%g, want 0.6/0.4", sp.AreaWeight, sp.WirelengthWeight)
	}
}

func TestPlacementKeyOptsFollowPreset(t *testing.T) {
	fast := Options{Input: "in.txt", Quality: QualityFast}
	fast.SetSolveDefaults()
	opt := Options{Input: "in.txt", Quality: QualityOptimal}
	opt.SetSolveDefaults()

	keyer := cache.NewDefaultKeyer()
	kFast := keyer.PlacementKey("hash", fast.PlacementKeyOpts())
	kOpt := keyer.PlacementKey("hash", opt.PlacementKeyOpts())
	if kFast == kOpt {
		t.Error("different presets produced the same cache key")
	}
}

func TestParseReturnsStableHash(t *testing.T) {
	path := writeInput(t)
	opts := Options{Input: path}

	nl, hash1, err := Parse(context.Background(), opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(nl.Modules) != 5 {
		t.Errorf("module count = %d, want 5", len(nl.Modules))
	}
	if len(nl.Groups) != 1 {
		t.Errorf("group count = %d, want 1", len(nl.Groups))
	}

	_, hash2, err := Parse(context.Background(), opts)
	if err != nil {
		t.Fatalf("Parse again: %v", err)
	}
	if hash1 != hash2 {
		t.Errorf("hash unstable: %s vs %s", hash1, hash2)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, _, err := Parse(context.Background(), Options{Input: "does/not/exist.txt"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSolveProducesLegalPlacement(t *testing.T) {
	path := writeInput(t)
	nl, _, err := Parse(context.Background(), Options{Input: path})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	p, stats, err := Solve(context.Background(), nl, quickOptions(path))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if p.HasOverlaps() {
		t.Error("placement has overlaps")
	}
	if p.Area <= 0 {
		t.Errorf("area = %d, want positive", p.Area)
	}
	if len(p.Modules) != len(nl.Modules) {
		t.Errorf("placed %d modules, want %d", len(p.Modules), len(nl.Modules))
	}
	if stats.TotalIterations == 0 {
		t.Error("no iterations recorded")
	}

	// Normalized: something touches each axis.
	minX, minY := 1<<30, 1<<30
	for _, m := range p.Modules {
		if m.X < minX {
			minX = m.X
		}
		if m.Y < minY {
			minY = m.Y
		}
	}
	if minX != 0 || minY != 0 {
		t.Errorf("placement not normalized: min (%d,%d)", minX, minY)
	}
}

func TestRunnerSolveCaching(t *testing.T) {
	path := writeInput(t)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()

	ctx := context.Background()
	opts := quickOptions(path)
	nl, inputHash, err := Parse(ctx, opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	p1, stats1, hit1, err := r.SolveWithCacheInfo(ctx, nl, inputHash, opts)
	if err != nil {
		t.Fatalf("first solve: %v", err)
	}
	if hit1 {
		t.Error("first solve reported a cache hit")
	}
	if stats1.TotalIterations == 0 {
		t.Error("first solve recorded no iterations")
	}

	p2, stats2, hit2, err := r.SolveWithCacheInfo(ctx, nl, inputHash, opts)
	if err != nil {
		t.Fatalf("second solve: %v", err)
	}
	if !hit2 {
		t.Error("second solve missed the cache")
	}
	if stats2.TotalIterations != 0 {
		t.Error("cache hit carried anneal stats")
	}
	if p1.Area != p2.Area {
		t.Errorf("cached area %d differs from solved area %d", p2.Area, p1.Area)
	}
	for name, m := range p1.Modules {
		got, ok := p2.Modules[name]
		if !ok {
			t.Fatalf("cached placement missing %s", name)
		}
		if got.X != m.X || got.Y != m.Y || got.Rotated != m.Rotated {
			t.Errorf("%s: cached (%d,%d,%v) vs solved (%d,%d,%v)",
				name, got.X, got.Y, got.Rotated, m.X, m.Y, m.Rotated)
		}
	}

	// Refresh bypasses the cache.
	refresh := opts
	refresh.Refresh = true
	_, _, hit3, err := r.SolveWithCacheInfo(ctx, nl, inputHash, refresh)
	if err != nil {
		t.Fatalf("refresh solve: %v", err)
	}
	if hit3 {
		t.Error("refresh solve reported a cache hit")
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	path := writeInput(t)
	out := filepath.Join(t.TempDir(), "placement.out")

	opts := quickOptions(path)
	opts.Output = out
	opts.Formats = []string{FormatSVG, FormatJSON}

	r := NewRunner(nil, nil, nil)
	defer r.Close()

	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Stats.ModuleCount != 5 || result.Stats.GroupCount != 1 {
		t.Errorf("stats = %d modules, %d groups", result.Stats.ModuleCount, result.Stats.GroupCount)
	}
	if result.InputHash == "" {
		t.Error("input hash missing")
	}
	if result.Placement == nil || result.Placement.HasOverlaps() {
		t.Fatal("bad placement")
	}
	if len(result.Artifacts[FormatSVG]) == 0 {
		t.Error("svg artifact missing")
	}
	if len(result.Artifacts[FormatJSON]) == 0 {
		t.Error("json artifact missing")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) == 0 {
		t.Error("output file is empty")
	}
}

func TestRenderWithCacheInfoRoundTrip(t *testing.T) {
	path := writeInput(t)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()

	ctx := context.Background()
	opts := quickOptions(path)
	opts.Formats = []string{FormatSVG}

	nl, inputHash, err := Parse(ctx, opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p, _, err := r.Solve(ctx, nl, inputHash, opts)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	first, hit, err := r.RenderWithCacheInfo(ctx, p, nl.Groups, opts)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	if hit {
		t.Error("first render reported a cache hit")
	}

	second, hit, err := r.RenderWithCacheInfo(ctx, p, nl.Groups, opts)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !hit {
		t.Error("second render missed the cache")
	}
	if string(first[FormatSVG]) != string(second[FormatSVG]) {
		t.Error("cached artifact differs from rendered artifact")
	}
}

func TestProbabilitiesChangeCacheKey(t *testing.T) {
	base := Options{Quality: QualityBalanced}
	custom := Options{
		Quality: QualityBalanced,
		Probabilities: anneal.Probabilities{
			Rotate: 0.5, Move: 0.2, Swap: 0.2,
			ChangeRepresentative: 0.05, ConvertSymmetry: 0.05,
		},
	}

	if custom.AnnealParams().Probabilities != custom.Probabilities {
		t.Error("explicit probabilities not passed to solver params")
	}

	keyer := cache.NewDefaultKeyer()
	a := keyer.PlacementKey("hash", base.PlacementKeyOpts())
	b := keyer.PlacementKey("hash", custom.PlacementKeyOpts())
	if a == b {
		t.Error("different probability distributions produced the same key")
	}
}

func TestUnmarshalPlacementRejectsGarbage(t *testing.T) {
	if _, err := unmarshalPlacement([]byte("not json")); err == nil {
		t.Error("garbage accepted")
	}
	if _, err := unmarshalPlacement([]byte(`{"modules":{},"area":0}`)); err == nil {
		t.Error("empty placement accepted")
	}
}
