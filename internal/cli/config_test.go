package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/pipeline"
	"github.com/jeannie068/analogplace/pkg/place/anneal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "placer.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config for empty path, got %+v", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestLoadConfigParses(t *testing.T) {
	path := writeConfig(t, `
[solver]
area_ratio = 0.8
seed = 7
quality = "optimal"
timeout = "90s"
initial_temp = 1500.0
cooling_rate = 0.9
moves_per_temp = 300

[probabilities]
rotate = 0.4
move = 0.3
swap = 0.2
change_representative = 0.05
convert_symmetry = 0.05

[render]
scale = 12
axes = true
labels = true

[cache]
backend = "redis"
redis_addr = "localhost:6379"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Solver.AreaRatio != 0.8 {
		t.Errorf("AreaRatio = %g, want 0.8", cfg.Solver.AreaRatio)
	}
	if cfg.Solver.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Solver.Seed)
	}
	if cfg.Solver.Quality != "optimal" {
		t.Errorf("Quality = %q, want optimal", cfg.Solver.Quality)
	}
	if time.Duration(cfg.Solver.Timeout) != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", time.Duration(cfg.Solver.Timeout))
	}
	if cfg.Probabilities.Rotate != 0.4 {
		t.Errorf("Rotate = %g, want 0.4", cfg.Probabilities.Rotate)
	}
	if cfg.Render.Scale != 12 || !cfg.Render.Axes || !cfg.Render.Labels {
		t.Errorf("render config = %+v", cfg.Render)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "[cache]\nbackend = \"memcached\"\n"},
		{"malformed toml", "[solver\narea_ratio = "},
		{"bad duration", "[solver]\ntimeout = \"soon\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestConfigApply(t *testing.T) {
	cfg := &Config{
		Solver: SolverConfig{
			AreaRatio:   0.5,
			Seed:        99,
			Quality:     "fast",
			Timeout:     duration(time.Minute),
			InitialTemp: 800,
		},
		Probabilities: ProbabilitiesConfig{
			Rotate: 0.5, Move: 0.2, Swap: 0.2,
			ChangeRepresentative: 0.05, ConvertSymmetry: 0.05,
		},
		Render: RenderConfig{Scale: 20, Axes: true},
	}

	opts := pipeline.Options{Seed: 1, Quality: "balanced"}
	cfg.Apply(&opts)

	if opts.Seed != 1 {
		t.Errorf("flag-set seed overwritten: %d", opts.Seed)
	}
	if opts.Quality != "balanced" {
		t.Errorf("flag-set quality overwritten: %q", opts.Quality)
	}
	if opts.AreaRatio != 0.5 {
		t.Errorf("AreaRatio = %g, want 0.5 from config", opts.AreaRatio)
	}
	if opts.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m from config", opts.Timeout)
	}
	if opts.InitialTemp != 800 {
		t.Errorf("InitialTemp = %g, want 800 from config", opts.InitialTemp)
	}
	if opts.Scale != 20 || !opts.ShowAxes {
		t.Errorf("render options not applied: scale=%d axes=%v", opts.Scale, opts.ShowAxes)
	}
	want := anneal.Probabilities{
		Rotate: 0.5, Move: 0.2, Swap: 0.2,
		ChangeRepresentative: 0.05, ConvertSymmetry: 0.05,
	}
	if opts.Probabilities != want {
		t.Errorf("Probabilities = %+v, want %+v", opts.Probabilities, want)
	}
}

func TestConfigApplyNil(t *testing.T) {
	var cfg *Config
	opts := pipeline.Options{Seed: 5}
	cfg.Apply(&opts)
	if opts.Seed != 5 {
		t.Errorf("nil config mutated options: %+v", opts)
	}
}
