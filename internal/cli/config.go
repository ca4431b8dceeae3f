package cli

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/pipeline"
	"github.com/jeannie068/analogplace/pkg/place/anneal"
)

// Config is the TOML configuration file. All sections are optional;
// command-line flags override anything set here.
//
// Example:
//
//	[solver]
//	area_ratio = 1.0
//	seed = 7
//	quality = "optimal"
//	timeout = "4m"
//	initial_temp = 1500.0
//	cooling_rate = 0.9
//	moves_per_temp = 300
//
//	[probabilities]
//	rotate = 0.3
//	move = 0.3
//	swap = 0.3
//	change_representative = 0.05
//	convert_symmetry = 0.05
//
//	[render]
//	scale = 12
//	axes = true
//	labels = true
//
//	[cache]
//	backend = "redis"        # file (default), redis, mongo, null
//	redis_addr = "localhost:6379"
//	namespace = "ci"         # optional cache key prefix
type Config struct {
	Solver        SolverConfig        `toml:"solver"`
	Probabilities ProbabilitiesConfig `toml:"probabilities"`
	Render        RenderConfig        `toml:"render"`
	Cache         CacheConfig         `toml:"cache"`
}

// SolverConfig holds annealing parameters.
type SolverConfig struct {
	AreaRatio    float64  `toml:"area_ratio"`
	Seed         int64    `toml:"seed"`
	Quality      string   `toml:"quality"`
	Timeout      duration `toml:"timeout"`
	InitialTemp  float64  `toml:"initial_temp"`
	FinalTemp    float64  `toml:"final_temp"`
	CoolingRate  float64  `toml:"cooling_rate"`
	MovesPerTemp int      `toml:"moves_per_temp"`
}

// ProbabilitiesConfig holds the initial perturbation distribution.
type ProbabilitiesConfig struct {
	Rotate               float64 `toml:"rotate"`
	Move                 float64 `toml:"move"`
	Swap                 float64 `toml:"swap"`
	ChangeRepresentative float64 `toml:"change_representative"`
	ConvertSymmetry      float64 `toml:"convert_symmetry"`
}

// RenderConfig holds artifact rendering preferences.
type RenderConfig struct {
	Scale  int  `toml:"scale"`
	Axes   bool `toml:"axes"`
	Labels bool `toml:"labels"`
}

// CacheConfig selects the cache backend. Namespace prefixes all cache
// keys, which keeps deployments apart when they share a Redis or Mongo
// instance.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Namespace     string `toml:"namespace"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// duration lets TOML carry values like "30s" or "4m".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// validBackends is the set of supported cache backends.
var validBackends = map[string]bool{
	"": true, "file": true, "redis": true, "mongo": true, "null": true,
}

// LoadConfig reads and validates a TOML config file. An empty path returns
// a nil config, which the callers treat as all defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if !validBackends[cfg.Cache.Backend] {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"unknown cache backend: %q (must be file, redis, mongo, or null)", cfg.Cache.Backend)
	}
	return &cfg, nil
}

// Apply copies config file values onto pipeline options, but only where the
// option is still zero, so flags set by the user always win.
func (cfg *Config) Apply(opts *pipeline.Options) {
	if cfg == nil {
		return
	}
	s := cfg.Solver
	if opts.AreaRatio == 0 && s.AreaRatio != 0 {
		opts.AreaRatio = s.AreaRatio
	}
	if opts.Seed == 0 && s.Seed != 0 {
		opts.Seed = s.Seed
	}
	if opts.Quality == "" && s.Quality != "" {
		opts.Quality = s.Quality
	}
	if opts.Timeout == 0 && s.Timeout != 0 {
		opts.Timeout = time.Duration(s.Timeout)
	}
	if opts.InitialTemp == 0 && s.InitialTemp != 0 {
		opts.InitialTemp = s.InitialTemp
	}
	if opts.FinalTemp == 0 && s.FinalTemp != 0 {
		opts.FinalTemp = s.FinalTemp
	}
	if opts.CoolingRate == 0 && s.CoolingRate != 0 {
		opts.CoolingRate = s.CoolingRate
	}
	if opts.MovesPerT == 0 && s.MovesPerTemp != 0 {
		opts.MovesPerT = s.MovesPerTemp
	}

	if p := (cfg.Probabilities); p != (ProbabilitiesConfig{}) &&
		opts.Probabilities == (anneal.Probabilities{}) {
		opts.Probabilities = anneal.Probabilities{
			Rotate:               p.Rotate,
			Move:                 p.Move,
			Swap:                 p.Swap,
			ChangeRepresentative: p.ChangeRepresentative,
			ConvertSymmetry:      p.ConvertSymmetry,
		}
	}

	r := cfg.Render
	if opts.Scale == 0 && r.Scale != 0 {
		opts.Scale = r.Scale
	}
	if r.Axes {
		opts.ShowAxes = true
	}
	if r.Labels {
		opts.Labels = true
	}
}
