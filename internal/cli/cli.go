// Package cli implements the placer command-line interface.
//
// This package provides commands for solving analog block placements,
// visualizing placements and their tree topology, serving results over
// HTTP, and managing the result cache. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - place: Solve a placement and write the output file
//   - visualize: Render a placement as SVG and its tree as DOT/PNG
//   - serve: Expose the solver over HTTP
//   - cache: Manage the placement cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/jeannie068/analogplace/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeannie068/analogplace/pkg/buildinfo"
	"github.com/jeannie068/analogplace/pkg/cache"
	"github.com/jeannie068/analogplace/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "placer"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Placer solves analog block placements with symmetry constraints",
		Long:         `Placer packs analog circuit modules into a minimum-area floorplan while keeping symmetry groups mirrored across their axes. Placements are solved with a hierarchical tree representation and simulated annealing.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.placeCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *Config, noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg != nil && cfg.Cache.Namespace != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Namespace+":")
	}
	return pipeline.NewRunner(store, keyer, c.Logger), nil
}

// newCache selects the cache backend: the --no-cache flag wins, then the
// config file's backend, then the default file cache under XDG paths.
func newCache(ctx context.Context, cfg *Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if cfg != nil {
		switch cfg.Cache.Backend {
		case "null":
			return cache.NewNullCache(), nil
		case "redis":
			return cache.NewRedisCache(ctx, cache.RedisOptions{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
			})
		case "mongo":
			return cache.NewMongoCache(ctx, cache.MongoOptions{
				URI:      cfg.Cache.MongoURI,
				Database: cfg.Cache.MongoDatabase,
			})
		case "file":
			if cfg.Cache.Dir != "" {
				return cache.NewFileCache(cfg.Cache.Dir)
			}
		}
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/placer/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
