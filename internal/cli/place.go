package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeannie068/analogplace/pkg/observability"
	"github.com/jeannie068/analogplace/pkg/pipeline"
)

// placeCommand creates the place command.
func (c *CLI) placeCommand() *cobra.Command {
	var (
		configPath string
		formatsStr string
		noCache    bool
		plain      bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "place <input> [output]",
		Short: "Solve a placement and write the output file",
		Long: `Solve a placement and write the output file.

The place command reads a netlist of modules and symmetry constraints,
packs them into a minimum-area floorplan with simulated annealing, and
writes the resulting coordinates. Results are cached locally, so solving
the same input with the same options again is instant.

Use --format to additionally render the placement as SVG, PNG, PDF, or
JSON next to the output file.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			if len(args) == 2 && opts.Output == "" {
				opts.Output = args[1]
			}
			opts.Formats = parseFormats(formatsStr)
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.Apply(&opts)
			if opts.Output == "" {
				opts.Output = replaceExt(opts.Input, ".out")
			}
			return c.runPlace(cmd.Context(), cfg, opts, noCache, plain)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default input with .out extension)")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML config file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results and re-solve")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable the interactive progress display")

	// Solver flags
	cmd.Flags().Float64Var(&opts.AreaRatio, "area-ratio", 0, "area weight in the cost function, 0..1 (default 1)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (default 42)")
	cmd.Flags().StringVar(&opts.Quality, "quality", "", "annealing preset: fast, balanced (default), optimal")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "solve time limit (default 4m)")
	cmd.Flags().Float64Var(&opts.InitialTemp, "initial-temp", 0, "initial temperature used when move sampling gives no estimate")
	cmd.Flags().Float64Var(&opts.FinalTemp, "final-temp", 0, "override the final temperature")
	cmd.Flags().Float64Var(&opts.CoolingRate, "cooling-rate", 0, "override the cooling rate")
	cmd.Flags().IntVar(&opts.MovesPerT, "moves", 0, "override the moves per temperature level")

	// Render flags
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "artifact format(s): svg, png, pdf, json (comma-separated)")
	cmd.Flags().IntVar(&opts.Scale, "scale", 0, "SVG pixels per unit (default 10)")
	cmd.Flags().BoolVar(&opts.ShowAxes, "axes", false, "draw coordinate axes on rendered artifacts")
	cmd.Flags().BoolVar(&opts.Labels, "labels", false, "draw module names on rendered artifacts")

	return cmd
}

// runPlace executes the full pipeline and reports the result.
func (c *CLI) runPlace(ctx context.Context, cfg *Config, opts pipeline.Options, noCache, plain bool) error {
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	var result *pipeline.Result
	switch {
	case !plain && isTerminal(os.Stderr):
		result, err = c.runPlaceTUI(ctx, runner, opts)
		if err != nil {
			printError("Placement failed")
			return err
		}
	case isTerminal(os.Stderr):
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Solving %s...", opts.Input))
		spinner.Start()
		result, err = runner.Execute(ctx, opts)
		if err != nil {
			spinner.StopWithError("Placement failed")
			return err
		}
		spinner.Stop()
	default:
		tracker := newProgress(c.Logger)
		result, err = runner.Execute(ctx, opts)
		if err != nil {
			return err
		}
		tracker.done(fmt.Sprintf("Solved %s", opts.Input))
	}

	written, err := writeArtifacts(result.Artifacts, opts)
	if err != nil {
		return err
	}
	c.printPlaceResult(result, opts, written)
	return nil
}

// runPlaceTUI runs the pipeline with a live annealing progress display.
// The solve runs in a goroutine and feeds the bubbletea model through
// solver hooks; the result is collected once the program exits.
func (c *CLI) runPlaceTUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewSolveModel(opts.Input, cancel), tea.WithOutput(os.Stderr))
	observability.SetSolverHooks(&teaSolverHooks{program: program})
	defer observability.Reset()

	var (
		result *pipeline.Result
		runErr error
	)
	go func() {
		result, runErr = runner.Execute(ctx, opts)
		program.Send(solveDoneMsg{err: runErr})
	}()

	if _, err := program.Run(); err != nil {
		return nil, err
	}
	return result, runErr
}

// printPlaceResult prints the solved placement summary.
func (c *CLI) printPlaceResult(result *pipeline.Result, opts pipeline.Options, written []string) {
	if result.Anneal.TimedOut {
		printWarning("Time limit reached, wrote the best placement found")
	}

	printSuccess("Placed %d modules", result.Stats.ModuleCount)
	printStats(result.Stats.ModuleCount, result.Stats.GroupCount, result.CacheInfo.SolveHit)
	printKeyValue("Area", fmt.Sprintf("%d", result.Placement.Area))
	if !result.CacheInfo.SolveHit {
		printKeyValue("Iterations", fmt.Sprintf("%d", result.Anneal.TotalIterations))
	}
	printKeyValue("Solve time", result.Stats.SolveTime.Round(time.Millisecond).String())

	printNewline()
	printFile(opts.Output)
	for _, path := range written {
		printFile(path)
	}
	printNewline()
	printNextStep("Inspect the tree topology", fmt.Sprintf("%s visualize %s --tree", appName, opts.Input))
}

// writeArtifacts writes rendered artifacts next to the output file and
// returns the paths written, in format order.
func writeArtifacts(artifacts map[string][]byte, opts pipeline.Options) ([]string, error) {
	var written []string
	for _, format := range opts.Formats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := replaceExt(opts.Output, "."+format)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s artifact: %w", format, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// replaceExt swaps the file extension of path for ext (which includes the dot).
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
