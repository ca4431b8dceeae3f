// Package pkg provides the core libraries for analog block placement.
//
// # Overview
//
// Placer packs rectangular circuit modules into a minimum-area floorplan
// while keeping symmetry groups mirrored across their axes. The pkg
// directory is organized into four main areas:
//
//  1. [netlist] - Input/output formats (module declarations, symmetry
//     groups, placement files)
//  2. [place] - Placement engine (contour packing, symmetry islands,
//     hierarchical trees, simulated annealing)
//  3. [render] - Visualization (placement SVG, tree DOT, PDF/PNG export)
//  4. [pipeline] - Orchestration (parse → solve → write) used by CLI and
//     server
//
// # Architecture
//
// The typical data flow:
//
//	Netlist text
//	     ↓
//	[netlist] package (modules + symmetry groups)
//	     ↓
//	[place/hb] package (hierarchical tree + packing)
//	     ↓
//	[place/anneal] package (simulated annealing)
//	     ↓
//	Placement file / SVG / PNG / PDF / JSON output
//
// # Quick Start
//
// Solve a placement through the pipeline:
//
//	import "github.com/jeannie068/analogplace/pkg/pipeline"
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	defer runner.Close()
//
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:  "circuit.txt",
//	    Output: "circuit.out",
//	})
//
// Or drive the solver directly:
//
//	nl, _ := netlist.ParseFile("circuit.txt")
//	tree, _ := hb.New(nl)
//	annealer := anneal.New(anneal.DefaultParams())
//	best, stats, _ := annealer.Run(ctx, tree)
//	p := best.Placement()
//
// # Main Packages
//
// [netlist] - Text-format parser and writer plus the Module, Netlist, and
// Placement types everything else shares.
//
// [place/contour] - Skyline structure that reports the height under a
// module's span and raises the skyline once the module is placed.
//
// [place/asf] - ASF-B*-trees: the representation of one symmetry island,
// packing representatives and deriving their mirrored counterparts.
//
// [place/hb] - HB*-trees: the hierarchy tree whose leaves are free modules
// and whose hierarchy nodes embed whole symmetry islands.
//
// [place/anneal] - Simulated annealing over HB*-trees with an adaptive
// five-operator move distribution and a wall-clock watchdog.
//
// [render] - Placement SVG, tree topology DOT via graphviz, and PDF/PNG
// conversion.
//
// ## Infrastructure
//
// [pipeline] - Complete solve pipeline (parse → solve → write) used by CLI
// and server. Ensures consistent behavior across all entry points.
//
// [cache] - Content-addressed result caching. FileCache for the CLI,
// RedisCache and MongoCache for server deployments, NullCache to disable.
//
// [observability] - Hook interfaces for solver and cache instrumentation.
//
// [errors] - Coded errors shared across the module.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/place/hb/...     # Specific package
//
// [netlist]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/netlist
// [place]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/place
// [place/contour]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/place/contour
// [place/asf]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/place/asf
// [place/hb]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/place/hb
// [place/anneal]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/place/anneal
// [render]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/cache
// [observability]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/observability
// [errors]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/jeannie068/analogplace/pkg/buildinfo
package pkg
