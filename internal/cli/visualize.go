package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/hb"
	"github.com/jeannie068/analogplace/pkg/render"
)

// visualizeCommand creates the visualize command for inspecting a netlist.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		output   string
		scale    int
		axes     bool
		labels   bool
		showTree bool
		dotOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "visualize <input>",
		Short: "Render a netlist's initial packing and tree topology",
		Long: `Render a netlist's initial packing and tree topology.

The visualize command parses a netlist, packs it once without annealing,
and renders the resulting floorplan as SVG. This shows the starting point
the solver improves from and is useful for checking that symmetry groups
are set up the way you intended.

With --tree, the hierarchical tree is additionally rendered as a PNG via
graphviz (or as raw DOT text with --dot). Module nodes carry their group
name, so mirrored pairs are easy to spot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runVisualize(args[0], output, scale, axes, labels, showTree, dotOnly)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default input with .svg extension)")
	cmd.Flags().IntVar(&scale, "scale", 10, "SVG pixels per unit")
	cmd.Flags().BoolVar(&axes, "axes", false, "draw coordinate axes")
	cmd.Flags().BoolVar(&labels, "labels", true, "draw module names")
	cmd.Flags().BoolVar(&showTree, "tree", false, "also render the tree topology as PNG")
	cmd.Flags().BoolVar(&dotOnly, "dot", false, "with --tree, write DOT text instead of PNG")

	return cmd
}

// runVisualize parses, packs, and renders the netlist.
func (c *CLI) runVisualize(input, output string, scale int, axes, labels, showTree, dotOnly bool) error {
	nl, err := netlist.ParseFile(input)
	if err != nil {
		return err
	}

	tree, err := hb.New(nl)
	if err != nil {
		return err
	}
	if err := tree.Pack(); err != nil {
		return fmt.Errorf("pack %s: %w", input, err)
	}

	p := tree.Placement()
	p.Normalize()

	if output == "" {
		output = replaceExt(input, ".svg")
	}

	svg := render.SVG(p, tree.Groups(),
		render.WithScale(scale),
		render.WithAxes(axes),
		render.WithLabels(labels))
	if err := os.WriteFile(output, svg, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Packed %d modules", len(p.Modules))
	printStats(len(p.Modules), len(tree.Groups()), false)
	printKeyValue("Area", fmt.Sprintf("%d", p.Area))
	printNewline()
	printFile(output)

	if showTree {
		treePath, err := writeTree(tree, output, dotOnly)
		if err != nil {
			return err
		}
		printFile(treePath)
	}
	return nil
}

// writeTree renders the tree topology next to the SVG output.
func writeTree(tree *hb.Tree, output string, dotOnly bool) (string, error) {
	dot := render.ToDOT(tree, render.WithDetail(true))
	if dotOnly {
		path := replaceExt(output, ".dot")
		if err := os.WriteFile(path, []byte(dot), 0o644); err != nil {
			return "", fmt.Errorf("write tree DOT: %w", err)
		}
		return path, nil
	}

	png, err := render.GraphPNG(dot)
	if err != nil {
		return "", fmt.Errorf("render tree: %w", err)
	}
	path := replaceExt(output, ".tree.png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write tree PNG: %w", err)
	}
	return path, nil
}
