package pipeline

import (
	"context"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/anneal"
	"github.com/jeannie068/analogplace/pkg/place/hb"
)

// Solve packs the netlist into an HB*-tree and improves it by simulated
// annealing. The returned placement is normalized so the bottom-left corner
// of the bounding box sits at the origin.
//
// A timeout or context cancellation is not an error: the best placement
// found so far is returned and the stats record the interruption.
func Solve(ctx context.Context, nl *netlist.Netlist, opts Options) (*netlist.Placement, anneal.Stats, error) {
	if err := opts.ValidateForSolve(); err != nil {
		return nil, anneal.Stats{}, err
	}

	tree, err := hb.New(nl)
	if err != nil {
		return nil, anneal.Stats{}, err
	}

	best, stats, err := anneal.New(opts.AnnealParams()).Run(ctx, tree)
	if err != nil {
		return nil, stats, err
	}

	p := best.Placement()
	p.Normalize()
	if p.HasOverlaps() {
		return nil, stats, errors.New(errors.ErrCodeOverlapDetected,
			"solver produced overlapping modules")
	}
	return p, stats, nil
}
