package pipeline

import (
	"context"
	"time"

	"github.com/jeannie068/analogplace/pkg/cache"
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/observability"
)

// Parse reads the input netlist and returns it together with the content
// hash used for cache keys. The hash covers the canonical form of the
// netlist, so whitespace or ordering differences in the file do not defeat
// the cache.
func Parse(ctx context.Context, opts Options) (*netlist.Netlist, string, error) {
	if opts.Input == "" {
		return nil, "", errors.New(errors.ErrCodeInvalidConfig, "input is required")
	}

	hooks := observability.Solver()
	hooks.OnParseStart(ctx, opts.Input)
	start := time.Now()

	nl, err := netlist.ParseFile(opts.Input)
	if err != nil {
		hooks.OnParseComplete(ctx, opts.Input, 0, 0, time.Since(start), err)
		return nil, "", err
	}

	hooks.OnParseComplete(ctx, opts.Input,
		len(nl.Modules), len(nl.Groups), time.Since(start), nil)

	return nl, cache.Hash(nl.Canonical()), nil
}
