// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about solver execution and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSolverHooks(&mySolverHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Solver().OnAnnealStart(ctx, runID, moduleCount, groupCount)
//	// ... run annealing ...
//	observability.Solver().OnAnnealComplete(ctx, runID, bestArea, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Solver Hooks
// =============================================================================

// SolverHooks receives events from the placement solver.
type SolverHooks interface {
	// Parse events
	OnParseStart(ctx context.Context, path string)
	OnParseComplete(ctx context.Context, path string, moduleCount, groupCount int, duration time.Duration, err error)

	// Annealing lifecycle events. runID is a unique identifier for one solve.
	OnAnnealStart(ctx context.Context, runID string, moduleCount, groupCount int)
	OnAnnealComplete(ctx context.Context, runID string, bestArea int64, duration time.Duration, err error)

	// OnTemperature records the completion of one temperature level.
	OnTemperature(ctx context.Context, runID string, temperature float64, bestCost int64, accepted, rejected int)

	// OnImprovement records a new global best solution.
	OnImprovement(ctx context.Context, runID string, cost int64)

	// OnTimeout records that the watchdog interrupted the solver.
	OnTimeout(ctx context.Context, runID string)

	// Write events
	OnWriteStart(ctx context.Context, path string)
	OnWriteComplete(ctx context.Context, path string, area int64, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSolverHooks is a no-op implementation of SolverHooks.
type NoopSolverHooks struct{}

func (NoopSolverHooks) OnParseStart(context.Context, string) {}
func (NoopSolverHooks) OnParseComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopSolverHooks) OnAnnealStart(context.Context, string, int, int) {}
func (NoopSolverHooks) OnAnnealComplete(context.Context, string, int64, time.Duration, error) {
}
func (NoopSolverHooks) OnTemperature(context.Context, string, float64, int64, int, int) {}
func (NoopSolverHooks) OnImprovement(context.Context, string, int64)                    {}
func (NoopSolverHooks) OnTimeout(context.Context, string)                               {}
func (NoopSolverHooks) OnWriteStart(context.Context, string)                            {}
func (NoopSolverHooks) OnWriteComplete(context.Context, string, int64, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	solverHooks SolverHooks = NoopSolverHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetSolverHooks registers custom solver hooks.
// This should be called once at application startup before any solve.
func SetSolverHooks(h SolverHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		solverHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Solver returns the registered solver hooks.
func Solver() SolverHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return solverHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	solverHooks = NoopSolverHooks{}
	cacheHooks = NoopCacheHooks{}
}
