package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Solver hooks
	s := NoopSolverHooks{}
	s.OnParseStart(ctx, "design.txt")
	s.OnParseComplete(ctx, "design.txt", 12, 2, time.Second, nil)
	s.OnAnnealStart(ctx, "run-1", 12, 2)
	s.OnAnnealComplete(ctx, "run-1", 4200, time.Second, nil)
	s.OnTemperature(ctx, "run-1", 850.0, 4200, 120, 130)
	s.OnImprovement(ctx, "run-1", 4100)
	s.OnTimeout(ctx, "run-1")
	s.OnWriteStart(ctx, "design.out")
	s.OnWriteComplete(ctx, "design.out", 4100, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "placement")
	c.OnCacheMiss(ctx, "placement")
	c.OnCacheSet(ctx, "placement", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Solver().(NoopSolverHooks); !ok {
		t.Error("Solver() should return NoopSolverHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customSolver := &testSolverHooks{}
	SetSolverHooks(customSolver)
	if Solver() != customSolver {
		t.Error("SetSolverHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Solver().(NoopSolverHooks); !ok {
		t.Error("Reset() should restore NoopSolverHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSolverHooks{}
	SetSolverHooks(custom)

	// Setting nil should be ignored
	SetSolverHooks(nil)

	if Solver() != custom {
		t.Error("SetSolverHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testSolverHooks struct{ NoopSolverHooks }
type testCacheHooks struct{ NoopCacheHooks }
