// Package anneal searches HB*-tree placements by simulated annealing: a
// pooled move generator perturbs the tree, a Metropolis loop accepts or
// undoes each move, and an adaptive distribution shifts effort toward the
// operators that have been paying off. A watchdog bounds the wall clock;
// timing out is value based, so the best solution found is always returned.
package anneal

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/observability"
	"github.com/jeannie068/analogplace/pkg/place/hb"
)

const (
	moveAttempts         = 5
	watchdogPollInterval = 100

	minInitialTemperature = 100
	maxInitialTemperature = 10000
	acceptTarget          = 0.8
)

// Probabilities is the operator distribution, in user-facing form. Zero
// values fall back to the defaults.
type Probabilities struct {
	Rotate               float64
	Move                 float64
	Swap                 float64
	ChangeRepresentative float64
	ConvertSymmetry      float64
}

func (p Probabilities) vector() [numOps]float64 {
	v := [numOps]float64{p.Rotate, p.Move, p.Swap, p.ChangeRepresentative, p.ConvertSymmetry}
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return DefaultProbabilities
	}
	return v
}

// Params configures one annealing run.
type Params struct {
	InitialTemperature  float64
	FinalTemperature    float64
	CoolingRate         float64
	MovesPerTemperature int
	NoImprovementLimit  int
	SampleMoves         int
	UpdateInterval      int

	Probabilities Probabilities

	AreaWeight       float64
	WirelengthWeight float64

	Timeout         time.Duration
	EmergencyMargin time.Duration
	// OnEmergency runs when the loop overruns the timeout by the margin.
	OnEmergency func()

	Seed int64
}

// DefaultParams returns the standard parameter set with the whole cost weight
// on area.
func DefaultParams() Params {
	return Params{
		InitialTemperature:  1000,
		FinalTemperature:    1,
		CoolingRate:         0.85,
		MovesPerTemperature: 250,
		NoImprovementLimit:  3,
		SampleMoves:         500,
		UpdateInterval:      50,
		Probabilities: Probabilities{
			Rotate:               DefaultProbabilities[OpRotate],
			Move:                 DefaultProbabilities[OpMove],
			Swap:                 DefaultProbabilities[OpSwap],
			ChangeRepresentative: DefaultProbabilities[OpChangeRepresentative],
			ConvertSymmetry:      DefaultProbabilities[OpConvertSymmetry],
		},
		AreaWeight:       1,
		WirelengthWeight: 0,
		Timeout:          240 * time.Second,
		EmergencyMargin:  10 * time.Second,
		Seed:             1,
	}
}

func (p Params) validate() error {
	if p.CoolingRate <= 0 || p.CoolingRate >= 1 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"cooling rate %g outside (0, 1)", p.CoolingRate)
	}
	if p.FinalTemperature <= 0 || p.InitialTemperature < p.FinalTemperature {
		return errors.New(errors.ErrCodeInvalidConfig,
			"temperature range [%g, %g] invalid", p.FinalTemperature, p.InitialTemperature)
	}
	if p.MovesPerTemperature <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"moves per temperature must be positive, got %d", p.MovesPerTemperature)
	}
	return nil
}

// Stats summarizes one run.
type Stats struct {
	TotalIterations   int
	Accepted          int
	Rejected          int
	Stagnation        int
	TemperatureLevels int
	TimedOut          bool
}

type pairPick struct {
	group  string
	member string
}

// Annealer runs simulated annealing over one HB*-tree. Not safe for
// concurrent use; build one per run or per goroutine.
type Annealer struct {
	params   Params
	rng      *rand.Rand
	pool     *MovePool
	adaptive *Adaptive
	watchdog *Watchdog

	freeNames  []string
	groupNames []string
	outerNames []string
	pairPicks  []pairPick
	rotBuf     []string

	stats Stats
	runID string
}

// New builds an annealer for the given parameters.
func New(params Params) *Annealer {
	return &Annealer{
		params:   params,
		rng:      rand.New(rand.NewSource(params.Seed)),
		pool:     NewMovePool(),
		adaptive: NewAdaptive(params.Probabilities.vector()),
		watchdog: NewWatchdog(),
	}
}

// Watchdog exposes the run's watchdog so callers can trip it early, for
// example from a signal handler.
func (a *Annealer) Watchdog() *Watchdog {
	return a.watchdog
}

// Run packs the tree, then anneals until the temperature schedule runs out or
// the watchdog fires. The returned tree is the best solution seen, never
// worse than the packed initial one. A timeout is not an error.
func (a *Annealer) Run(ctx context.Context, t *hb.Tree) (*hb.Tree, Stats, error) {
	if err := a.params.validate(); err != nil {
		return nil, a.stats, err
	}
	start := time.Now()
	a.runID = uuid.NewString()
	hooks := observability.Solver()
	hooks.OnAnnealStart(ctx, a.runID, len(t.Modules()), len(t.Groups()))

	if err := t.Pack(); err != nil {
		hooks.OnAnnealComplete(ctx, a.runID, 0, time.Since(start), err)
		return nil, a.stats, err
	}

	a.collectCandidates(t)
	best := t.Clone()
	bestCost := a.cost(t)

	a.watchdog.Start(a.params.Timeout, a.params.EmergencyMargin, a.params.OnEmergency)
	defer a.watchdog.Stop()

	temp := a.initialTemperature(ctx, t)
	stagnation := 0
	for temp > a.params.FinalTemperature {
		if a.interrupted(ctx) {
			break
		}
		improved, accepted, rejected := a.processTemperature(ctx, t, temp, &best, &bestCost)
		a.stats.TemperatureLevels++
		hooks.OnTemperature(ctx, a.runID, temp, int64(bestCost), accepted, rejected)

		if improved {
			stagnation = 0
		} else {
			stagnation++
			a.stats.Stagnation++
			if stagnation >= a.params.NoImprovementLimit {
				temp *= 0.5
				stagnation = 0
			}
		}
		temp *= a.params.CoolingRate
	}

	if a.interrupted(ctx) {
		a.stats.TimedOut = true
		hooks.OnTimeout(ctx, a.runID)
	}

	a.finalize(best)
	hooks.OnAnnealComplete(ctx, a.runID, best.Area(), time.Since(start), nil)
	return best, a.stats, nil
}

// cost is the weighted objective. A degenerate bounding box prices the
// solution out entirely.
func (a *Annealer) cost(t *hb.Tree) float64 {
	area := t.Area()
	if area <= 0 {
		return float64(math.MaxInt64)
	}
	return float64(area)*a.params.AreaWeight + float64(t.WireLength())*a.params.WirelengthWeight
}

// collectCandidates snapshots the operand name sets. Node payloads migrate
// under swaps but the name sets stay fixed, so one snapshot serves the whole
// run. Rotation candidates depend on the live representative choice and are
// gathered per move instead.
func (a *Annealer) collectCandidates(t *hb.Tree) {
	a.freeNames = a.freeNames[:0]
	for name := range t.Modules() {
		if t.GroupOf(name) == "" {
			a.freeNames = append(a.freeNames, name)
		}
	}
	sort.Strings(a.freeNames)

	a.groupNames = a.groupNames[:0]
	a.pairPicks = a.pairPicks[:0]
	for _, g := range t.Groups() {
		a.groupNames = append(a.groupNames, g.Name)
		for _, p := range g.Pairs {
			a.pairPicks = append(a.pairPicks,
				pairPick{group: g.Name, member: p.A},
				pairPick{group: g.Name, member: p.B})
		}
	}

	a.outerNames = a.outerNames[:0]
	a.outerNames = append(a.outerNames, a.freeNames...)
	a.outerNames = append(a.outerNames, a.groupNames...)
	sort.Strings(a.outerNames)
}

// rotatable lists the modules a rotate may target: free modules plus the
// current representatives of every island.
func (a *Annealer) rotatable(t *hb.Tree) []string {
	a.rotBuf = a.rotBuf[:0]
	a.rotBuf = append(a.rotBuf, a.freeNames...)
	for _, g := range a.groupNames {
		if h := t.FindNode(g); h != nil && h.Island != nil {
			a.rotBuf = append(a.rotBuf, h.Island.Representatives()...)
		}
	}
	return a.rotBuf
}

// generate draws an operator and operands, retrying a few times when the
// netlist cannot supply operands for the drawn operator. Returns nil when
// every attempt came up empty.
func (a *Annealer) generate(t *hb.Tree) *Move {
	for attempt := 0; attempt < moveAttempts; attempt++ {
		m := a.pool.Get()
		m.Op = a.adaptive.Pick(a.rng)
		ok := false
		switch m.Op {
		case OpRotate:
			if cands := a.rotatable(t); len(cands) > 0 {
				m.Name1 = cands[a.rng.Intn(len(cands))]
				ok = true
			}
		case OpMove:
			if len(a.outerNames) >= 2 {
				m.Name1, m.Name2 = a.twoDistinctOuter()
				m.AsLeft = a.rng.Intn(2) == 0
				ok = true
			}
		case OpSwap:
			if len(a.outerNames) >= 2 {
				m.Name1, m.Name2 = a.twoDistinctOuter()
				ok = true
			}
		case OpChangeRepresentative:
			if len(a.pairPicks) > 0 {
				p := a.pairPicks[a.rng.Intn(len(a.pairPicks))]
				m.Name1, m.Name2 = p.group, p.member
				ok = true
			}
		case OpConvertSymmetry:
			if len(a.groupNames) > 0 {
				m.Name1 = a.groupNames[a.rng.Intn(len(a.groupNames))]
				ok = true
			}
		}
		if ok {
			return m
		}
		a.pool.Put(m)
	}
	return nil
}

func (a *Annealer) twoDistinctOuter() (string, string) {
	i := a.rng.Intn(len(a.outerNames))
	j := a.rng.Intn(len(a.outerNames) - 1)
	if j >= i {
		j++
	}
	return a.outerNames[i], a.outerNames[j]
}

// initialTemperature probes the cost landscape with sampled moves and sets
// the start temperature so an average uphill move is accepted with the target
// probability. Falls back to the configured value when sampling yields
// nothing.
func (a *Annealer) initialTemperature(ctx context.Context, t *hb.Tree) float64 {
	base := a.cost(t)
	var sum float64
	n := 0
	for i := 0; i < a.params.SampleMoves; i++ {
		if i%watchdogPollInterval == 0 && a.interrupted(ctx) {
			break
		}
		m := a.generate(t)
		if m == nil {
			break
		}
		if err := m.Apply(t); err != nil {
			a.pool.Put(m)
			continue
		}
		d := a.cost(t) - base
		if d < 0 {
			d = -d
		}
		sum += d
		n++
		_ = m.Undo(t)
		base = a.cost(t)
		a.pool.Put(m)
	}
	if n == 0 || sum == 0 {
		return a.params.InitialTemperature
	}
	temp := -(sum / float64(n)) / math.Log(acceptTarget)
	if temp < minInitialTemperature {
		temp = minInitialTemperature
	}
	if temp > maxInitialTemperature {
		temp = maxInitialTemperature
	}
	return temp
}

// processTemperature runs one Metropolis level. The undo of a rejected move
// is best effort, so the working cost is re-read from the tree instead of
// assumed restored.
func (a *Annealer) processTemperature(ctx context.Context, t *hb.Tree, temp float64, best **hb.Tree, bestCost *float64) (improved bool, accepted, rejected int) {
	hooks := observability.Solver()
	current := a.cost(t)
	for i := 0; i < a.params.MovesPerTemperature; i++ {
		if i%watchdogPollInterval == 0 && a.interrupted(ctx) {
			return improved, accepted, rejected
		}
		m := a.generate(t)
		if m == nil {
			return improved, accepted, rejected
		}
		a.stats.TotalIterations++

		if err := m.Apply(t); err != nil {
			a.adaptive.Record(m.Op, 0)
			a.pool.Put(m)
			continue
		}
		after := a.cost(t)
		delta := after - current
		a.adaptive.Record(m.Op, -delta)

		if delta <= 0 || a.rng.Float64() < math.Exp(-delta/temp) {
			accepted++
			a.stats.Accepted++
			current = after
			if after < *bestCost {
				*bestCost = after
				*best = t.Clone()
				improved = true
				hooks.OnImprovement(ctx, a.runID, int64(after))
			}
		} else {
			rejected++
			a.stats.Rejected++
			_ = m.Undo(t)
			current = a.cost(t)
		}
		a.pool.Put(m)

		if a.params.UpdateInterval > 0 && a.stats.TotalIterations%a.params.UpdateInterval == 0 {
			a.adaptive.Update()
		}
	}
	return improved, accepted, rejected
}

// finalize repairs any residual overlap in the best solution; a full repack
// is the fallback when shifting alone cannot clean it up.
func (a *Annealer) finalize(best *hb.Tree) {
	best.Legalize()
	if best.Placement().HasOverlaps() {
		_ = best.Pack()
	}
}

func (a *Annealer) interrupted(ctx context.Context) bool {
	return a.watchdog.TimedOut() || ctx.Err() != nil
}
