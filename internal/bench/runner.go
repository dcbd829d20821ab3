package bench

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/rawblock/attackgraph-engine/internal/engine"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

// Result is one topology's timing comparison: the cost of building the
// attack graph from nothing versus the cost of a single incremental
// update against an already-converged engine.
type Result struct {
	Topology            string
	Nodes               int
	InitialComputation  time.Duration
	IncrementalUpdate   time.Duration
	SpeedupFactor       float64
	AttackPathsInitial  int
	AttackPathsAfterCut int
}

// Summary renders a result as the multi-line block that
// cmd/attackgraph-bench prints for each topology.
func (r Result) Summary() string {
	return fmt.Sprintf(
		"=== BENCHMARK: %s ===\nnodes: %d\ninitial computation: %s\nincremental update:  %s\nspeedup factor: %.2fx\nattack paths (initial): %d\nattack paths (after cut): %d\n",
		r.Topology, r.Nodes, r.InitialComputation, r.IncrementalUpdate, r.SpeedupFactor, r.AttackPathsInitial, r.AttackPathsAfterCut,
	)
}

// Runner drives a sequence of benchmark topologies, tracking progress
// with atomics so a caller (e.g. internal/dashboard) can poll status
// without locking.
type Runner struct {
	completed atomic.Int64
	total     atomic.Int64
	running   atomic.Bool
}

// NewRunner creates an idle Runner.
func NewRunner() *Runner { return &Runner{} }

// Progress is a snapshot of a Runner's state, safe to read concurrently
// with Run.
type Progress struct {
	Running   bool
	Completed int64
	Total     int64
}

// Progress returns the runner's current state.
func (r *Runner) Progress() Progress {
	return Progress{Running: r.running.Load(), Completed: r.completed.Load(), Total: r.total.Load()}
}

// Run executes topologies in order, stopping early if ctx is cancelled,
// and returns every completed Result.
func (r *Runner) Run(ctx context.Context, topologies []Topology) []Result {
	if r.running.Load() {
		log.Println("[bench] run already in progress, ignoring duplicate request")
		return nil
	}
	r.running.Store(true)
	r.completed.Store(0)
	r.total.Store(int64(len(topologies)))
	defer r.running.Store(false)

	results := make([]Result, 0, len(topologies))
	for _, topo := range topologies {
		select {
		case <-ctx.Done():
			log.Printf("[bench] run cancelled after %d/%d topologies", r.completed.Load(), len(topologies))
			return results
		default:
		}
		results = append(results, runOne(topo))
		r.completed.Add(1)
	}
	return results
}

// runOne measures the cost of converging a fresh engine against topo,
// then the cost of a single targeted vulnerability removal (cutting the
// attack path nearest the goal) against the already-converged engine.
func runOne(topo Topology) Result {
	e := engine.New()

	var initialPaths, afterPaths int
	e.Subscribe(func(_, _, _ []engine.Update, goalReached []engine.Update) {
		for _, u := range goalReached {
			if u.Diff > 0 {
				initialPaths++
			} else if u.Diff < 0 {
				initialPaths--
			}
		}
	})

	start := time.Now()
	for _, na := range topo.NetworkAccess {
		e.NetworkAccess.Insert(na)
	}
	for _, v := range topo.Vulnerability {
		e.Vulnerabilities.Insert(v)
	}
	e.AttackerLocations.Insert(topo.Attacker)
	e.AttackerGoals.Insert(topo.Goal)
	e.NetworkAccess.AdvanceTo(1)
	e.Vulnerabilities.AdvanceTo(1)
	e.FirewallRules.AdvanceTo(1)
	e.AttackerLocations.AdvanceTo(1)
	e.AttackerGoals.AdvanceTo(1)
	e.Step()
	initial := time.Since(start)
	pathsAfterInitial := initialPaths
	afterPaths = pathsAfterInitial

	hasTarget := len(topo.Vulnerability) > 0
	var target schema.Vulnerability
	if hasTarget {
		target = topo.Vulnerability[len(topo.Vulnerability)-1]
	}

	start = time.Now()
	if hasTarget {
		e.Vulnerabilities.Remove(target)
		e.Vulnerabilities.AdvanceTo(2)
		e.NetworkAccess.AdvanceTo(2)
		e.FirewallRules.AdvanceTo(2)
		e.AttackerLocations.AdvanceTo(2)
		e.AttackerGoals.AdvanceTo(2)
		e.Step()
		afterPaths = initialPaths
	}
	incremental := time.Since(start)

	speedup := float64(0)
	if incremental > 0 {
		speedup = float64(initial) / float64(incremental)
	}

	return Result{
		Topology:            topo.Name,
		Nodes:               len(topo.Vulnerability),
		InitialComputation:  initial,
		IncrementalUpdate:   incremental,
		SpeedupFactor:       speedup,
		AttackPathsInitial:  clampNonNegative(pathsAfterInitial),
		AttackPathsAfterCut: clampNonNegative(afterPaths),
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
