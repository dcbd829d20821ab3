package bench

import (
	"context"
	"testing"
)

func TestRunOneChainConvergesAndCuts(t *testing.T) {
	r := runOne(Chain(5))
	if r.Nodes != 5 {
		t.Errorf("Nodes = %d, want 5", r.Nodes)
	}
	if r.AttackPathsInitial != 1 {
		t.Errorf("AttackPathsInitial = %d, want 1 (goal reached once)", r.AttackPathsInitial)
	}
	if r.AttackPathsAfterCut != 0 {
		t.Errorf("AttackPathsAfterCut = %d, want 0 (removing the last vulnerability cuts the path)", r.AttackPathsAfterCut)
	}
}

func TestRunnerProgressTracksCompletion(t *testing.T) {
	r := NewRunner()
	if p := r.Progress(); p.Running || p.Total != 0 {
		t.Fatalf("fresh runner progress = %+v, want idle/zero", p)
	}

	topos := []Topology{Chain(3), Star(3), Mesh(2, 2)}
	results := r.Run(context.Background(), topos)

	if len(results) != len(topos) {
		t.Fatalf("got %d results, want %d", len(results), len(topos))
	}
	p := r.Progress()
	if p.Running {
		t.Error("runner should not be running after Run returns")
	}
	if p.Completed != int64(len(topos)) || p.Total != int64(len(topos)) {
		t.Errorf("progress after completion = %+v, want Completed=Total=%d", p, len(topos))
	}
}

func TestRunnerRejectsConcurrentRun(t *testing.T) {
	r := NewRunner()
	r.running.Store(true)
	results := r.Run(context.Background(), []Topology{Chain(3)})
	if results != nil {
		t.Errorf("expected nil result when a run is already in progress, got %v", results)
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	r := NewRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.Run(ctx, []Topology{Chain(3), Star(3)})
	if len(results) != 0 {
		t.Errorf("expected zero results from an already-cancelled context, got %d", len(results))
	}
}
