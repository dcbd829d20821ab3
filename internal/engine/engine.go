// Package engine exposes the public incremental attack-graph API: one
// input handle per base relation (Insert/Remove/AdvanceTo), a Step/Run
// driver, and Subscribe for observing derived changes as they happen.
package engine

import (
	"context"

	"github.com/rawblock/attackgraph-engine/internal/rules"
	"github.com/rawblock/attackgraph-engine/pkg/collection"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

// InputHandle buffers inserts/removals for one base relation at the
// engine's current logical time until the next Step flushes them.
type InputHandle[T collection.Record] struct {
	queue *collection.UpdateQueue
}

func newInputHandle[T collection.Record]() *InputHandle[T] {
	return &InputHandle[T]{queue: collection.NewUpdateQueue()}
}

// Insert asserts v with multiplicity +1.
func (h *InputHandle[T]) Insert(v T) { h.queue.Enqueue(v, 1) }

// Remove retracts v with multiplicity -1.
func (h *InputHandle[T]) Remove(v T) { h.queue.Enqueue(v, -1) }

// AdvanceTo seals the current logical time and moves to t. Advancing
// backwards aborts the process.
func (h *InputHandle[T]) AdvanceTo(t uint64) { h.queue.AdvanceTo(collection.AtOuter(t)) }

// Update is one observed change to a derived relation: the record, the
// logical time it changed at, and whether it was added (+1) or removed
// (-1).
type Update struct {
	Record    collection.Record
	Timestamp collection.Timestamp
	Diff      collection.Diff
}

// Subscriber receives every update to the derived relations a single
// Step call causes, grouped by relation.
type Subscriber func(effectiveAccess, execCode, ownsMachine, goalReached []Update)

// Engine wires the five input handles to rules.Graph and drives Step/Run.
type Engine struct {
	graph *rules.Graph

	Vulnerabilities   *InputHandle[schema.Vulnerability]
	NetworkAccess     *InputHandle[schema.NetworkAccess]
	FirewallRules     *InputHandle[schema.FirewallRule]
	AttackerLocations *InputHandle[schema.AttackerLocation]
	AttackerGoals     *InputHandle[schema.AttackerGoal]

	probe       *probe
	subscribers []Subscriber
}

// New builds an Engine with all five relations empty.
func New() *Engine {
	return &Engine{
		graph:             rules.NewGraph(),
		Vulnerabilities:   newInputHandle[schema.Vulnerability](),
		NetworkAccess:     newInputHandle[schema.NetworkAccess](),
		FirewallRules:     newInputHandle[schema.FirewallRule](),
		AttackerLocations: newInputHandle[schema.AttackerLocation](),
		AttackerGoals:     newInputHandle[schema.AttackerGoal](),
		probe:             newProbe(),
	}
}

// Subscribe registers fn to be called with every Step's output.
func (e *Engine) Subscribe(fn Subscriber) { e.subscribers = append(e.subscribers, fn) }

// Prober reports how far a computation has progressed.
type Prober interface {
	LessThan(t uint64) bool
}

// Probe reports how far the engine's logical clock has progressed;
// LessThan(t) is true until every update at a timestamp before t has
// been delivered to subscribers.
func (e *Engine) Probe() Prober { return e.probe }

// Step flushes every input handle's pending updates, runs them through
// the attack-graph rules, notifies subscribers, and advances the probe.
// It is a no-op (besides advancing the probe) if nothing was pending.
func (e *Engine) Step() {
	var out rules.Output
	var lastTS collection.Timestamp

	for _, entry := range e.Vulnerabilities.queue.Flush() {
		lastTS = entry.Timestamp
		merge(&out, e.graph.PushVulnerability(entry.Record.(schema.Vulnerability), entry.Diff, entry.Timestamp))
	}
	for _, entry := range e.NetworkAccess.queue.Flush() {
		lastTS = entry.Timestamp
		merge(&out, e.graph.PushNetworkAccess(entry.Record.(schema.NetworkAccess), entry.Diff, entry.Timestamp))
	}
	for _, entry := range e.FirewallRules.queue.Flush() {
		lastTS = entry.Timestamp
		merge(&out, e.graph.PushFirewallRule(entry.Record.(schema.FirewallRule), entry.Diff, entry.Timestamp))
	}
	for _, entry := range e.AttackerLocations.queue.Flush() {
		lastTS = entry.Timestamp
		merge(&out, e.graph.PushAttackerLocation(entry.Record.(schema.AttackerLocation), entry.Diff, entry.Timestamp))
	}
	for _, entry := range e.AttackerGoals.queue.Flush() {
		lastTS = entry.Timestamp
		merge(&out, e.graph.PushAttackerGoal(entry.Record.(schema.AttackerGoal), entry.Diff, entry.Timestamp))
	}

	e.notify(out)
	e.probe.advance(currentTime(e))
	_ = lastTS
}

// currentTime reports the highest current-queue timestamp across every
// handle, i.e. where the engine's clock now sits after this Step's
// AdvanceTo calls have all been applied.
func currentTime(e *Engine) uint64 {
	max := e.Vulnerabilities.queue.Current().Outer
	for _, t := range []collection.Timestamp{
		e.NetworkAccess.queue.Current(),
		e.FirewallRules.queue.Current(),
		e.AttackerLocations.queue.Current(),
		e.AttackerGoals.queue.Current(),
	} {
		if t.Outer > max {
			max = t.Outer
		}
	}
	return max
}

func merge(dst *rules.Output, src rules.Output) {
	dst.EffectiveAccess = append(dst.EffectiveAccess, src.EffectiveAccess...)
	dst.ExecCode = append(dst.ExecCode, src.ExecCode...)
	dst.OwnsMachine = append(dst.OwnsMachine, src.OwnsMachine...)
	dst.GoalReached = append(dst.GoalReached, src.GoalReached...)
}

func (e *Engine) notify(out rules.Output) {
	if len(e.subscribers) == 0 {
		return
	}
	toUpdates := func(c collection.Collection) []Update {
		us := make([]Update, len(c))
		for i, entry := range c {
			us[i] = Update{Record: entry.Record, Timestamp: entry.Timestamp, Diff: entry.Diff}
		}
		return us
	}
	ea := toUpdates(collection.Consolidate(out.EffectiveAccess))
	ec := toUpdates(collection.Consolidate(out.ExecCode))
	om := toUpdates(collection.Consolidate(out.OwnsMachine))
	gr := toUpdates(collection.Consolidate(out.GoalReached))
	if len(ea)+len(ec)+len(om)+len(gr) == 0 {
		return
	}
	for _, sub := range e.subscribers {
		sub(ea, ec, om, gr)
	}
}

// Run advances every input handle to each time received on advance and
// calls Step after each one, until ctx is cancelled or advance is
// closed. It is intended for a long-lived process that advances time
// from some external driver (a feed of facts arriving over a channel,
// for instance) rather than a one-shot batch of inserts.
func (e *Engine) Run(ctx context.Context, advance <-chan uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-advance:
			if !ok {
				return
			}
			e.Vulnerabilities.AdvanceTo(t)
			e.NetworkAccess.AdvanceTo(t)
			e.FirewallRules.AdvanceTo(t)
			e.AttackerLocations.AdvanceTo(t)
			e.AttackerGoals.AdvanceTo(t)
			e.Step()
		}
	}
}

// probe tracks the engine's current logical time.
type probe struct{ t uint64 }

func newProbe() *probe { return &probe{} }

func (p *probe) advance(t uint64) {
	if t < p.t {
		collection.Abort("engine: probe advanced backwards from %d to %d", p.t, t)
	}
	p.t = t
}

func (p *probe) LessThan(t uint64) bool { return p.t < t }
