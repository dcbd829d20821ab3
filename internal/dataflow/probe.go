package dataflow

import "github.com/rawblock/attackgraph-engine/pkg/collection"

// Probe reports how far the dataflow has progressed, so a caller can
// tell whether every update up to some timestamp has been fully
// propagated to every operator. Whoever drives the operators advances
// the frontier once the work for a timestamp has finished;
// internal/engine keeps its own probe and does not use this type.
type Probe struct {
	frontier collection.Timestamp
}

// NewProbe creates a probe parked at the zero timestamp.
func NewProbe() *Probe { return &Probe{} }

// Frontier returns the probe's current position.
func (p *Probe) Frontier() collection.Timestamp { return p.frontier }

// Advance moves the probe's frontier forward. Advancing backwards is a
// scheduler bug.
func (p *Probe) Advance(t collection.Timestamp) {
	if t.Less(p.frontier) {
		collection.Abort("dataflow: probe advanced backwards from %s to %s", p.frontier, t)
	}
	p.frontier = t
}

// LessThan reports whether the probe's frontier is strictly before t,
// i.e. whether processing up to (and including) t has not yet completed.
func (p *Probe) LessThan(t collection.Timestamp) bool { return p.frontier.Less(t) }
