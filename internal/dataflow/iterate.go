package dataflow

import "github.com/rawblock/attackgraph-engine/pkg/collection"

// BodyFunc computes one round's raw (pre-distinct) candidate diffs from
// the delta settled in the previous round. round is 1 on the first
// invocation of a given Step call, incrementing thereafter; bodies that
// close over collections entered from outside the loop should only apply
// those entered deltas on round == 1, since by round 2 they are already
// folded into the body's own persistent arrangements.
type BodyFunc func(roundDelta collection.Collection, round int) collection.Collection

// IterationScope computes a recursively-defined relation to a fixed
// point by repeatedly feeding the previous round's settled delta through
// Body and folding the result into a persistent Distinct, stopping as
// soon as a round produces no change. This mirrors semi-naive Datalog
// evaluation: each round only processes what is new since the last, so
// the cost of a Step call is proportional to how far a single update's
// effects actually propagate, not to the size of the whole relation.
type IterationScope struct {
	State     *Distinct
	Body      BodyFunc
	MaxRounds int
}

// NewIterationScope creates a scope with an empty state and a generous
// round bound; well-formed finite graphs converge in a number of rounds
// bounded by the graph's diameter, so MaxRounds is a safety net against
// a malformed body (e.g. one that never stabilizes), not an expected
// limit.
func NewIterationScope(body BodyFunc) *IterationScope {
	return &IterationScope{State: NewDistinct(), Body: body, MaxRounds: 10000}
}

// Step feeds seedDelta directly into the scope's state (the
// non-recursive base case — e.g. an attacker's starting foothold) and
// then drives Body to convergence, returning the total settled delta the
// whole computation causes to State.
func (s *IterationScope) Step(seedDelta collection.Collection) collection.Collection {
	var total collection.Collection

	settled := s.State.Apply(seedDelta)
	total = append(total, settled...)

	round := 0
	for len(settled) > 0 {
		round++
		if round > s.MaxRounds {
			collection.Abort("iterate: exceeded %d rounds without converging", s.MaxRounds)
		}
		raw := s.Body(settled, round)
		settled = s.State.Apply(raw)
		total = append(total, settled...)
	}

	return collection.Consolidate(total)
}
