// Package collection implements the timestamped multiset algebra that
// underlies the differential dataflow engine: every record carries a
// signed integer multiplicity at a logical timestamp, and diffs at the
// same (record, timestamp) sum.
package collection

import "fmt"

// Record is any value that can live in a Collection. Key must return a
// digest that is equal for equal logical records and stable across
// copies, since Go struct equality is not reliable once records embed
// slices (Vulnerability, NetworkAccess, etc. are all plain value types
// here, but Key is still required so every operator can index records
// by a comparable string rather than relying on struct identity).
type Record interface {
	Key() string
}

// Timestamp is the engine's logical clock. Outer is the client-driven
// coordinate advanced by AdvanceTo; Inner is the iteration-scope
// coordinate used only inside internal/dataflow's iterate scope. Ordered
// lexicographically (Outer first, then Inner): inner timestamps are
// iteration coordinates nested under an outer, client-driven one.
type Timestamp struct {
	Outer uint64
	Inner uint64
}

// Less reports whether t precedes other in the lexicographic order.
func (t Timestamp) Less(other Timestamp) bool {
	if t.Outer != other.Outer {
		return t.Outer < other.Outer
	}
	return t.Inner < other.Inner
}

func (t Timestamp) String() string {
	if t.Inner == 0 {
		return fmt.Sprintf("%d", t.Outer)
	}
	return fmt.Sprintf("%d.%d", t.Outer, t.Inner)
}

// AtOuter builds the zero-inner timestamp for an outer coordinate.
func AtOuter(outer uint64) Timestamp { return Timestamp{Outer: outer} }

// Diff is a signed multiplicity. Overflow while accumulating diffs is a
// program bug: the engine must detect and fail fast rather than silently
// wrap.
type Diff = int64

// Entry is one (record, timestamp, multiplicity) triple in a Collection.
type Entry struct {
	Record    Record
	Timestamp Timestamp
	Diff      Diff
}

// Collection is a multiset of Entries: logically a mapping
// (record, timestamp) -> signed multiplicity, represented as a flat slice
// of possibly-repeated entries until Consolidate is applied.
type Collection []Entry

// Consolidate sums diffs per (record key, timestamp) and drops entries
// whose total multiplicity is zero. Required before any downstream
// observer compares counts.
func Consolidate(c Collection) Collection {
	type slot struct {
		rec Record
		ts  Timestamp
	}
	sums := make(map[string]Diff, len(c))
	reps := make(map[string]slot, len(c))
	order := make([]string, 0, len(c))

	for _, e := range c {
		id := e.Timestamp.String() + "§" + e.Record.Key()
		if _, ok := sums[id]; !ok {
			order = append(order, id)
			reps[id] = slot{rec: e.Record, ts: e.Timestamp}
		}
		sums[id] = addDiff(sums[id], e.Diff)
	}

	out := make(Collection, 0, len(order))
	for _, id := range order {
		if d := sums[id]; d != 0 {
			r := reps[id]
			out = append(out, Entry{Record: r.rec, Timestamp: r.ts, Diff: d})
		}
	}
	return out
}

// addDiff adds b onto a, fatally aborting on signed overflow rather than
// letting a multiplicity silently wrap.
func addDiff(a, b Diff) Diff {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		Abort("collection: multiplicity overflow summing %d and %d", a, b)
	}
	return sum
}

// AddDiff is addDiff exported for operators outside this package
// (internal/dataflow's arrangements) that must accumulate multiplicities
// with the same overflow guard.
func AddDiff(a, b Diff) Diff { return addDiff(a, b) }

// AtTimestamp filters a Collection to entries at exactly ts.
func AtTimestamp(c Collection, ts Timestamp) Collection {
	out := make(Collection, 0, len(c))
	for _, e := range c {
		if e.Timestamp == ts {
			out = append(out, e)
		}
	}
	return out
}

// Before filters a Collection to entries strictly before ts.
func Before(c Collection, ts Timestamp) Collection {
	out := make(Collection, 0, len(c))
	for _, e := range c {
		if e.Timestamp.Less(ts) {
			out = append(out, e)
		}
	}
	return out
}

// Keys sums the diffs of c per record key, across all timestamps. Every
// key that appears in c is returned, including keys whose total is zero
// or negative.
func Keys(c Collection) map[string]Diff {
	m := make(map[string]Diff, len(c))
	for _, e := range c {
		m[e.Record.Key()] += e.Diff
	}
	return m
}
