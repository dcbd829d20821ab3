// Package dataflow implements the incremental operator graph that the
// attack-graph rules (internal/rules) are compiled onto: map, filter,
// distinct, join, semijoin/antijoin, an iteration scope, and the
// scheduler/worker that drives them.
//
// Each operator maintains its own current-state arrangement (a
// key-indexed view of everything it has seen so far) and, given a batch
// of new input diffs, computes only the output diffs that batch causes
// — never a full recomputation. This is the Go rendering of
// differential dataflow's "collection as a running total of diffs over
// time" model, simplified to a single global running total per key
// rather than a per-timestamp historical trace, since this engine never
// needs to answer point-in-time queries about the past — only what
// changed now.
package dataflow

import "github.com/rawblock/attackgraph-engine/pkg/collection"

// MapFunc transforms one record into another, preserving diff and
// timestamp.
type MapFunc func(collection.Record) collection.Record

// Map applies f to every entry of a batch.
func Map(batch collection.Collection, f MapFunc) collection.Collection {
	out := make(collection.Collection, len(batch))
	for i, e := range batch {
		out[i] = collection.Entry{Record: f(e.Record), Timestamp: e.Timestamp, Diff: e.Diff}
	}
	return out
}

// FilterFunc reports whether a record passes the filter.
type FilterFunc func(collection.Record) bool

// Filter keeps only entries whose record satisfies p.
func Filter(batch collection.Collection, p FilterFunc) collection.Collection {
	out := make(collection.Collection, 0, len(batch))
	for _, e := range batch {
		if p(e.Record) {
			out = append(out, e)
		}
	}
	return out
}

// Concat is the pointwise sum of two collections: every entry of both
// batches, unmerged until Consolidate.
func Concat(a, b collection.Collection) collection.Collection {
	out := make(collection.Collection, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// latestTimestamp returns the timestamp to stamp a derived output with,
// given the batch(es) of input diffs that produced it: the timestamp of
// the first entry of the first non-empty batch. internal/engine pushes
// flushed entries through internal/rules one at a time, so every batch
// derived from one entry carries that entry's timestamp.
func latestTimestamp(batches ...collection.Collection) collection.Timestamp {
	for _, b := range batches {
		if len(b) > 0 {
			return b[0].Timestamp
		}
	}
	return collection.Timestamp{}
}

// Distinct collapses a collection's running per-key multiplicity to
// {0,1} and emits only the delta versus the previous snapshot. It is
// stateful: Apply must be called with every diff that ever touches the
// collection, in order, to keep totals correct.
type Distinct struct {
	totals map[string]collection.Diff
}

// NewDistinct creates an empty Distinct operator.
func NewDistinct() *Distinct {
	return &Distinct{totals: make(map[string]collection.Diff)}
}

// Apply folds batch into the running totals and returns the delta to
// the {0,1} view it causes.
func (d *Distinct) Apply(batch collection.Collection) collection.Collection {
	if len(batch) == 0 {
		return nil
	}
	type agg struct {
		rec collection.Record
		ts  collection.Timestamp
		sum collection.Diff
	}
	byKey := make(map[string]*agg, len(batch))
	order := make([]string, 0, len(batch))
	for _, e := range batch {
		k := e.Record.Key()
		a, ok := byKey[k]
		if !ok {
			a = &agg{rec: e.Record, ts: e.Timestamp}
			byKey[k] = a
			order = append(order, k)
		}
		a.sum = collection.AddDiff(a.sum, e.Diff)
	}

	out := make(collection.Collection, 0, len(order))
	for _, k := range order {
		a := byKey[k]
		before := d.totals[k]
		after := collection.AddDiff(before, a.sum)
		if after == 0 {
			delete(d.totals, k)
		} else {
			d.totals[k] = after
		}
		if delta := sign01(after) - sign01(before); delta != 0 {
			out = append(out, collection.Entry{Record: a.rec, Timestamp: a.ts, Diff: delta})
		}
	}
	return out
}

func sign01(d collection.Diff) collection.Diff {
	if d > 0 {
		return 1
	}
	return 0
}

// Len reports how many records currently have positive multiplicity.
func (d *Distinct) Len() int { return len(d.totals) }

// Has reports whether key currently has positive multiplicity.
func (d *Distinct) Has(key string) bool { return d.totals[key] > 0 }
