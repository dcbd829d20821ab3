package dataflow

import "github.com/rawblock/attackgraph-engine/pkg/collection"

// keyedFilter is the shared implementation behind Semijoin and Antijoin:
// both pass a left collection through unchanged or suppressed depending
// on whether the left record's key currently has positive multiplicity
// in a second, set-valued "keys" collection (the keys side is always
// treated as implicitly distinct). They differ only in which side of
// that presence test they keep.
//
// keepWhenPresent=true  -> semijoin (keep left tuples whose key is present)
// keepWhenPresent=false -> antijoin (keep left tuples whose key is absent)
//
// Both retract or (re-)emit every currently-held left value when a key's
// presence flips, so removing/restoring a base fact on the keys side
// correctly cascades to every left tuple it was gating.
type keyedFilter struct {
	leftKey         KeyFunc
	keepWhenPresent bool
	left            map[string]map[string]*valueEntry
	keysTotal       map[string]collection.Diff
}

func newKeyedFilter(leftKey KeyFunc, keepWhenPresent bool) *keyedFilter {
	return &keyedFilter{
		leftKey:         leftKey,
		keepWhenPresent: keepWhenPresent,
		left:            make(map[string]map[string]*valueEntry),
		keysTotal:       make(map[string]collection.Diff),
	}
}

func (f *keyedFilter) apply(leftBatch, keysBatch collection.Collection) collection.Collection {
	ts := latestTimestamp(leftBatch, keysBatch)
	var out collection.Collection

	keyDeltas := make(map[string]collection.Diff, len(keysBatch))
	for _, e := range keysBatch {
		k := e.Record.Key()
		keyDeltas[k] = collection.AddDiff(keyDeltas[k], e.Diff)
	}

	for k, d := range keyDeltas {
		before := f.keysTotal[k]
		after := collection.AddDiff(before, d)
		if after == 0 {
			delete(f.keysTotal, k)
		} else {
			f.keysTotal[k] = after
		}
		oldPresent := before > 0
		present := after > 0
		if oldPresent == present {
			continue
		}
		visibleBefore := oldPresent == f.keepWhenPresent
		visibleAfter := present == f.keepWhenPresent
		if visibleBefore == visibleAfter {
			continue
		}
		sign := collection.Diff(1)
		if !visibleAfter {
			sign = -1
		}
		for _, ve := range f.left[k] {
			if ve.diff == 0 {
				continue
			}
			out = append(out, collection.Entry{Record: ve.value, Timestamp: ts, Diff: sign * ve.diff})
		}
	}

	for _, e := range leftBatch {
		k := f.leftKey(e.Record)
		bucket, ok := f.left[k]
		if !ok {
			bucket = make(map[string]*valueEntry)
			f.left[k] = bucket
		}
		vk := e.Record.Key()
		ve, ok := bucket[vk]
		if !ok {
			ve = &valueEntry{value: e.Record}
			bucket[vk] = ve
		}
		ve.diff = collection.AddDiff(ve.diff, e.Diff)
		if ve.diff == 0 {
			delete(bucket, vk)
		}

		present := f.keysTotal[k] > 0
		if present == f.keepWhenPresent {
			out = append(out, collection.Entry{Record: e.Record, Timestamp: e.Timestamp, Diff: e.Diff})
		}
	}

	return out
}

// Semijoin keeps left tuples whose key is present (with positive
// multiplicity) in the keys collection.
type Semijoin struct{ f *keyedFilter }

// NewSemijoin builds a Semijoin keyed by leftKey.
func NewSemijoin(leftKey KeyFunc) *Semijoin { return &Semijoin{f: newKeyedFilter(leftKey, true)} }

// Apply updates the operator and returns the output delta.
func (s *Semijoin) Apply(leftBatch, keysBatch collection.Collection) collection.Collection {
	return s.f.apply(leftBatch, keysBatch)
}

// Antijoin keeps left tuples whose key is absent from the keys
// collection: the default-allow, explicit-deny shape.
type Antijoin struct{ f *keyedFilter }

// NewAntijoin builds an Antijoin keyed by leftKey.
func NewAntijoin(leftKey KeyFunc) *Antijoin { return &Antijoin{f: newKeyedFilter(leftKey, false)} }

// Apply updates the operator and returns the output delta.
func (a *Antijoin) Apply(leftBatch, keysBatch collection.Collection) collection.Collection {
	return a.f.apply(leftBatch, keysBatch)
}
