package dataflow

import "github.com/rawblock/attackgraph-engine/pkg/collection"

// KeyFunc extracts the join key a record matches on.
type KeyFunc func(collection.Record) string

// CombineFunc builds the joined output record from a matching left/right
// pair. Key() of the result need not relate to either input's key.
type CombineFunc func(left, right collection.Record) collection.Record

type valueEntry struct {
	value collection.Record
	diff  collection.Diff
}

// Join is an equi-join on two independently-updated collections,
// maintaining persistent per-key arrangements of both sides so that an
// update on either side only recomputes the cross product it causes.
// Apply implements the standard bilinear diff decomposition:
//
//	d(L⋈R) = dL⋈R_old + L_new⋈dR
//
// where L_new = L_old + dL. Processing leftBatch first (updating the
// left arrangement) and then rightBatch (joined against the
// already-updated left arrangement) realizes this exactly, so a single
// Apply call correctly handles simultaneous changes on both sides
// without double-counting.
type Join struct {
	leftKey, rightKey KeyFunc
	combine           CombineFunc
	left, right       map[string]map[string]*valueEntry
}

// NewJoin builds a Join keyed by leftKey/rightKey, combining matches
// with combine.
func NewJoin(leftKey, rightKey KeyFunc, combine CombineFunc) *Join {
	return &Join{
		leftKey:  leftKey,
		rightKey: rightKey,
		combine:  combine,
		left:     make(map[string]map[string]*valueEntry),
		right:    make(map[string]map[string]*valueEntry),
	}
}

// Apply updates both arrangements with the given batches and returns
// the output delta they cause.
func (j *Join) Apply(leftBatch, rightBatch collection.Collection) collection.Collection {
	ts := latestTimestamp(leftBatch, rightBatch)
	var out collection.Collection

	for _, e := range leftBatch {
		k := j.leftKey(e.Record)
		if bucket, ok := j.right[k]; ok {
			for _, rv := range bucket {
				if rv.diff == 0 {
					continue
				}
				out = append(out, collection.Entry{
					Record:    j.combine(e.Record, rv.value),
					Timestamp: ts,
					Diff:      e.Diff * rv.diff,
				})
			}
		}
		addToArrangement(j.left, k, e)
	}

	for _, e := range rightBatch {
		k := j.rightKey(e.Record)
		if bucket, ok := j.left[k]; ok {
			for _, lv := range bucket {
				if lv.diff == 0 {
					continue
				}
				out = append(out, collection.Entry{
					Record:    j.combine(lv.value, e.Record),
					Timestamp: ts,
					Diff:      lv.diff * e.Diff,
				})
			}
		}
		addToArrangement(j.right, k, e)
	}

	return out
}

func addToArrangement(arr map[string]map[string]*valueEntry, key string, e collection.Entry) {
	bucket, ok := arr[key]
	if !ok {
		bucket = make(map[string]*valueEntry)
		arr[key] = bucket
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
}
