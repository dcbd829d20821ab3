package collection

// UpdateQueue accumulates (record, diff) pairs at the current input
// timestamp. Flush stamps them with that timestamp and releases them;
// AdvanceTo closes all timestamps strictly before the new one, after
// which no more updates may be enqueued there.
type UpdateQueue struct {
	current Timestamp
	pending []Entry
}

// NewUpdateQueue creates a queue whose current timestamp starts at zero.
func NewUpdateQueue() *UpdateQueue {
	return &UpdateQueue{current: AtOuter(0)}
}

// Enqueue adds a pending diff at the queue's current timestamp.
func (q *UpdateQueue) Enqueue(r Record, diff Diff) {
	q.pending = append(q.pending, Entry{Record: r, Timestamp: q.current, Diff: diff})
}

// AdvanceTo seals timestamps strictly before t. Calling with a timestamp
// not after the current one is a client bug.
func (q *UpdateQueue) AdvanceTo(t Timestamp) {
	if t.Less(q.current) || t == q.current {
		Abort("collection: advance_to(%s) is not after current timestamp %s", t, q.current)
	}
	q.current = t
}

// Flush returns and clears the pending updates, stamped with whatever
// timestamp was current when each was enqueued.
func (q *UpdateQueue) Flush() Collection {
	out := make(Collection, len(q.pending))
	copy(out, q.pending)
	q.pending = q.pending[:0]
	return out
}

// Current returns the queue's current (not-yet-sealed) timestamp.
func (q *UpdateQueue) Current() Timestamp { return q.current }
