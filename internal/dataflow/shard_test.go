package dataflow

import (
	"sync"
	"testing"
)

func TestRouterDispatchesAllWork(t *testing.T) {
	r := NewRouter(4, 8)
	defer r.Close()

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup

	keys := []string{"attacker-1", "attacker-2", "attacker-3", "attacker-1", "attacker-2"}
	for _, k := range keys {
		wg.Add(1)
		k := k
		r.Dispatch(k, func() {
			defer wg.Done()
			mu.Lock()
			seen[k] = true
			mu.Unlock()
		})
	}
	wg.Wait()

	for _, k := range keys {
		if !seen[k] {
			t.Errorf("key %s was never dispatched", k)
		}
	}
}

func TestRouterSameKeyStaysOnSameLane(t *testing.T) {
	r := NewRouter(4, 8)
	defer r.Close()

	a := r.LaneFor("attacker-42")
	b := r.LaneFor("attacker-42")
	if a != b {
		t.Errorf("same key hashed to different lanes: %d vs %d", a, b)
	}
}

func TestRouterProcessedCounts(t *testing.T) {
	r := NewRouter(2, 8)
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		r.Dispatch("same-key", func() { wg.Done() })
	}
	wg.Wait()

	total := int64(0)
	for _, n := range r.Processed() {
		total += n
	}
	if total != 6 {
		t.Errorf("total processed = %d, want 6", total)
	}
}
