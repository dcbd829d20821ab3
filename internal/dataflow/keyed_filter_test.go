package dataflow

import (
	"testing"

	"github.com/rawblock/attackgraph-engine/pkg/collection"
)

func keyEntry(k string, diff collection.Diff) collection.Entry {
	return collection.Entry{Record: rec(k), Timestamp: collection.AtOuter(1), Diff: diff}
}

func identityKey(r collection.Record) string { return string(r.(rec)) }

func TestAntijoinPassesThroughWhenKeyAbsent(t *testing.T) {
	a := NewAntijoin(identityKey)

	out := a.Apply(collection.Collection{keyEntry("allow-me", 1)}, nil)
	if len(out) != 1 {
		t.Fatalf("expected left tuple to pass through with no deny key present, got %v", out)
	}
}

func TestAntijoinSuppressesWhenKeyPresent(t *testing.T) {
	a := NewAntijoin(identityKey)

	// Left tuple already held, then its key becomes denied.
	a.Apply(collection.Collection{keyEntry("deny-me", 1)}, nil)
	out := a.Apply(nil, collection.Collection{keyEntry("deny-me", 1)})
	if len(out) != 1 || out[0].Diff != -1 {
		t.Fatalf("expected a retraction once the deny key appears, got %v", out)
	}

	// Removing the deny key should re-emit the left tuple.
	out = a.Apply(nil, collection.Collection{keyEntry("deny-me", -1)})
	if len(out) != 1 || out[0].Diff != 1 {
		t.Fatalf("expected re-emission once the deny key is retracted, got %v", out)
	}
}

func TestSemijoinKeepsOnlyPresentKeys(t *testing.T) {
	s := NewSemijoin(identityKey)

	// No matching key yet: left tuple suppressed.
	out := s.Apply(collection.Collection{keyEntry("owns-h1", 1)}, nil)
	if len(out) != 0 {
		t.Fatalf("expected suppression with no matching key, got %v", out)
	}

	// Key arrives: the already-held left tuple should now emit.
	out = s.Apply(nil, collection.Collection{keyEntry("owns-h1", 1)})
	if len(out) != 1 || out[0].Diff != 1 {
		t.Fatalf("expected emission once key appears, got %v", out)
	}

	// Key retracted: left tuple should retract too.
	out = s.Apply(nil, collection.Collection{keyEntry("owns-h1", -1)})
	if len(out) != 1 || out[0].Diff != -1 {
		t.Fatalf("expected retraction once key disappears, got %v", out)
	}
}
