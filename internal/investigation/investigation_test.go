package investigation

import (
	"testing"

	"github.com/rawblock/attackgraph-engine/internal/engine"
	"github.com/rawblock/attackgraph-engine/pkg/collection"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

func TestManagerCreateGetList(t *testing.T) {
	m := NewManager()
	inc := m.CreateIncident("case-1", "Breach", "desc", "eve", []string{"db01"})
	if inc.Status != "active" {
		t.Errorf("new incident status = %s, want active", inc.Status)
	}
	if got := m.GetIncident("case-1"); got != inc {
		t.Error("GetIncident should return the same incident that was created")
	}
	if m.GetIncident("missing") != nil {
		t.Error("GetIncident for an unknown id should return nil")
	}
	if len(m.ListIncidents()) != 1 {
		t.Errorf("ListIncidents returned %d, want 1", len(m.ListIncidents()))
	}
}

func TestCreateIncidentGeneratesIDWhenEmpty(t *testing.T) {
	m := NewManager()
	a := m.CreateIncident("", "Breach", "desc", "eve", nil)
	b := m.CreateIncident("", "Breach 2", "desc", "mallory", nil)
	if a.ID == "" || b.ID == "" {
		t.Fatal("expected a generated ID when none is supplied")
	}
	if a.ID == b.ID {
		t.Error("two incidents created without an ID should not collide")
	}
}

func TestSubscriberOnlyObservesMatchingAttacker(t *testing.T) {
	m := NewManager()
	inc := m.CreateIncident("case-1", "Breach", "desc", "eve", []string{"db01"})
	sub := m.Subscriber()

	execOther := engine.Update{Record: schema.ExecCode{AttackerID: "mallory", Host: "jump", Privilege: schema.PrivilegeUser}, Timestamp: collection.AtOuter(1), Diff: 1}
	sub(nil, []engine.Update{execOther}, nil, nil)
	if len(inc.Timeline) != 0 {
		t.Fatalf("incident should not observe a different attacker's updates, got %v", inc.Timeline)
	}

	execMine := engine.Update{Record: schema.ExecCode{AttackerID: "eve", Host: "jump", Privilege: schema.PrivilegeRoot}, Timestamp: collection.AtOuter(1), Diff: 1}
	sub(nil, []engine.Update{execMine}, nil, nil)
	if len(inc.Timeline) != 1 {
		t.Fatalf("expected one timeline event, got %v", inc.Timeline)
	}
	if inc.Timeline[0].EventType != "exec" {
		t.Errorf("eventType = %s, want exec", inc.Timeline[0].EventType)
	}
	if !inc.compromised["jump"] {
		t.Error("jump should be marked compromised after a positive exec update")
	}
}

func TestObserveRetractionClearsCompromise(t *testing.T) {
	m := NewManager()
	inc := m.CreateIncident("case-1", "Breach", "desc", "eve", []string{"db01"})
	sub := m.Subscriber()

	gain := engine.Update{Record: schema.ExecCode{AttackerID: "eve", Host: "jump", Privilege: schema.PrivilegeUser}, Timestamp: collection.AtOuter(1), Diff: 1}
	sub(nil, []engine.Update{gain}, nil, nil)
	if !inc.compromised["jump"] {
		t.Fatal("expected jump compromised after gain")
	}

	lose := engine.Update{Record: schema.ExecCode{AttackerID: "eve", Host: "jump", Privilege: schema.PrivilegeUser}, Timestamp: collection.AtOuter(2), Diff: -1}
	sub(nil, []engine.Update{lose}, nil, nil)
	if inc.compromised["jump"] {
		t.Error("jump should no longer be compromised after retraction")
	}
	if inc.Timeline[1].EventType != "retracted" {
		t.Errorf("second event type = %s, want retracted", inc.Timeline[1].EventType)
	}
}

func TestObserveGoalReachedResolvesIncident(t *testing.T) {
	m := NewManager()
	inc := m.CreateIncident("case-1", "Breach", "desc", "eve", []string{"db01"})
	sub := m.Subscriber()

	reached := engine.Update{Record: schema.GoalReached{AttackerID: "eve", Target: "db01"}, Timestamp: collection.AtOuter(1), Diff: 1}
	sub(nil, nil, nil, []engine.Update{reached})

	if inc.Status != "resolved" {
		t.Errorf("incident status = %s, want resolved after goal reached", inc.Status)
	}
}

func TestTagHostUpsertsByHost(t *testing.T) {
	inc := NewManager().CreateIncident("c", "n", "d", "eve", nil)
	inc.TagHost("jump", "Jump box", "entry-point", "", "analyst1")
	if len(inc.HostTags) != 1 {
		t.Fatalf("expected one tag, got %d", len(inc.HostTags))
	}
	inc.TagHost("jump", "Jump box (confirmed)", "entry-point", "re-tagged", "analyst2")
	if len(inc.HostTags) != 1 {
		t.Fatalf("re-tagging the same host should upsert, got %d tags", len(inc.HostTags))
	}
	if inc.HostTags[0].Notes != "re-tagged" {
		t.Errorf("tag was not updated in place: %+v", inc.HostTags[0])
	}
}

func TestGoalsRemainingTracksCompromise(t *testing.T) {
	m := NewManager()
	inc := m.CreateIncident("c", "n", "d", "eve", []string{"db01", "db02"})
	if got := inc.GoalsRemaining(); len(got) != 2 {
		t.Fatalf("expected both goals remaining initially, got %v", got)
	}

	sub := m.Subscriber()
	gain := engine.Update{Record: schema.ExecCode{AttackerID: "eve", Host: "db01", Privilege: schema.PrivilegeRoot}, Timestamp: collection.AtOuter(1), Diff: 1}
	sub(nil, []engine.Update{gain}, nil, nil)

	remaining := inc.GoalsRemaining()
	if len(remaining) != 1 || remaining[0] != "db02" {
		t.Errorf("GoalsRemaining() = %v, want [db02]", remaining)
	}
	compromised := inc.CompromisedHosts()
	if len(compromised) != 1 || compromised[0] != "db01" {
		t.Errorf("CompromisedHosts() = %v, want [db01]", compromised)
	}
}
