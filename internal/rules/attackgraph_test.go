package rules

import (
	"testing"

	"github.com/rawblock/attackgraph-engine/pkg/collection"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

func hasRecord(c collection.Collection, key string, diff collection.Diff) bool {
	for _, e := range c {
		if e.Record.Key() == key && e.Diff == diff {
			return true
		}
	}
	return false
}

// buildChain wires attacker "eve" starting at "jump" with network access
// to "db01" over "ssh", a vulnerability on db01:ssh granting root, and a
// goal of reaching db01 — the minimal one-hop attack chain.
func buildChain(t *testing.T) (*Graph, collection.Timestamp) {
	t.Helper()
	g := NewGraph()
	ts := collection.AtOuter(1)

	out := g.PushNetworkAccess(schema.NetworkAccess{Src: "jump", Dst: "db01", Service: "ssh"}, 1, ts)
	if !hasRecord(out.EffectiveAccess, "eff|jump|db01|ssh", 1) {
		t.Fatalf("expected effective access to appear, got %v", out.EffectiveAccess)
	}

	out = g.PushVulnerability(schema.Vulnerability{Host: "db01", CVE: "CVE-1", Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot}, 1, ts)
	if len(out.ExecCode) != 0 {
		t.Fatalf("vulnerability alone with no attacker yet should cause no exec, got %v", out.ExecCode)
	}

	out = g.PushAttackerGoal(schema.AttackerGoal{AttackerID: "eve", TargetHost: "db01"}, 1, ts)
	if len(out.GoalReached) != 0 {
		t.Fatalf("goal asserted before ownership should not be reached yet, got %v", out.GoalReached)
	}

	return g, ts
}

func TestAttackChainReachesGoal(t *testing.T) {
	g, ts := buildChain(t)

	out := g.PushAttackerLocation(schema.AttackerLocation{AttackerID: "eve", Host: "jump", Privilege: schema.PrivilegeRoot}, 1, ts)

	if !hasRecord(out.ExecCode, "exec|eve|jump|root", 1) {
		t.Errorf("expected foothold exec on jump, got %v", out.ExecCode)
	}
	if !hasRecord(out.ExecCode, "exec|eve|db01|root", 1) {
		t.Errorf("expected transitive exec on db01 via the vulnerability, got %v", out.ExecCode)
	}
	if !hasRecord(out.OwnsMachine, "owns|eve|db01", 1) {
		t.Errorf("expected eve to own db01 (root exec), got %v", out.OwnsMachine)
	}
	if !hasRecord(out.GoalReached, "reached|eve|db01", 1) {
		t.Errorf("expected goal reached once db01 is owned, got %v", out.GoalReached)
	}
}

func TestFirewallDenyBlocksAccessAndCascades(t *testing.T) {
	g, ts := buildChain(t)
	g.PushAttackerLocation(schema.AttackerLocation{AttackerID: "eve", Host: "jump", Privilege: schema.PrivilegeRoot}, 1, ts)

	ts2 := collection.AtOuter(2)
	out := g.PushFirewallRule(schema.FirewallRule{SrcZone: "jump", Dst: "db01", Service: "ssh", Action: schema.ActionDeny}, 1, ts2)

	if !hasRecord(out.EffectiveAccess, "eff|jump|db01|ssh", -1) {
		t.Fatalf("expected effective access retraction once denied, got %v", out.EffectiveAccess)
	}
	if !hasRecord(out.ExecCode, "exec|eve|db01|root", -1) {
		t.Errorf("expected db01 exec to retract once access is cut, got %v", out.ExecCode)
	}
	if !hasRecord(out.OwnsMachine, "owns|eve|db01", -1) {
		t.Errorf("expected ownership of db01 to retract, got %v", out.OwnsMachine)
	}
	if !hasRecord(out.GoalReached, "reached|eve|db01", -1) {
		t.Errorf("expected goal to un-reach once ownership is lost, got %v", out.GoalReached)
	}
}

func TestFirewallAllowRuleIsInert(t *testing.T) {
	g := NewGraph()
	ts := collection.AtOuter(1)
	out := g.PushFirewallRule(schema.FirewallRule{SrcZone: "jump", Dst: "db01", Service: "ssh", Action: schema.ActionAllow}, 1, ts)
	if len(out.EffectiveAccess) != 0 || len(out.ExecCode) != 0 {
		t.Errorf("an allow rule should never produce derived output, got %+v", out)
	}
}

func TestRevokingVulnerabilityRetractsExec(t *testing.T) {
	g, ts := buildChain(t)
	g.PushAttackerLocation(schema.AttackerLocation{AttackerID: "eve", Host: "jump", Privilege: schema.PrivilegeRoot}, 1, ts)

	ts2 := collection.AtOuter(2)
	out := g.PushVulnerability(schema.Vulnerability{Host: "db01", CVE: "CVE-1", Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot}, -1, ts2)

	if !hasRecord(out.ExecCode, "exec|eve|db01|root", -1) {
		t.Errorf("expected db01 exec to retract once the vulnerability is patched, got %v", out.ExecCode)
	}
	if !hasRecord(out.GoalReached, "reached|eve|db01", -1) {
		t.Errorf("expected goal to un-reach once the vulnerability is patched, got %v", out.GoalReached)
	}
}
