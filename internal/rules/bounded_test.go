package rules

import (
	"testing"

	"github.com/rawblock/attackgraph-engine/pkg/collection"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

func chainTopology(n int) ([]schema.Vulnerability, []schema.NetworkAccess, schema.AttackerLocation, schema.AttackerGoal) {
	var vulns []schema.Vulnerability
	var access []schema.NetworkAccess
	for i := 0; i < n; i++ {
		host := hostName(i)
		vulns = append(vulns, schema.Vulnerability{Host: host, CVE: "CVE-" + host, Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot})
		if i > 0 {
			access = append(access, schema.NetworkAccess{Src: hostName(i - 1), Dst: host, Service: "ssh"})
		}
	}
	loc := schema.AttackerLocation{AttackerID: "eve", Host: hostName(0), Privilege: schema.PrivilegeRoot}
	goal := schema.AttackerGoal{AttackerID: "eve", TargetHost: hostName(n - 1)}
	return vulns, access, loc, goal
}

func hostName(i int) string {
	return string(rune('a' + i))
}

func TestBuildAttackGraphBoundedReachesGoalWithinHops(t *testing.T) {
	vulns, access, loc, goal := chainTopology(4)
	ts := collection.AtOuter(1)

	out := BuildAttackGraphBounded(vulns, access, []schema.AttackerLocation{loc}, []schema.AttackerGoal{goal}, 3, ts)

	if !hasRecord(out.GoalReached, "reached|eve|d", 1) {
		t.Fatalf("expected goal reached within 3 hops for a 4-node chain, got %v", out.GoalReached)
	}
	if len(out.ExecCode) != 4 {
		t.Errorf("expected exec on all 4 nodes, got %d: %v", len(out.ExecCode), out.ExecCode)
	}
}

func TestBuildAttackGraphBoundedTruncatesBeyondHops(t *testing.T) {
	vulns, access, loc, goal := chainTopology(4)
	ts := collection.AtOuter(1)

	out := BuildAttackGraphBounded(vulns, access, []schema.AttackerLocation{loc}, []schema.AttackerGoal{goal}, 1, ts)

	if hasRecord(out.GoalReached, "reached|eve|d", 1) {
		t.Fatal("goal 3 hops away should not be reached when maxHops=1")
	}
	if len(out.ExecCode) != 2 {
		t.Errorf("expected exec on only the first 2 nodes (seed + 1 hop), got %d: %v", len(out.ExecCode), out.ExecCode)
	}
}

func TestBuildAttackGraphBoundedIgnoresUnreachableGoal(t *testing.T) {
	vulns, access, loc, _ := chainTopology(2)
	goal := schema.AttackerGoal{AttackerID: "eve", TargetHost: "zzz"}
	ts := collection.AtOuter(1)

	out := BuildAttackGraphBounded(vulns, access, []schema.AttackerLocation{loc}, []schema.AttackerGoal{goal}, 5, ts)

	if len(out.GoalReached) != 0 {
		t.Errorf("goal on an unreached host should never appear, got %v", out.GoalReached)
	}
}
