package bench

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

func TestChainShape(t *testing.T) {
	topo := Chain(4)
	if len(topo.Vulnerability) != 4 {
		t.Errorf("Chain(4) has %d vulnerabilities, want 4", len(topo.Vulnerability))
	}
	if len(topo.NetworkAccess) != 3 {
		t.Errorf("Chain(4) has %d network edges, want 3 (n-1)", len(topo.NetworkAccess))
	}
	if topo.Attacker.Host != "node_0" {
		t.Errorf("Chain attacker starts at %s, want node_0", topo.Attacker.Host)
	}
	if topo.Goal.TargetHost != "node_3" {
		t.Errorf("Chain goal is %s, want node_3", topo.Goal.TargetHost)
	}
}

func TestStarShape(t *testing.T) {
	topo := Star(5)
	if len(topo.Vulnerability) != 6 {
		t.Errorf("Star(5) has %d vulnerabilities, want 6 (hub + 5 leaves)", len(topo.Vulnerability))
	}
	if len(topo.NetworkAccess) != 5 {
		t.Errorf("Star(5) has %d network edges, want 5", len(topo.NetworkAccess))
	}
	if topo.Attacker.Host != "hub" {
		t.Errorf("Star attacker starts at %s, want hub", topo.Attacker.Host)
	}
}

func TestChainExactTopologyForSmallN(t *testing.T) {
	got := Chain(2)
	want := Topology{
		Name: "chain-2",
		Vulnerability: []schema.Vulnerability{
			{Host: "node_0", CVE: "CVE-CHAIN-0", Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot},
			{Host: "node_1", CVE: "CVE-CHAIN-1", Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot},
		},
		NetworkAccess: []schema.NetworkAccess{
			{Src: "node_0", Dst: "node_1", Service: "ssh"},
		},
		Attacker: schema.AttackerLocation{AttackerID: "attacker", Host: "node_0", Privilege: schema.PrivilegeRoot},
		Goal:     schema.AttackerGoal{AttackerID: "attacker", TargetHost: "node_1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chain(2) mismatch (-want +got):\n%s", diff)
	}
}

func TestMeshShape(t *testing.T) {
	topo := Mesh(3, 2)
	if len(topo.Vulnerability) != 6 {
		t.Errorf("Mesh(3,2) has %d vulnerabilities, want 6", len(topo.Vulnerability))
	}
	// Each of the 2 rows of 3 has 2 rightward edges (4 total), each of the
	// 3 columns of 2 has 1 downward edge (3 total): 7 edges.
	if len(topo.NetworkAccess) != 7 {
		t.Errorf("Mesh(3,2) has %d network edges, want 7", len(topo.NetworkAccess))
	}
	if topo.Attacker.Host != "node_0_0" {
		t.Errorf("Mesh attacker starts at %s, want node_0_0", topo.Attacker.Host)
	}
	if topo.Goal.TargetHost != "node_2_1" {
		t.Errorf("Mesh goal is %s, want node_2_1", topo.Goal.TargetHost)
	}
}
