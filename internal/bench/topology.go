// Package bench generates synthetic network topologies and measures
// the engine's incremental-update speedup against a from-scratch
// recomputation, the evidence that the engine's core value
// proposition — changes cost proportional to their effect, not to
// graph size — actually holds.
package bench

import (
	"fmt"

	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

// Topology is a generated synthetic network ready to feed into an
// engine: every node has exactly one exploitable service, the attacker
// starts at a single foothold, and a single goal host is named.
type Topology struct {
	Name          string
	NetworkAccess []schema.NetworkAccess
	Vulnerability []schema.Vulnerability
	Attacker      schema.AttackerLocation
	Goal          schema.AttackerGoal
}

// Chain builds a linear chain node_0 -> node_1 -> ... -> node_{n-1},
// attacker starting at node_0, goal at the last node. This is the
// worst case for a naive full-recompute engine (O(n) work to extend
// reachability by one node) and the case that best demonstrates
// incremental speedup.
func Chain(n int) Topology {
	t := Topology{Name: fmt.Sprintf("chain-%d", n)}
	for i := 0; i < n; i++ {
		node := fmt.Sprintf("node_%d", i)
		t.Vulnerability = append(t.Vulnerability, schema.Vulnerability{
			Host: node, CVE: fmt.Sprintf("CVE-CHAIN-%d", i), Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot,
		})
		if i < n-1 {
			t.NetworkAccess = append(t.NetworkAccess, schema.NetworkAccess{
				Src: node, Dst: fmt.Sprintf("node_%d", i+1), Service: "ssh",
			})
		}
	}
	t.Attacker = schema.AttackerLocation{AttackerID: "attacker", Host: "node_0", Privilege: schema.PrivilegeRoot}
	t.Goal = schema.AttackerGoal{AttackerID: "attacker", TargetHost: fmt.Sprintf("node_%d", n-1)}
	return t
}

// Star builds a hub connected directly to n leaves; reachability
// converges in two iterations regardless of n, the opposite extreme
// from Chain.
func Star(n int) Topology {
	t := Topology{Name: fmt.Sprintf("star-%d", n)}
	t.Vulnerability = append(t.Vulnerability, schema.Vulnerability{Host: "hub", CVE: "CVE-HUB-0", Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot})
	for i := 0; i < n; i++ {
		leaf := fmt.Sprintf("leaf_%d", i)
		t.Vulnerability = append(t.Vulnerability, schema.Vulnerability{Host: leaf, CVE: fmt.Sprintf("CVE-LEAF-%d", i), Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot})
		t.NetworkAccess = append(t.NetworkAccess, schema.NetworkAccess{Src: "hub", Dst: leaf, Service: "ssh"})
	}
	t.Attacker = schema.AttackerLocation{AttackerID: "attacker", Host: "hub", Privilege: schema.PrivilegeRoot}
	t.Goal = schema.AttackerGoal{AttackerID: "attacker", TargetHost: fmt.Sprintf("leaf_%d", n-1)}
	return t
}

// Mesh builds a width x height grid, each node wired to its right and
// bottom neighbor; attacker starts at the top-left corner, goal is the
// bottom-right corner.
func Mesh(width, height int) Topology {
	t := Topology{Name: fmt.Sprintf("mesh-%dx%d", width, height)}
	name := func(x, y int) string { return fmt.Sprintf("node_%d_%d", x, y) }
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			node := name(x, y)
			t.Vulnerability = append(t.Vulnerability, schema.Vulnerability{
				Host: node, CVE: fmt.Sprintf("CVE-MESH-%d-%d", x, y), Service: "ssh", GrantsPrivilege: schema.PrivilegeRoot,
			})
			if x+1 < width {
				t.NetworkAccess = append(t.NetworkAccess, schema.NetworkAccess{Src: node, Dst: name(x+1, y), Service: "ssh"})
			}
			if y+1 < height {
				t.NetworkAccess = append(t.NetworkAccess, schema.NetworkAccess{Src: node, Dst: name(x, y+1), Service: "ssh"})
			}
		}
	}
	t.Attacker = schema.AttackerLocation{AttackerID: "attacker", Host: name(0, 0), Privilege: schema.PrivilegeRoot}
	t.Goal = schema.AttackerGoal{AttackerID: "attacker", TargetHost: name(width-1, height-1)}
	return t
}
