// Command attackgraph-demo runs a scripted, four-phase walkthrough of
// the incremental attack-graph engine against a small fixed topology:
// initial load, a firewall rule blocking one path, a vulnerability
// patch, and a new vulnerability reopening a path. Each phase only
// prints what changed, not the whole graph, to make the incremental
// behavior visible.
package main

import (
	"log"
	"time"

	"github.com/rawblock/attackgraph-engine/internal/engine"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

func main() {
	log.Println("Starting attack-graph demo engine...")

	e := engine.New()
	e.Subscribe(logUpdates)

	log.Println("PHASE 1: loading initial network state (t=0 -> t=1)")
	log.Println("  topology: internet -> web01 -> db01 -> admin01")

	for _, na := range []schema.NetworkAccess{
		{Src: "internet", Dst: "web01", Service: "http"},
		{Src: "internet", Dst: "web01", Service: "https"},
		{Src: "web01", Dst: "db01", Service: "mysql"},
		{Src: "web01", Dst: "db01", Service: "ssh"},
		{Src: "db01", Dst: "admin01", Service: "ssh"},
		{Src: "db01", Dst: "admin01", Service: "smb"},
	} {
		e.NetworkAccess.Insert(na)
	}
	for _, v := range []schema.Vulnerability{
		{Host: "web01", CVE: "CVE-2024-1234", Service: "http", GrantsPrivilege: schema.PrivilegeUser},
		{Host: "web01", CVE: "CVE-2024-1234", Service: "https", GrantsPrivilege: schema.PrivilegeUser},
		{Host: "db01", CVE: "CVE-2024-5678", Service: "mysql", GrantsPrivilege: schema.PrivilegeRoot},
		{Host: "db01", CVE: "CVE-2024-9999", Service: "ssh", GrantsPrivilege: schema.PrivilegeUser},
		{Host: "admin01", CVE: "CVE-2024-8888", Service: "smb", GrantsPrivilege: schema.PrivilegeRoot},
	} {
		e.Vulnerabilities.Insert(v)
	}
	e.AttackerLocations.Insert(schema.AttackerLocation{AttackerID: "eve", Host: "internet", Privilege: schema.PrivilegeUser})
	e.AttackerGoals.Insert(schema.AttackerGoal{AttackerID: "eve", TargetHost: "admin01"})

	runPhase(e, 1)

	log.Println("PHASE 2: denying internet -> web01 on http (t=1 -> t=2)")
	e.FirewallRules.Insert(schema.FirewallRule{SrcZone: "internet", Dst: "web01", Service: "http", Action: schema.ActionDeny})
	runPhase(e, 2)
	log.Println("  note: http path removed, https path still open")

	log.Println("PHASE 3: patching CVE-2024-1234 on web01 (t=2 -> t=3)")
	e.Vulnerabilities.Remove(schema.Vulnerability{Host: "web01", CVE: "CVE-2024-1234", Service: "http", GrantsPrivilege: schema.PrivilegeUser})
	e.Vulnerabilities.Remove(schema.Vulnerability{Host: "web01", CVE: "CVE-2024-1234", Service: "https", GrantsPrivilege: schema.PrivilegeUser})
	runPhase(e, 3)
	log.Println("  target is now unreachable: every path from web01 was patched")

	log.Println("PHASE 4: new CVE-2024-0DAY discovered on web01/https (t=3 -> t=4)")
	e.Vulnerabilities.Insert(schema.Vulnerability{Host: "web01", CVE: "CVE-2024-0DAY", Service: "https", GrantsPrivilege: schema.PrivilegeUser})
	runPhase(e, 4)
	log.Println("  attack path restored via the new vulnerability")

	log.Println("demo complete: every update above reflects only the facts that changed, not a full recomputation")
}

func runPhase(e *engine.Engine, t uint64) {
	start := time.Now()
	e.Vulnerabilities.AdvanceTo(t)
	e.NetworkAccess.AdvanceTo(t)
	e.FirewallRules.AdvanceTo(t)
	e.AttackerLocations.AdvanceTo(t)
	e.AttackerGoals.AdvanceTo(t)
	e.Step()
	log.Printf("  computed in %s", time.Since(start))
}

func logUpdates(effectiveAccess, execCode, ownsMachine, goalReached []engine.Update) {
	for _, u := range effectiveAccess {
		log.Printf("  [t=%s] %s %s", u.Timestamp, sign(u.Diff), u.Record)
	}
	for _, u := range execCode {
		log.Printf("  [t=%s] %s %s", u.Timestamp, sign(u.Diff), u.Record)
	}
	for _, u := range ownsMachine {
		log.Printf("  [t=%s] %s %s", u.Timestamp, sign(u.Diff), u.Record)
	}
	for _, u := range goalReached {
		log.Printf("  [t=%s] %s %s (TARGET COMPROMISED)", u.Timestamp, sign(u.Diff), u.Record)
	}
}

func sign(d int64) string {
	if d > 0 {
		return "+"
	}
	return "-"
}
