// Package rules compiles the stratified attack-graph rules onto the
// operators in internal/dataflow: an anti-join for effective network
// access (default-allow, explicit-deny), a recursive join+iterate for
// transitive code execution, and a filter/semijoin pair for ownership
// and goal-reached.
package rules

import (
	"github.com/rawblock/attackgraph-engine/internal/dataflow"
	"github.com/rawblock/attackgraph-engine/pkg/collection"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

// Graph holds every persistent operator arrangement the five rules need
// and exposes one input method per base relation. Each Push* call
// returns the consolidated delta the update causes on every derived
// relation it can affect; callers accumulate these across a flush.
type Graph struct {
	denyDistinct *dataflow.Distinct
	antijoin     *dataflow.Antijoin

	hostJoin *dataflow.Join
	vulnJoin *dataflow.Join
	iterate  *dataflow.IterationScope

	ownsDistinct *dataflow.Distinct
	goalSemijoin *dataflow.Semijoin
}

// NewGraph builds an empty attack graph with no facts yet asserted.
func NewGraph() *Graph {
	g := &Graph{
		denyDistinct: dataflow.NewDistinct(),
		ownsDistinct: dataflow.NewDistinct(),
	}
	g.antijoin = dataflow.NewAntijoin(networkAccessKey)
	g.hostJoin = dataflow.NewJoin(execByHostKey, accessBySrcKey, combineCandidate)
	g.vulnJoin = dataflow.NewJoin(candidateByHostServiceKey, vulnByHostServiceKey, combineExec)
	g.goalSemijoin = dataflow.NewSemijoin(goalKey)
	g.iterate = dataflow.NewIterationScope(g.iterationBody)
	return g
}

// Output is every derived relation's delta from a single Step.
type Output struct {
	EffectiveAccess collection.Collection
	ExecCode        collection.Collection
	OwnsMachine     collection.Collection
	GoalReached     collection.Collection
}

// denyKey is the (src, dst, service) triple an explicit deny rule
// blocks; it exists purely as an anti-join key, mirroring the
// original rule's (rule.src, rule.dst, rule.service) projection.
type denyKey struct{ Src, Dst, Service string }

func (k denyKey) Key() string { return "eff|" + k.Src + "|" + k.Dst + "|" + k.Service }

func networkAccessKey(r collection.Record) string {
	na := r.(schema.NetworkAccess)
	return "eff|" + na.Src + "|" + na.Dst + "|" + na.Service
}

// hostAttacker is the intermediate (host, attacker) pairing used to
// join current exec positions against effective access by source host.
type hostAttacker struct {
	Host, Attacker string
}

func (h hostAttacker) Key() string { return h.Host + "|" + h.Attacker }

func execByHostKey(r collection.Record) string { return r.(hostAttacker).Host }

// dstServiceAttacker is a host-join match: an effective access's
// destination host and service, paired with the attacker who can reach
// it from the access's source.
type dstServiceAttacker struct {
	Dst, Service, Attacker string
}

func (d dstServiceAttacker) Key() string { return d.Dst + "|" + d.Service + "|" + d.Attacker }

func accessBySrcKey(r collection.Record) string {
	return r.(schema.EffectiveAccess).Src
}

func combineCandidate(left, right collection.Record) collection.Record {
	ha := left.(hostAttacker)
	ea := right.(schema.EffectiveAccess)
	return dstServiceAttacker{Dst: ea.Dst, Service: ea.Service, Attacker: ha.Attacker}
}

func candidateByHostServiceKey(r collection.Record) string {
	d := r.(dstServiceAttacker)
	return d.Dst + "|" + d.Service
}

func vulnByHostServiceKey(r collection.Record) string {
	v := r.(schema.Vulnerability)
	return v.Host + "|" + v.Service
}

func combineExec(left, right collection.Record) collection.Record {
	d := left.(dstServiceAttacker)
	v := right.(schema.Vulnerability)
	return schema.ExecCode{AttackerID: d.Attacker, Host: d.Dst, Privilege: v.GrantsPrivilege}
}

func goalKey(r collection.Record) string {
	g := r.(schema.AttackerGoal)
	return g.AttackerID + "|" + g.TargetHost
}

// iterationBody is the recursive step of rule 2/3: from the settled
// exec-code delta, find newly reachable (host, service) destinations and
// join them against vulnerabilities to produce candidate new ExecCode
// facts. Access and vulnerability changes are folded into the
// hostJoin/vulnJoin arrangements directly by drainIteration before a
// Step call starts, so every round here only ever needs to propagate
// the previous round's settled delta through the already-current
// arrangements.
func (g *Graph) iterationBody(roundDelta collection.Collection, round int) collection.Collection {
	execDelta := dataflow.Map(roundDelta, func(r collection.Record) collection.Record {
		ec := r.(schema.ExecCode)
		return hostAttacker{Host: ec.Host, Attacker: ec.AttackerID}
	})
	candidateDelta := g.hostJoin.Apply(execDelta, nil)
	return g.vulnJoin.Apply(candidateDelta, nil)
}

// PushVulnerability asserts or retracts a Vulnerability with the given
// diff and returns the derived changes it causes.
func (g *Graph) PushVulnerability(v schema.Vulnerability, diff collection.Diff, ts collection.Timestamp) Output {
	vulnDelta := collection.Collection{{Record: v, Timestamp: ts, Diff: diff}}
	return g.drainIteration(nil, vulnDelta, ts)
}

// PushNetworkAccess asserts or retracts a NetworkAccess edge.
func (g *Graph) PushNetworkAccess(na schema.NetworkAccess, diff collection.Diff, ts collection.Timestamp) Output {
	batch := collection.Collection{{Record: na, Timestamp: ts, Diff: diff}}
	effDelta := g.antijoin.Apply(batch, nil)
	effDelta = dataflow.Map(effDelta, toEffectiveAccess)
	out := g.drainIteration(effDelta, nil, ts)
	out.EffectiveAccess = dataflow.Concat(effDelta, out.EffectiveAccess)
	return out
}

func toEffectiveAccess(r collection.Record) collection.Record {
	na := r.(schema.NetworkAccess)
	return schema.EffectiveAccess{Src: na.Src, Dst: na.Dst, Service: na.Service}
}

// PushFirewallRule asserts or retracts a FirewallRule. Only Deny rules
// ever affect effective access; Allow rules are recorded but inert,
// matching the default-allow model.
func (g *Graph) PushFirewallRule(fr schema.FirewallRule, diff collection.Diff, ts collection.Timestamp) Output {
	if fr.Action != schema.ActionDeny {
		return Output{}
	}
	dk := denyKey{Src: fr.SrcZone, Dst: fr.Dst, Service: fr.Service}
	keyBatch := collection.Collection{{Record: dk, Timestamp: ts, Diff: diff}}
	denyDelta := g.denyDistinct.Apply(keyBatch)
	if len(denyDelta) == 0 {
		return Output{}
	}
	effDelta := g.antijoin.Apply(nil, denyDelta)
	effDelta = dataflow.Map(effDelta, toEffectiveAccess)
	out := g.drainIteration(effDelta, nil, ts)
	out.EffectiveAccess = dataflow.Concat(effDelta, out.EffectiveAccess)
	return out
}

// PushAttackerLocation asserts or retracts an attacker's foothold,
// feeding the iteration's non-recursive base case directly.
func (g *Graph) PushAttackerLocation(loc schema.AttackerLocation, diff collection.Diff, ts collection.Timestamp) Output {
	seed := collection.Collection{{
		Record:    schema.ExecCode{AttackerID: loc.AttackerID, Host: loc.Host, Privilege: loc.Privilege},
		Timestamp: ts,
		Diff:      diff,
	}}
	execDelta := g.iterate.Step(seed)
	return g.propagateFromExec(execDelta, ts)
}

// PushAttackerGoal asserts or retracts an attacker's target host.
func (g *Graph) PushAttackerGoal(goal schema.AttackerGoal, diff collection.Diff, ts collection.Timestamp) Output {
	batch := collection.Collection{{Record: goal, Timestamp: ts, Diff: diff}}
	reachedRaw := g.goalSemijoin.Apply(batch, nil)
	reached := dataflow.Map(reachedRaw, toGoalReached)
	return Output{GoalReached: collection.Consolidate(reached)}
}

// drainIteration folds a non-recursive access/vuln change into the
// hostJoin/vulnJoin arrangements and derives its direct ExecCode
// consequence, then feeds that as the iteration's seed so it gets
// carried to a fixed point like any other exec-code change. Join.Apply's
// bilinear decomposition means a single pair of calls accounts for new
// access against old vulns, old candidates against new vulns, and new
// access against new vulns, with no double-counting:
//
//	seed = (hostJoin: exec_old ⋈ dAccess) ⋈-then-vuln (dVuln)
func (g *Graph) drainIteration(accessDelta, vulnDelta collection.Collection, ts collection.Timestamp) Output {
	if len(accessDelta) == 0 && len(vulnDelta) == 0 {
		return Output{}
	}
	candidateFromAccess := g.hostJoin.Apply(nil, accessDelta)
	seed := g.vulnJoin.Apply(candidateFromAccess, vulnDelta)
	execDelta := g.iterate.Step(seed)
	return g.propagateFromExec(execDelta, ts)
}

func toGoalReached(r collection.Record) collection.Record {
	g := r.(schema.AttackerGoal)
	return schema.GoalReached{AttackerID: g.AttackerID, Target: g.TargetHost}
}

// propagateFromExec pushes an ExecCode delta through rules 4 and 5,
// returning every relation it affects.
func (g *Graph) propagateFromExec(execDelta collection.Collection, ts collection.Timestamp) Output {
	out := Output{ExecCode: execDelta}
	if len(execDelta) == 0 {
		return out
	}

	rootOnly := dataflow.Filter(execDelta, func(r collection.Record) bool {
		return r.(schema.ExecCode).Privilege == schema.PrivilegeRoot
	})
	ownsCandidate := dataflow.Map(rootOnly, func(r collection.Record) collection.Record {
		ec := r.(schema.ExecCode)
		return schema.OwnsMachine{AttackerID: ec.AttackerID, Host: ec.Host}
	})
	ownsDelta := g.ownsDistinct.Apply(ownsCandidate)
	out.OwnsMachine = ownsDelta
	if len(ownsDelta) == 0 {
		return out
	}

	ownsKeys := dataflow.Map(ownsDelta, func(r collection.Record) collection.Record {
		om := r.(schema.OwnsMachine)
		return ownsMachineKey{AttackerID: om.AttackerID, Host: om.Host}
	})
	reachedRaw := g.goalSemijoin.Apply(nil, ownsKeys)
	out.GoalReached = collection.Consolidate(dataflow.Map(reachedRaw, toGoalReached))
	return out
}

// ownsMachineKey is OwnsMachine re-keyed to match AttackerGoal's
// semijoin key, (attacker, target host).
type ownsMachineKey struct{ AttackerID, Host string }

func (k ownsMachineKey) Key() string { return k.AttackerID + "|" + k.Host }
