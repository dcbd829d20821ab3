package rules

import (
	"github.com/rawblock/attackgraph-engine/internal/dataflow"
	"github.com/rawblock/attackgraph-engine/pkg/collection"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

// BuildAttackGraphBounded computes the attack graph from a one-shot
// snapshot of facts by unrolling the recursive exec-code rule exactly
// maxHops times instead of iterating to a fixed point. Grounded directly
// on the original source's build_attack_graph_bounded: every hop joins
// the exec-code facts that the previous hop newly added against access
// and vulnerability and folds the results through a Distinct, so a hop
// that adds nothing ends the loop early; the loop also stops after
// maxHops even if the real attack chain
// is longer — a caller who wants a hard work bound on an arbitrarily
// large graph trades completeness for that bound. Unlike Graph, this
// retains no state across calls, and like the original variant it takes
// networkAccess as already-effective access with no firewall rules.
func BuildAttackGraphBounded(
	vulnerabilities []schema.Vulnerability,
	networkAccess []schema.NetworkAccess,
	attackerLocations []schema.AttackerLocation,
	attackerGoals []schema.AttackerGoal,
	maxHops int,
	ts collection.Timestamp,
) Output {
	hostJoin := dataflow.NewJoin(execByHostKey, accessBySrcKey, combineCandidate)
	vulnJoin := dataflow.NewJoin(candidateByHostServiceKey, vulnByHostServiceKey, combineExec)
	execDistinct := dataflow.NewDistinct()
	ownsDistinct := dataflow.NewDistinct()
	goalSemijoin := dataflow.NewSemijoin(goalKey)

	access := dataflow.Map(batchAt(networkAccess, ts), toEffectiveAccess)
	hostJoin.Apply(nil, access)
	vulnJoin.Apply(nil, batchAt(vulnerabilities, ts))

	seed := dataflow.Map(batchAt(attackerLocations, ts), func(r collection.Record) collection.Record {
		loc := r.(schema.AttackerLocation)
		return schema.ExecCode{AttackerID: loc.AttackerID, Host: loc.Host, Privilege: loc.Privilege}
	})

	var allExec collection.Collection
	exec := execDistinct.Apply(seed)
	allExec = append(allExec, exec...)

	for hop := 0; hop < maxHops && len(exec) > 0; hop++ {
		asHostAttacker := dataflow.Map(exec, func(r collection.Record) collection.Record {
			ec := r.(schema.ExecCode)
			return hostAttacker{Host: ec.Host, Attacker: ec.AttackerID}
		})
		candidateDelta := hostJoin.Apply(asHostAttacker, nil)
		newExecRaw := vulnJoin.Apply(candidateDelta, nil)
		exec = execDistinct.Apply(newExecRaw)
		allExec = append(allExec, exec...)
	}

	execCode := collection.Consolidate(allExec)

	rootOnly := dataflow.Filter(execCode, func(r collection.Record) bool {
		return r.(schema.ExecCode).Privilege == schema.PrivilegeRoot
	})
	ownsCandidate := dataflow.Map(rootOnly, func(r collection.Record) collection.Record {
		ec := r.(schema.ExecCode)
		return schema.OwnsMachine{AttackerID: ec.AttackerID, Host: ec.Host}
	})
	ownsMachine := ownsDistinct.Apply(ownsCandidate)

	ownsKeys := dataflow.Map(ownsMachine, func(r collection.Record) collection.Record {
		om := r.(schema.OwnsMachine)
		return ownsMachineKey{AttackerID: om.AttackerID, Host: om.Host}
	})
	reachedRaw := goalSemijoin.Apply(batchAt(attackerGoals, ts), ownsKeys)
	goalReached := dataflow.Map(reachedRaw, toGoalReached)

	return Output{
		EffectiveAccess: collection.Consolidate(access),
		ExecCode:        execCode,
		OwnsMachine:     collection.Consolidate(ownsMachine),
		GoalReached:     collection.Consolidate(goalReached),
	}
}

// batchAt wraps a plain fact slice as a diff-one Collection at ts, the
// one-shot-snapshot counterpart to the engine's incremental Insert path.
func batchAt[T collection.Record](facts []T, ts collection.Timestamp) collection.Collection {
	batch := make(collection.Collection, 0, len(facts))
	for _, f := range facts {
		batch = append(batch, collection.Entry{Record: f, Timestamp: ts, Diff: 1})
	}
	return batch
}
