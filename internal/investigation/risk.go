package investigation

import "github.com/rawblock/attackgraph-engine/pkg/schema"

// HostRiskAssessment composites everything known about a host's
// compromise state into one severity verdict for the analyst's
// dashboard: a weighted-signal score bucketed into a severity and a
// recommended action, the same shape as a per-transaction risk score.
//
// Severity levels: info (0-10), low (11-30), medium (31-50),
// high (51-75), critical (76-100).
type HostRiskAssessment struct {
	Host              string   `json:"host"`
	RiskScore         int      `json:"riskScore"`
	Severity          string   `json:"severity"`
	Signals           []string `json:"signals"`
	RecommendedAction string   `json:"recommendedAction"`
	IsGoalHost        bool     `json:"isGoalHost"`
	IsCompromised     bool     `json:"isCompromised"`
}

// ScoreHost scores a single host given what the engine currently
// believes about it: whether code execution has been achieved, at
// what privilege, whether the attacker owns it outright, and whether
// it's one of the incident's goal hosts.
func ScoreHost(host string, privilege schema.Privilege, hasExec, ownsMachine, isGoal bool, tag *HostTag) HostRiskAssessment {
	a := HostRiskAssessment{Host: host, IsGoalHost: isGoal}

	score := 0
	var signals []string

	if hasExec {
		a.IsCompromised = true
		switch privilege {
		case schema.PrivilegeUser:
			score += 30
			signals = append(signals, "user_execution")
		case schema.PrivilegeRoot:
			score += 50
			signals = append(signals, "root_execution")
		}
	}

	if ownsMachine {
		score += 30
		signals = append(signals, "machine_owned")
	}

	if isGoal && a.IsCompromised {
		score += 20
		signals = append(signals, "goal_host_compromised")
	}

	if tag != nil {
		switch tag.Role {
		case "patched":
			score -= 20
			signals = append(signals, "patched")
		case "entry-point":
			score += 10
			signals = append(signals, "entry_point")
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	a.RiskScore = score
	a.Signals = signals
	a.Severity = classifySeverity(score)
	a.RecommendedAction = recommendAction(score)
	return a
}

func classifySeverity(score int) string {
	switch {
	case score <= 10:
		return "info"
	case score <= 30:
		return "low"
	case score <= 50:
		return "medium"
	case score <= 75:
		return "high"
	default:
		return "critical"
	}
}

func recommendAction(score int) string {
	switch {
	case score <= 10:
		return "none"
	case score <= 30:
		return "log"
	case score <= 50:
		return "review"
	case score <= 75:
		return "alert"
	default:
		return "escalate"
	}
}
