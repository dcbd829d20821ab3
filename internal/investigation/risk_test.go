package investigation

import (
	"testing"

	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

func TestScoreHostNoSignalsIsInfo(t *testing.T) {
	a := ScoreHost("idle-host", schema.PrivilegeNone, false, false, false, nil)
	if a.RiskScore != 0 {
		t.Errorf("RiskScore = %d, want 0", a.RiskScore)
	}
	if a.Severity != "info" || a.RecommendedAction != "none" {
		t.Errorf("got severity=%s action=%s, want info/none", a.Severity, a.RecommendedAction)
	}
	if a.IsCompromised {
		t.Error("host with no exec should not be marked compromised")
	}
}

func TestScoreHostRootExecutionAndOwnershipEscalates(t *testing.T) {
	a := ScoreHost("db01", schema.PrivilegeRoot, true, true, true, nil)
	// root_execution(50) + machine_owned(30) + goal_host_compromised(20) = 100
	if a.RiskScore != 100 {
		t.Errorf("RiskScore = %d, want 100", a.RiskScore)
	}
	if a.Severity != "critical" || a.RecommendedAction != "escalate" {
		t.Errorf("got severity=%s action=%s, want critical/escalate", a.Severity, a.RecommendedAction)
	}
	if !a.IsCompromised {
		t.Error("expected IsCompromised true")
	}
}

func TestScoreHostPatchedTagReducesScore(t *testing.T) {
	tag := &HostTag{Role: "patched"}
	a := ScoreHost("jump", schema.PrivilegeUser, true, false, false, tag)
	// user_execution(30) - patched(20) = 10
	if a.RiskScore != 10 {
		t.Errorf("RiskScore = %d, want 10", a.RiskScore)
	}
	if a.Severity != "info" {
		t.Errorf("Severity = %s, want info at the boundary score of 10", a.Severity)
	}
}

func TestScoreHostNeverGoesNegative(t *testing.T) {
	tag := &HostTag{Role: "patched"}
	a := ScoreHost("jump", schema.PrivilegeNone, false, false, false, tag)
	if a.RiskScore != 0 {
		t.Errorf("RiskScore = %d, want clamped to 0", a.RiskScore)
	}
}

func TestClassifySeverityBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "info"}, {10, "info"}, {11, "low"}, {30, "low"},
		{31, "medium"}, {50, "medium"}, {51, "high"}, {75, "high"}, {76, "critical"}, {100, "critical"},
	}
	for _, tt := range tests {
		if got := classifySeverity(tt.score); got != tt.want {
			t.Errorf("classifySeverity(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
