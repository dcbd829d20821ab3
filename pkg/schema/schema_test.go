package schema

import "testing"

func TestKeyUniqueness(t *testing.T) {
	a := Vulnerability{Host: "h1", CVE: "CVE-1", Service: "ssh", GrantsPrivilege: PrivilegeRoot}
	b := Vulnerability{Host: "h1", CVE: "CVE-1", Service: "ssh", GrantsPrivilege: PrivilegeUser}
	if a.Key() == b.Key() {
		t.Errorf("distinct privileges must produce distinct keys, both got %s", a.Key())
	}

	c := Vulnerability{Host: "h1", CVE: "CVE-1", Service: "ssh", GrantsPrivilege: PrivilegeRoot}
	if a.Key() != c.Key() {
		t.Errorf("identical vulnerabilities must share a key: %s != %s", a.Key(), c.Key())
	}
}

func TestPrivilegeString(t *testing.T) {
	tests := []struct {
		p    Privilege
		want string
	}{
		{PrivilegeNone, "none"},
		{PrivilegeUser, "user"},
		{PrivilegeRoot, "root"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Privilege(%d).String() = %s, want %s", tt.p, got, tt.want)
		}
	}
}

func TestFirewallActionString(t *testing.T) {
	if ActionAllow.String() != "allow" {
		t.Errorf("ActionAllow.String() = %s, want allow", ActionAllow.String())
	}
	if ActionDeny.String() != "deny" {
		t.Errorf("ActionDeny.String() = %s, want deny", ActionDeny.String())
	}
}

func TestGoalReachedKeyMatchesAttackerAndTarget(t *testing.T) {
	g1 := GoalReached{AttackerID: "eve", Target: "db01"}
	g2 := GoalReached{AttackerID: "mallory", Target: "db01"}
	if g1.Key() == g2.Key() {
		t.Error("different attackers reaching the same target must have different keys")
	}
}
