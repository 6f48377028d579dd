package domain

import "testing"

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		role, required Role
		want           bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleOperator, true},
		{RoleOperator, RoleOperator, true},
		{RoleOperator, RoleAdmin, false},
		{"", RoleOperator, false},
		{"viewer", RoleOperator, false},
		{RoleAdmin, "", false},
	}
	for _, tc := range cases {
		if got := tc.role.AtLeast(tc.required); got != tc.want {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tc.role, tc.required, got, tc.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if ParseRole(" Admin ") != RoleAdmin {
		t.Error("ParseRole should trim and lowercase")
	}
	if ParseRole("superuser") != "" {
		t.Error("unknown role should parse to empty")
	}
}

func TestParseSeverity(t *testing.T) {
	if ParseSeverity("CRITICAL") != SeverityCritical {
		t.Error("ParseSeverity should lowercase")
	}
	if ParseSeverity("weird") != SeverityLow {
		t.Error("unknown severity should degrade to low")
	}
}
