package domain_test

import (
	"eduassist/internal/domain"
	"testing"
)

func TestParseRoleKnown(t *testing.T) {
	cases := map[string]domain.Role{
		"admin":     domain.RoleAdmin,
		" Student ": domain.RoleStudent,
		"LECTURER":  domain.RoleLecturer,
	}

	for raw, want := range cases {
		got, ok := domain.ParseRole(raw)
		if !ok {
			t.Fatalf("expected %q to be a known role", raw)
		}
		if got != want {
			t.Fatalf("unexpected role for %q: got %q want %q", raw, got, want)
		}
	}
}

func TestParseRoleUnknownFallsBackToStudent(t *testing.T) {
	for _, raw := range []string{"", "dean", "root"} {
		got, ok := domain.ParseRole(raw)
		if ok {
			t.Fatalf("expected %q to be unknown", raw)
		}
		if got != domain.RoleStudent {
			t.Fatalf("expected student fallback for %q, got %q", raw, got)
		}
	}
}

func TestQueryContextFromMap(t *testing.T) {
	qctx := domain.QueryContextFromMap(map[string]string{
		"course": "CS101",
		"topic":  "loops",
		"other":  "ignored",
	})

	if qctx.Course != "CS101" || qctx.Topic != "loops" {
		t.Fatalf("unexpected context: %+v", qctx)
	}

	if !domain.QueryContextFromMap(nil).IsEmpty() {
		t.Fatalf("expected nil map to produce empty context")
	}
}
