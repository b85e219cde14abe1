package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

func TestDefaultRosterAssignsByLossType(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cases := map[string]string{
		"Collision":               "Sarah Johnson",
		"Cargo Theft":             "Mike Chen",
		"Vehicle Theft":           "Lisa Rodriguez",
		"Multi-Vehicle Collision": "David Kim",
		"Vandalism":               "David Kim",
		"Fire Damage":             "Lisa Rodriguez",
	}
	for loss, want := range cases {
		got := r.Assign(&domain.Claim{ID: "CL-2026-000001", LossType: loss})
		if got.Name != want {
			t.Fatalf("%s: expected %s, got %s", loss, want, got.Name)
		}
	}
}

func TestAssignBreaksTiesByClaimNumber(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		claim := &domain.Claim{ID: "CL-2026-00000" + string(rune('0'+i)), LossType: "Glass breakage"}
		seen[r.Assign(claim).Name] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected unmatched claims spread over the roster, got %v", seen)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	data := []byte("adjusters:\n  - name: Pat Lee\n    email: pat@example.com\n    keywords: [Glass]\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := r.Assign(&domain.Claim{ID: "CL-2026-000001", LossType: "Glass breakage"})
	if got.Name != "Pat Lee" || got.Keywords[0] != "glass" {
		t.Fatalf("unexpected adjuster %+v", got)
	}
}

func TestParseRejectsEmptyRoster(t *testing.T) {
	if _, err := Parse([]byte("adjusters: []\n")); err == nil {
		t.Fatalf("expected error for empty roster")
	}
	if _, err := Parse([]byte("adjusters:\n  - email: x@y.z\n")); err == nil {
		t.Fatalf("expected error for unnamed adjuster")
	}
}
