package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

func newClaim(id string) *domain.Claim {
	return &domain.Claim{
		ID:               id,
		VehiclesInvolved: []string{"TRK-001"},
		Status:           domain.StatusSubmitted,
		CurrentAgent:     domain.StageFNOLIntake.ID(),
		Progress:         domain.InitialProgress,
		AgentOutputs:     map[string]string{},
		EditedData:       map[string]domain.StageEdit{},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	repo := NewClaimRepository(fixedNow)
	ctx := context.Background()
	if err := repo.Create(ctx, newClaim("CL-2026-000001")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, newClaim("CL-2026-000001"))
	if !domain.IsKind(err, domain.ErrDuplicateID) {
		t.Fatalf("expected duplicate id, got %v", err)
	}
}

func TestListMostRecentFirstWithFilter(t *testing.T) {
	repo := NewClaimRepository(fixedNow)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := repo.Create(ctx, newClaim(fmt.Sprintf("CL-2026-00000%d", i))); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	status := domain.StatusProcessing
	if err := repo.Update(ctx, "CL-2026-000002", domain.ClaimPatch{Status: &status}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	all, _ := repo.List(ctx, domain.ClaimFilter{})
	if len(all) != 3 || all[0].ID != "CL-2026-000003" || all[2].ID != "CL-2026-000001" {
		t.Fatalf("unexpected order: %v", ids(all))
	}
	processing, _ := repo.List(ctx, domain.ClaimFilter{Status: domain.StatusProcessing})
	if len(processing) != 1 || processing[0].ID != "CL-2026-000002" {
		t.Fatalf("unexpected filter result: %v", ids(processing))
	}
}

func TestMutationsOnMissingClaimReportNotFound(t *testing.T) {
	repo := NewClaimRepository(fixedNow)
	ctx := context.Background()
	progress := 50

	checks := map[string]error{
		"get":    func() error { _, err := repo.GetByID(ctx, "nope"); return err }(),
		"update": repo.Update(ctx, "nope", domain.ClaimPatch{Progress: &progress}),
		"output": repo.RecordStageOutput(ctx, "nope", "validation", "text"),
		"edit":   repo.RecordEdit(ctx, "nope", "validation", domain.StageEdit{"notes": "x"}),
	}
	for name, err := range checks {
		if !domain.IsKind(err, domain.ErrClaimNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
}

func TestReturnedClaimsAreCopies(t *testing.T) {
	repo := NewClaimRepository(fixedNow)
	ctx := context.Background()
	if err := repo.Create(ctx, newClaim("CL-2026-000001")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "CL-2026-000001")
	got.AgentOutputs["validation"] = "tampered"
	got.VehiclesInvolved[0] = "tampered"

	again, _ := repo.GetByID(ctx, "CL-2026-000001")
	if _, ok := again.AgentOutputs["validation"]; ok || again.VehiclesInvolved[0] != "TRK-001" {
		t.Fatalf("store state leaked through a returned claim")
	}
}

func TestRecordOverwritesAndPatchIsShallow(t *testing.T) {
	repo := NewClaimRepository(fixedNow)
	ctx := context.Background()
	if err := repo.Create(ctx, newClaim("CL-2026-000001")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_ = repo.RecordStageOutput(ctx, "CL-2026-000001", "validation", "first")
	_ = repo.RecordStageOutput(ctx, "CL-2026-000001", "validation", "second")
	_ = repo.RecordEdit(ctx, "CL-2026-000001", "validation", domain.StageEdit{"notes": "a", "location": "b"})
	_ = repo.RecordEdit(ctx, "CL-2026-000001", "validation", domain.StageEdit{"notes": "c"})
	progress := 25
	_ = repo.Update(ctx, "CL-2026-000001", domain.ClaimPatch{Progress: &progress})

	got, _ := repo.GetByID(ctx, "CL-2026-000001")
	if got.AgentOutputs["validation"] != "second" {
		t.Fatalf("expected overwritten output, got %q", got.AgentOutputs["validation"])
	}
	if len(got.EditedData["validation"]) != 1 || got.EditedData["validation"]["notes"] != "c" {
		t.Fatalf("expected overwritten edit, got %v", got.EditedData["validation"])
	}
	if got.Progress != 25 || got.Status != domain.StatusSubmitted || got.CurrentAgent != domain.StageFNOLIntake.ID() {
		t.Fatalf("patch touched more than progress: %+v", got)
	}
	if !got.UpdatedAt.Equal(fixedNow()) {
		t.Fatalf("expected updatedAt from clock, got %v", got.UpdatedAt)
	}
}

func TestConcurrentWritersAreSerialized(t *testing.T) {
	repo := NewClaimRepository(fixedNow)
	ctx := context.Background()
	if err := repo.Create(ctx, newClaim("CL-2026-000001")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.RecordStageOutput(ctx, "CL-2026-000001", fmt.Sprintf("stage-%d", i), "x")
		}(i)
	}
	wg.Wait()

	got, _ := repo.GetByID(ctx, "CL-2026-000001")
	if len(got.AgentOutputs) != 32 {
		t.Fatalf("expected 32 outputs, got %d", len(got.AgentOutputs))
	}
}

func ids(claims []domain.Claim) []string {
	out := make([]string, 0, len(claims))
	for _, c := range claims {
		out = append(out, c.ID)
	}
	return out
}
