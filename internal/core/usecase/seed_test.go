package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

func TestSeedDrivesClaimsThroughPipeline(t *testing.T) {
	repo := newClaimRepoFake()
	pipeline := NewPipelineUseCase(repo, nil)
	uc := NewSeedUseCase(repo, &assignerFake{adjuster: sarah}, pipeline, fixedClock)

	seeds := []domain.SeedClaim{
		{ID: "CL-2024-001234", DaysAgo: 2, Steps: domain.StageCount() + 1, Intake: collisionIntake()},
		{ID: "CL-2024-001236", DaysAgo: 1, Steps: 3, Intake: collisionIntake()},
		{ID: "CL-2024-001238", Steps: 0, Intake: collisionIntake()},
	}
	n, err := uc.Seed(context.Background(), seeds)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 inserted, got %d", n)
	}

	done, _ := repo.GetByID(context.Background(), "CL-2024-001234")
	if done.Status != domain.StatusApproved || done.Progress != 100 {
		t.Fatalf("expected approved seed, got %s %d", done.Status, done.Progress)
	}
	mid, _ := repo.GetByID(context.Background(), "CL-2024-001236")
	if mid.CurrentAgent != domain.StageFraudDetection.ID() || len(mid.AgentOutputs) != 3 {
		t.Fatalf("expected claim at fraud-detection, got %s with %d outputs", mid.CurrentAgent, len(mid.AgentOutputs))
	}
	fresh, _ := repo.GetByID(context.Background(), "CL-2024-001238")
	if fresh.Status != domain.StatusSubmitted || fresh.Progress != domain.InitialProgress {
		t.Fatalf("expected untouched seed, got %s %d", fresh.Status, fresh.Progress)
	}

	again, err := uc.Seed(context.Background(), seeds)
	if err != nil || again != 0 {
		t.Fatalf("expected idempotent reseed, got %d %v", again, err)
	}
}

func TestSeedRejectsBadSteps(t *testing.T) {
	repo := newClaimRepoFake()
	uc := NewSeedUseCase(repo, nil, NewPipelineUseCase(repo, nil), fixedClock)
	_, err := uc.Seed(context.Background(), []domain.SeedClaim{{ID: "CL-2024-000001", Steps: 42}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
