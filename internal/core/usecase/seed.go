package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
)

// SeedUseCase inserts demo claims under fixed ids and drives each one through
// the real pipeline, so seeded state is reachable by ordinary steps.
type SeedUseCase struct {
	repo     ports.ClaimRepository
	assigner ports.AdjusterAssigner
	pipeline ports.PipelineStepper
	now      ports.Clock
}

func NewSeedUseCase(
	repo ports.ClaimRepository,
	assigner ports.AdjusterAssigner,
	pipeline ports.PipelineStepper,
	now ports.Clock,
) *SeedUseCase {
	if now == nil {
		now = time.Now
	}
	return &SeedUseCase{repo: repo, assigner: assigner, pipeline: pipeline, now: now}
}

// Seed returns the number of claims inserted. Claims whose id is already
// stored are skipped, which keeps seeding idempotent across restarts.
func (uc *SeedUseCase) Seed(ctx context.Context, seeds []domain.SeedClaim) (int, error) {
	inserted := 0
	for _, s := range seeds {
		if s.ID == "" {
			return inserted, domain.WrapError(domain.ErrInvalidInput, "seed claims", fmt.Errorf("seed claim without id"))
		}
		if s.Steps < 0 || s.Steps > domain.StageCount()+1 {
			return inserted, domain.WrapError(domain.ErrInvalidInput, "seed claims", fmt.Errorf("claim %s: steps %d out of range", s.ID, s.Steps))
		}

		submitted := uc.now().UTC().Add(-time.Duration(s.DaysAgo) * 24 * time.Hour)
		claim := newClaim(s.Intake, submitted)
		claim.ID = s.ID
		if uc.assigner != nil {
			assignAdjuster(claim, uc.assigner.Assign(claim))
		}

		if err := uc.repo.Create(ctx, claim); err != nil {
			if domain.IsKind(err, domain.ErrDuplicateID) {
				continue
			}
			return inserted, fmt.Errorf("create seed claim %s: %w", s.ID, err)
		}
		inserted++

		for i := 0; i < s.Steps; i++ {
			res, err := uc.pipeline.Step(ctx, s.ID)
			if err != nil {
				// A failing seed stays in the error state, like any other claim.
				slog.Warn("seed_step_failed", "claim_id", s.ID, "step", i+1, "error", err)
				break
			}
			if res.Done {
				break
			}
		}
	}
	return inserted, nil
}
