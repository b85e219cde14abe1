package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
	"github.com/kirillkom/fleet-claims/internal/core/report"
)

// dependentStages lists stages whose recorded report reads another stage's edits.
var dependentStages = map[domain.Stage][]domain.Stage{
	domain.StageFraudDetection:   {domain.StageCommunication},
	domain.StageDamageAssessment: {domain.StageSettlementPayout, domain.StageCommunication},
	domain.StageSettlementPayout: {domain.StageCommunication},
}

type EditUseCase struct {
	repo  ports.ClaimRepository
	locks *ClaimLocks
}

// NewEditUseCase wires edits to the pipeline's claim locks. A nil locks value
// gets a private set, which is only safe when nothing steps the same claims.
func NewEditUseCase(repo ports.ClaimRepository, locks *ClaimLocks) *EditUseCase {
	if locks == nil {
		locks = NewClaimLocks()
	}
	return &EditUseCase{repo: repo, locks: locks}
}

// EditStage records a human overlay for one stage. When the stage already ran,
// its report and every dependent report already recorded are re-synthesized.
// An edit waits for a step in flight on the same claim to finish.
func (uc *EditUseCase) EditStage(ctx context.Context, id, stageID string, fields domain.StageEdit) (*domain.Claim, error) {
	stage, err := parseStage(stageID)
	if err != nil {
		return nil, err
	}
	if err := report.ValidateOverride(stage, fields); err != nil {
		return nil, err
	}
	if err := uc.locks.Lock(ctx, id); err != nil {
		return nil, domain.WrapError(domain.ErrStepInFlight, "edit "+stage.ID(), err)
	}
	defer uc.locks.Unlock(id)
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("load claim: %w", err)
	}

	if err := uc.repo.RecordEdit(ctx, id, stage.ID(), fields.Clone()); err != nil {
		return nil, fmt.Errorf("record %s edit: %w", stage.ID(), err)
	}

	claim, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload claim: %w", err)
	}
	for _, s := range append([]domain.Stage{stage}, dependentStages[stage]...) {
		if _, ran := claim.AgentOutputs[s.ID()]; !ran {
			continue
		}
		if err := uc.refresh(ctx, claim, s); err != nil {
			return nil, err
		}
	}

	claim, err = uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload claim: %w", err)
	}
	return claim, nil
}

func (uc *EditUseCase) refresh(ctx context.Context, claim *domain.Claim, stage domain.Stage) error {
	rep, err := report.Synthesize(stage, claim, claim.EditedData[stage.ID()])
	if err != nil {
		return domain.WrapError(domain.ErrStageFailed, "refresh "+stage.ID(), err)
	}
	if err := uc.repo.RecordStageOutput(ctx, claim.ID, stage.ID(), rep.Text); err != nil {
		return fmt.Errorf("record %s output: %w", stage.ID(), err)
	}

	var patch domain.ClaimPatch
	changed := false
	if rep.Fraud != nil {
		patch.FraudRiskScore = &rep.Fraud.Level
		changed = true
	}
	if rep.Settlement != nil {
		patch.PayoutEstimate = &rep.Settlement.Net
		changed = true
	}
	if !changed {
		return nil
	}
	if err := uc.repo.Update(ctx, claim.ID, patch); err != nil {
		return fmt.Errorf("apply %s edit: %w", stage.ID(), err)
	}
	return nil
}

// PreviewStage renders a stage with its current overlay without recording anything.
func (uc *EditUseCase) PreviewStage(ctx context.Context, id, stageID string) (string, error) {
	stage, err := parseStage(stageID)
	if err != nil {
		return "", err
	}
	claim, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load claim: %w", err)
	}
	rep, err := report.Synthesize(stage, claim, claim.EditedData[stage.ID()])
	if err != nil {
		return "", domain.WrapError(domain.ErrStageFailed, "preview "+stage.ID(), err)
	}
	return rep.Text, nil
}

func parseStage(id string) (domain.Stage, error) {
	stage, ok := domain.ParseStage(id)
	if !ok {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse stage", fmt.Errorf("unknown stage %q", id))
	}
	return stage, nil
}
