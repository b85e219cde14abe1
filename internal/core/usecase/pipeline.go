package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
	"github.com/kirillkom/fleet-claims/internal/core/report"
)

// PipelineUseCase executes one stage per Step. A step holds the claim's lock
// for its whole read-render-write; a busy claim fails fast with
// ErrStepInFlight. Steps on different claims run freely.
type PipelineUseCase struct {
	repo       ports.ClaimRepository
	observer   ports.PipelineObserver
	dispatcher ports.StepDispatcher
	locks      *ClaimLocks
}

func NewPipelineUseCase(repo ports.ClaimRepository, observer ports.PipelineObserver) *PipelineUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	return &PipelineUseCase{
		repo:     repo,
		observer: observer,
		locks:    NewClaimLocks(),
	}
}

// Locks returns the per-claim lock Step takes. EditUseCase must share it.
func (uc *PipelineUseCase) Locks() *ClaimLocks {
	return uc.locks
}

// AttachDispatcher sets the scheduler that Cancel stops. The scheduler itself
// calls Step, so it is attached after construction.
func (uc *PipelineUseCase) AttachDispatcher(d ports.StepDispatcher) {
	uc.dispatcher = d
}

// Cancel stops scheduled stepping of a claim. Recorded outputs are kept.
func (uc *PipelineUseCase) Cancel(ctx context.Context, id string) error {
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if uc.dispatcher == nil {
		return nil
	}
	if err := uc.dispatcher.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel pipeline for %s: %w", id, err)
	}
	return nil
}

func (uc *PipelineUseCase) Step(ctx context.Context, id string) (domain.StepResult, error) {
	if !uc.locks.TryLock(id) {
		return domain.StepResult{}, domain.WrapError(domain.ErrStepInFlight, "step claim", fmt.Errorf("claim %s", id))
	}
	defer uc.locks.Unlock(id)

	claim, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("load claim: %w", err)
	}
	if claim.Status.IsTerminal() {
		return domain.StepResult{Claim: claim, Stage: domain.AgentCompleted, Done: true}, nil
	}

	idx := nextStageIndex(claim)
	if idx >= domain.StageCount() {
		return uc.finish(ctx, claim)
	}
	return uc.execute(ctx, claim, domain.Stage(idx))
}

// RunToCompletion steps the claim until it reaches the terminal state.
func (uc *PipelineUseCase) RunToCompletion(ctx context.Context, id string) (*domain.Claim, error) {
	for i := 0; i <= domain.StageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := uc.Step(ctx, id)
		if err != nil {
			return nil, err
		}
		if res.Done {
			return res.Claim, nil
		}
	}
	return nil, fmt.Errorf("claim %s did not complete after %d steps", id, domain.StageCount()+1)
}

// nextStageIndex resolves the stage to run: the current one when it has no
// recorded output yet (fresh claim or failed attempt), else the one after.
func nextStageIndex(claim *domain.Claim) int {
	stage, ok := domain.ParseStage(claim.CurrentAgent)
	if !ok {
		if claim.CurrentAgent == domain.AgentCompleted {
			return domain.StageCount()
		}
		stage = domain.StageFNOLIntake
	}
	if _, done := claim.AgentOutputs[stage.ID()]; done {
		return int(stage) + 1
	}
	return int(stage)
}

func (uc *PipelineUseCase) execute(ctx context.Context, claim *domain.Claim, stage domain.Stage) (domain.StepResult, error) {
	started := time.Now()
	rep, err := report.Synthesize(stage, claim, claim.EditedData[stage.ID()])
	uc.observer.StageExecuted(stage.ID(), time.Since(started), err)
	if err != nil {
		return domain.StepResult{}, uc.fail(ctx, claim.ID, stage, err)
	}

	if err := uc.repo.RecordStageOutput(ctx, claim.ID, stage.ID(), rep.Text); err != nil {
		return domain.StepResult{}, fmt.Errorf("record %s output: %w", stage.ID(), err)
	}

	progress := max(claim.Progress, domain.StageProgress(stage))
	patch := domain.ClaimPatch{
		Status:       ptr(domain.StatusProcessing),
		CurrentAgent: ptr(stage.ID()),
		Progress:     &progress,
		LastError:    ptr(""),
	}
	if rep.Fraud != nil {
		patch.FraudRiskScore = &rep.Fraud.Level
	}
	if rep.Settlement != nil {
		patch.PayoutEstimate = &rep.Settlement.Net
	}
	if err := uc.repo.Update(ctx, claim.ID, patch); err != nil {
		return domain.StepResult{}, fmt.Errorf("advance claim to %s: %w", stage.ID(), err)
	}

	updated, err := uc.repo.GetByID(ctx, claim.ID)
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("reload claim: %w", err)
	}
	slog.Info("stage_executed", "claim_id", claim.ID, "stage", stage.ID(), "progress", progress)
	return domain.StepResult{Claim: updated, Stage: stage.ID(), Report: rep.Text}, nil
}

func (uc *PipelineUseCase) fail(ctx context.Context, id string, stage domain.Stage, cause error) error {
	slog.Warn("stage_failed", "claim_id", id, "stage", stage.ID(), "error", cause)
	stageErr := domain.WrapError(domain.ErrStageFailed, "execute "+stage.ID(), cause)
	patch := domain.ClaimPatch{
		Status:    ptr(domain.StatusError),
		LastError: ptr(cause.Error()),
	}
	if err := uc.repo.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("%w; mark error status: %v", stageErr, err)
	}
	return stageErr
}

func (uc *PipelineUseCase) finish(ctx context.Context, claim *domain.Claim) (domain.StepResult, error) {
	settlement, err := report.SettlementFor(claim, claim.EditedData[domain.StageSettlementPayout.ID()])
	if err != nil {
		return domain.StepResult{}, uc.fail(ctx, claim.ID, domain.StageSettlementPayout, err)
	}

	patch := domain.ClaimPatch{
		Status:         ptr(domain.StatusApproved),
		CurrentAgent:   ptr(domain.AgentCompleted),
		Progress:       ptr(100),
		PayoutEstimate: &settlement.Net,
		LastError:      ptr(""),
	}
	if err := uc.repo.Update(ctx, claim.ID, patch); err != nil {
		return domain.StepResult{}, fmt.Errorf("approve claim: %w", err)
	}
	uc.observer.ClaimApproved(settlement.Net)

	updated, err := uc.repo.GetByID(ctx, claim.ID)
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("reload claim: %w", err)
	}
	slog.Info("claim_approved", "claim_id", claim.ID, "payout", settlement.Net)
	return domain.StepResult{Claim: updated, Stage: domain.AgentCompleted, Done: true}, nil
}

func ptr[T any](v T) *T { return &v }
