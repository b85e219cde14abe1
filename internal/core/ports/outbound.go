package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

// ClaimRepository persists and reads claim state.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error)
	Update(ctx context.Context, id string, patch domain.ClaimPatch) error
	RecordStageOutput(ctx context.Context, id, stage, text string) error
	RecordEdit(ctx context.Context, id, stage string, fields domain.StageEdit) error
}

// StepDispatcher schedules repeated pipeline steps for a claim.
type StepDispatcher interface {
	Start(ctx context.Context, claimID string) error
	Cancel(ctx context.Context, claimID string) error
}

// AdjusterAssigner picks the adjuster responsible for a new claim.
type AdjusterAssigner interface {
	Assign(claim *domain.Claim) domain.Adjuster
}

// ClaimExporter renders a claims table.
type ClaimExporter interface {
	Export(ctx context.Context, claims []domain.Claim, w io.Writer) error
}

// PipelineObserver receives pipeline events for metrics.
type PipelineObserver interface {
	ClaimSubmitted()
	StageExecuted(stage string, duration time.Duration, err error)
	ClaimApproved(payout int64)
}

// Clock is the wall-clock source used for ids and timestamps.
type Clock func() time.Time
