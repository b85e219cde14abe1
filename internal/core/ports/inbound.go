package ports

import (
	"context"
	"io"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

// ClaimIntake is the inbound contract for claim creation.
type ClaimIntake interface {
	Submit(ctx context.Context, intake domain.ClaimIntake) (*domain.Claim, error)
}

// ClaimReader is the inbound read model for claim state.
type ClaimReader interface {
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error)
	Stats(ctx context.Context) (*domain.ClaimStats, error)
	Export(ctx context.Context, w io.Writer) error
}

// StageEditor overlays human corrections on stage reports.
type StageEditor interface {
	EditStage(ctx context.Context, id, stage string, fields domain.StageEdit) (*domain.Claim, error)
	PreviewStage(ctx context.Context, id, stage string) (string, error)
}

// PipelineStepper advances a claim one stage at a time.
type PipelineStepper interface {
	Step(ctx context.Context, id string) (domain.StepResult, error)
}

// PipelineControl is the caller-facing scheduling surface.
type PipelineControl interface {
	PipelineStepper
	Cancel(ctx context.Context, id string) error
}

// ClaimsAssistant answers free-form questions with canned guidance.
type ClaimsAssistant interface {
	Reply(ctx context.Context, message string) (domain.AssistantReply, error)
}
