package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
)

const maxIDAttempts = 5

type IntakeUseCase struct {
	repo       ports.ClaimRepository
	assigner   ports.AdjusterAssigner
	dispatcher ports.StepDispatcher
	ids        *IDGenerator
	observer   ports.PipelineObserver
}

// NewIntakeUseCase wires claim creation. dispatcher may be nil, in which case
// claims only advance through explicit steps.
func NewIntakeUseCase(
	repo ports.ClaimRepository,
	assigner ports.AdjusterAssigner,
	dispatcher ports.StepDispatcher,
	ids *IDGenerator,
	observer ports.PipelineObserver,
) *IntakeUseCase {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &IntakeUseCase{
		repo:       repo,
		assigner:   assigner,
		dispatcher: dispatcher,
		ids:        ids,
		observer:   observer,
	}
}

func (uc *IntakeUseCase) Submit(ctx context.Context, intake domain.ClaimIntake) (*domain.Claim, error) {
	claim := newClaim(intake, uc.ids.Now())

	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		claim.ID = uc.ids.Next(attempt)
		if uc.assigner != nil {
			// Assignment ties break on the claim number, so re-run it per id.
			assignAdjuster(claim, uc.assigner.Assign(claim))
		}
		err = uc.repo.Create(ctx, claim)
		if err == nil || !domain.IsKind(err, domain.ErrDuplicateID) {
			break
		}
		slog.Warn("claim_id_collision", "claim_id", claim.ID, "attempt", attempt+1)
	}
	if err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	uc.observer.ClaimSubmitted()

	if uc.dispatcher != nil {
		if err := uc.dispatcher.Start(ctx, claim.ID); err != nil {
			return nil, fmt.Errorf("start pipeline for %s: %w", claim.ID, err)
		}
	}

	stored, err := uc.repo.GetByID(ctx, claim.ID)
	if err != nil {
		return nil, fmt.Errorf("reload claim: %w", err)
	}
	return stored, nil
}

func newClaim(in domain.ClaimIntake, now time.Time) *domain.Claim {
	vehicles := make([]string, 0, len(in.VehiclesInvolved))
	for _, v := range in.VehiclesInvolved {
		if v = strings.TrimSpace(v); v != "" {
			vehicles = append(vehicles, v)
		}
	}
	if len(vehicles) == 0 {
		vehicles = []string{domain.DefaultVehicle}
	}

	return &domain.Claim{
		PolicyNumber:     strings.TrimSpace(in.PolicyNumber),
		FleetOwner:       strings.TrimSpace(in.FleetOwner),
		DriverName:       strings.TrimSpace(in.DriverName),
		VehiclesInvolved: vehicles,
		LossType:         strings.TrimSpace(in.LossType),
		IncidentDate:     strings.TrimSpace(in.IncidentDate),
		IncidentTime:     strings.TrimSpace(in.IncidentTime),
		Location:         strings.TrimSpace(in.Location),
		Description:      strings.TrimSpace(in.Description),
		Name:             strings.TrimSpace(in.Name),
		Phone:            strings.TrimSpace(in.Phone),
		Email:            strings.TrimSpace(in.Email),
		Files:            append([]domain.FileMeta{}, in.Files...),
		Status:           domain.StatusSubmitted,
		CurrentAgent:     domain.StageFNOLIntake.ID(),
		Progress:         domain.InitialProgress,
		AgentOutputs:     map[string]string{},
		EditedData:       map[string]domain.StageEdit{},
		SubmittedAt:      now,
		UpdatedAt:        now,
	}
}

func assignAdjuster(claim *domain.Claim, a domain.Adjuster) {
	claim.AssignedAdjuster = a.Name
	claim.AdjusterDetails = &domain.AdjusterDetails{
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		Location:   a.Location,
		Expertise:  a.Expertise,
		AssignedAt: claim.SubmittedAt,
	}
}
