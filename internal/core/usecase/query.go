package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
)

type QueryUseCase struct {
	repo     ports.ClaimRepository
	exporter ports.ClaimExporter
}

func NewQueryUseCase(repo ports.ClaimRepository, exporter ports.ClaimExporter) *QueryUseCase {
	return &QueryUseCase{repo: repo, exporter: exporter}
}

func (uc *QueryUseCase) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	claim, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

func (uc *QueryUseCase) List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list claims", fmt.Errorf("unknown status %q", filter.Status))
	}
	claims, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// Stats aggregates the dashboard counters over every stored claim.
func (uc *QueryUseCase) Stats(ctx context.Context) (*domain.ClaimStats, error) {
	claims, err := uc.repo.List(ctx, domain.ClaimFilter{})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	stats := &domain.ClaimStats{
		ByStatus: make(map[domain.ClaimStatus]int),
		ByStage:  make(map[string]int),
	}
	progressSum := 0
	for _, c := range claims {
		stats.Total++
		stats.ByStatus[c.Status]++
		stats.ByStage[c.CurrentAgent]++
		if c.FraudRiskScore == domain.FraudRiskHigh {
			stats.HighRisk++
		}
		stats.TotalPayout += c.PayoutEstimate
		progressSum += c.Progress
	}
	if stats.Total > 0 {
		stats.AverageProgress = float64(progressSum) / float64(stats.Total)
	}
	return stats, nil
}

func (uc *QueryUseCase) Export(ctx context.Context, w io.Writer) error {
	if uc.exporter == nil {
		return domain.WrapError(domain.ErrTemporary, "export claims", fmt.Errorf("no exporter configured"))
	}
	claims, err := uc.repo.List(ctx, domain.ClaimFilter{})
	if err != nil {
		return fmt.Errorf("list claims: %w", err)
	}
	if err := uc.exporter.Export(ctx, claims, w); err != nil {
		return fmt.Errorf("export claims: %w", err)
	}
	return nil
}

func validStatus(s domain.ClaimStatus) bool {
	switch s {
	case domain.StatusSubmitted, domain.StatusProcessing, domain.StatusError, domain.StatusApproved:
		return true
	default:
		return false
	}
}
