package xlsx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

func TestExportWritesClaimsAndSummary(t *testing.T) {
	claims := []domain.Claim{
		{
			ID:               "CL-2026-000002",
			PolicyNumber:     "POL-789457",
			FleetOwner:       "XYZ Transport Co.",
			VehiclesInvolved: []string{"TRK-002", "TRL-010"},
			LossType:         "Cargo Theft",
			Status:           domain.StatusApproved,
			CurrentAgent:     domain.AgentCompleted,
			Progress:         100,
			PayoutEstimate:   74750,
			FraudRiskScore:   domain.FraudRiskMedium,
			AssignedAdjuster: "Mike Chen",
			SubmittedAt:      time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:               "CL-2026-000001",
			VehiclesInvolved: []string{"VAN-045"},
			Status:           domain.StatusProcessing,
			CurrentAgent:     domain.StageSettlementPayout.ID(),
			Progress:         88,
		},
	}

	var buf bytes.Buffer
	if err := NewExporter().Export(context.Background(), claims, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ClaimsSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Claim ID" || rows[1][0] != "CL-2026-000002" {
		t.Fatalf("unexpected first column: %v / %v", rows[0], rows[1])
	}
	if rows[1][7] != "TRK-002, TRL-010" || rows[1][9] != "Completed" {
		t.Fatalf("unexpected claim row: %v", rows[1])
	}
	if rows[2][9] != "Settlement & Payout" {
		t.Fatalf("expected stage display name, got %q", rows[2][9])
	}

	total, err := f.GetCellValue(SummarySheet, "B2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if total != "2" {
		t.Fatalf("expected total 2, got %q", total)
	}
}

func TestExportHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := NewExporter().Export(ctx, []domain.Claim{{ID: "CL-2026-000001"}}, &buf)
	if err == nil {
		t.Fatalf("expected context error")
	}
}
