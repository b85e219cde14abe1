// Package xlsx renders the dashboard claims table as a spreadsheet.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

const (
	ClaimsSheet  = "Claims"
	SummarySheet = "Summary"
)

var claimColumns = []string{
	"Claim ID", "Policy", "Fleet Owner", "Driver", "Loss Type", "Incident Date",
	"Location", "Vehicles", "Status", "Current Stage", "Progress %", "Fraud Risk",
	"Adjuster", "Payout Estimate", "Submitted At",
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(ctx context.Context, claims []domain.Claim, w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", ClaimsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDE7F0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	if err := writeClaims(ctx, f, claims, headerStyle, moneyStyle); err != nil {
		return err
	}
	if err := writeSummary(f, claims, headerStyle, moneyStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeClaims(ctx context.Context, f *excelize.File, claims []domain.Claim, headerStyle, moneyStyle int) error {
	sw, err := f.NewStreamWriter(ClaimsSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(claimColumns))
	for i, title := range claimColumns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: title}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, c := range claims {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{
			c.ID, c.PolicyNumber, c.FleetOwner, c.DriverName, c.LossType, c.IncidentDate,
			c.Location, strings.Join(c.VehiclesInvolved, ", "), string(c.Status), stageName(c.CurrentAgent),
			c.Progress, string(c.FraudRiskScore), c.AssignedAdjuster,
			excelize.Cell{StyleID: moneyStyle, Value: c.PayoutEstimate},
			c.SubmittedAt.UTC().Format("2006-01-02 15:04"),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write claim %s: %w", c.ID, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush claims sheet: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, claims []domain.Claim, headerStyle, moneyStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	counts := make(map[domain.ClaimStatus]int)
	var payout int64
	for _, c := range claims {
		counts[c.Status]++
		payout += c.PayoutEstimate
	}

	rows := [][]any{
		{"Total Claims", len(claims)},
		{"Submitted", counts[domain.StatusSubmitted]},
		{"Processing", counts[domain.StatusProcessing]},
		{"Error", counts[domain.StatusError]},
		{"Approved", counts[domain.StatusApproved]},
		{"Total Payout Estimate", payout},
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &[]any{"Metric", "Value"}); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	last := fmt.Sprintf("B%d", len(rows)+1)
	if err := f.SetCellStyle(SummarySheet, last, last, moneyStyle); err != nil {
		return fmt.Errorf("style payout cell: %w", err)
	}
	return nil
}

func stageName(agent string) string {
	if stage, ok := domain.ParseStage(agent); ok {
		return stage.Name()
	}
	if agent == domain.AgentCompleted {
		return "Completed"
	}
	return agent
}
