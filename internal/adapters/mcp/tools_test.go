package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/usecase"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/repository/memory"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/roster"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	now := func() time.Time { return time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC) }
	repo := memory.NewClaimRepository(now)
	adjusters, err := roster.Load("")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	pipeline := usecase.NewPipelineUseCase(repo, nil)
	return New(Services{
		Intake:   usecase.NewIntakeUseCase(repo, adjusters, nil, usecase.NewIDGenerator(now), nil),
		Claims:   usecase.NewQueryUseCase(repo, nil),
		Editor:   usecase.NewEditUseCase(repo, pipeline.Locks()),
		Pipeline: pipeline,
	}, nil, "test")
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// toolText extracts the first TextContent text from a CallToolResult.
func toolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func createViaTool(t *testing.T, s *Server) domain.Claim {
	t.Helper()
	result, err := s.handleCreate(context.Background(), toolRequest("claims_create", map[string]any{
		"intake": map[string]any{
			"policy_number": "FL-77120",
			"fleet_owner":   "Sierra Freight",
			"loss_type":     "Cargo Theft",
			"description":   "Trailer broken into overnight at the depot, pallets missing.",
			"files": []any{
				map[string]any{"name": "cargo_manifest.pdf", "size": 9000},
			},
		},
	}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.IsError {
		t.Fatalf("create failed: %s", toolText(t, result))
	}
	var claim domain.Claim
	if err := json.Unmarshal([]byte(toolText(t, result)), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	return claim
}

func TestCreateAdvanceAndGet(t *testing.T) {
	s := newTestServer(t)
	claim := createViaTool(t, s)
	if claim.AssignedAdjuster == "" || claim.Status != domain.StatusSubmitted {
		t.Fatalf("unexpected created claim %+v", claim)
	}

	ctx := context.Background()
	for i := 0; i <= domain.StageCount(); i++ {
		result, err := s.handleAdvance(ctx, toolRequest("claims_advance", map[string]any{"id": claim.ID}))
		if err != nil || result.IsError {
			t.Fatalf("advance %d failed: %v %s", i, err, toolText(t, result))
		}
	}

	result, err := s.handleGet(ctx, toolRequest("claims_get", map[string]any{"id": claim.ID}))
	if err != nil || result.IsError {
		t.Fatalf("get failed: %v", err)
	}
	var got domain.Claim
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if got.Status != domain.StatusApproved || got.PayoutEstimate <= 0 {
		t.Fatalf("expected approved claim with payout, got status=%s payout=%d", got.Status, got.PayoutEstimate)
	}
}

func TestListAppliesStatusAndLimit(t *testing.T) {
	s := newTestServer(t)
	createViaTool(t, s)
	createViaTool(t, s)

	result, err := s.handleList(context.Background(), toolRequest("claims_list", map[string]any{
		"status": "submitted",
		"limit":  float64(1),
	}))
	if err != nil || result.IsError {
		t.Fatalf("list failed: %v", err)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("expected limit to cap the list at 1, got %d", body.Count)
	}
}

func TestEditStageRecordsOverlay(t *testing.T) {
	s := newTestServer(t)
	claim := createViaTool(t, s)

	result, err := s.handleEditStage(context.Background(), toolRequest("claims_edit_stage", map[string]any{
		"id":     claim.ID,
		"stage":  "damage-assessment",
		"fields": map[string]any{"cargoValue": "100000"},
	}))
	if err != nil || result.IsError {
		t.Fatalf("edit failed: %v %s", err, toolText(t, result))
	}
	var got domain.Claim
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if got.EditedData["damage-assessment"]["cargoValue"] != "100000" {
		t.Fatalf("expected edit to be recorded, got %v", got.EditedData)
	}
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		call   func() (*mcplib.CallToolResult, error)
		expect string
	}{
		{
			name:   "get unknown",
			call:   func() (*mcplib.CallToolResult, error) { return s.handleGet(ctx, toolRequest("claims_get", map[string]any{"id": "CL-2026-000000"})) },
			expect: "claim not found",
		},
		{
			name:   "get without id",
			call:   func() (*mcplib.CallToolResult, error) { return s.handleGet(ctx, toolRequest("claims_get", map[string]any{})) },
			expect: "id is required",
		},
		{
			name:   "create without intake",
			call:   func() (*mcplib.CallToolResult, error) { return s.handleCreate(ctx, toolRequest("claims_create", map[string]any{})) },
			expect: "intake is required",
		},
		{
			name: "edit with bad key",
			call: func() (*mcplib.CallToolResult, error) {
				claim := createViaTool(t, s)
				return s.handleEditStage(ctx, toolRequest("claims_edit_stage", map[string]any{
					"id": claim.ID, "stage": "validation", "fields": map[string]any{"emailBody": "hi"},
				}))
			},
			expect: "not editable",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := tc.call()
			if err != nil {
				t.Fatalf("handlers report failures in the result, got %v", err)
			}
			if !result.IsError || !strings.Contains(toolText(t, result), tc.expect) {
				t.Fatalf("expected tool error containing %q, got %q", tc.expect, toolText(t, result))
			}
		})
	}
}

func TestServerRegistersEveryTool(t *testing.T) {
	s := newTestServer(t)
	tools := s.MCPServer().ListTools()
	for _, name := range []string{"claims_get", "claims_list", "claims_create", "claims_edit_stage", "claims_advance"} {
		if _, ok := tools[name]; !ok {
			t.Fatalf("expected tool %s to be registered", name)
		}
	}
}
