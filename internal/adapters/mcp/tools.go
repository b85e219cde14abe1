package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_get",
			mcplib.WithDescription("Fetch one claim with its stage reports, edits and payout estimate."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("id",
				mcplib.Description("Claim id, e.g. CL-2026-004217"),
				mcplib.Required(),
			),
		),
		s.handleGet,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("claims_list",
			mcplib.WithDescription("List claims newest first, optionally filtered by status."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("status",
				mcplib.Description("Optional status filter"),
				mcplib.Enum(
					string(domain.StatusSubmitted),
					string(domain.StatusProcessing),
					string(domain.StatusError),
					string(domain.StatusApproved),
				),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of claims to return"),
				mcplib.Min(1),
				mcplib.Max(200),
				mcplib.DefaultNumber(20),
			),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("claims_create",
			mcplib.WithDescription("Submit a first notice of loss. The claim is assigned an adjuster and enters the pipeline."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithObject("intake",
				mcplib.Description("Intake form: policy_number, fleet_owner, driver_name, vehicles_involved, loss_type, incident_date, incident_time, location, description, name, phone, email, files[{name,size,mime_type}]"),
				mcplib.Required(),
			),
		),
		s.handleCreate,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("claims_edit_stage",
			mcplib.WithDescription("Overlay reviewer corrections on one stage report. Reports that already ran are re-rendered."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("id", mcplib.Description("Claim id"), mcplib.Required()),
			mcplib.WithString("stage",
				mcplib.Description("Stage id"),
				mcplib.Required(),
				mcplib.Enum(stageIDs()...),
			),
			mcplib.WithObject("fields",
				mcplib.Description("Field name to replacement value, e.g. {\"riskLevel\": \"High\"}"),
				mcplib.Required(),
			),
		),
		s.handleEditStage,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("claims_advance",
			mcplib.WithDescription("Run the next pipeline stage of a claim once."),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithString("id", mcplib.Description("Claim id"), mcplib.Required()),
		),
		s.handleAdvance,
	)
}

func stageIDs() []string {
	ids := make([]string, 0, domain.StageCount())
	for i := 0; i < domain.StageCount(); i++ {
		ids = append(ids, domain.Stage(i).ID())
	}
	return ids
}

func (s *Server) handleGet(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("id", ""))
	if id == "" {
		return errorResult("id is required"), nil
	}
	claim, err := s.services.Claims.GetByID(ctx, id)
	if err != nil {
		return s.failed("claims_get", err), nil
	}
	return jsonResult(claim), nil
}

func (s *Server) handleList(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	filter := domain.ClaimFilter{Status: domain.ClaimStatus(request.GetString("status", ""))}
	claims, err := s.services.Claims.List(ctx, filter)
	if err != nil {
		return s.failed("claims_list", err), nil
	}
	if limit := request.GetInt("limit", 20); limit > 0 && len(claims) > limit {
		claims = claims[:limit]
	}

	type summary struct {
		ID             string             `json:"id"`
		Status         domain.ClaimStatus `json:"status"`
		CurrentAgent   string             `json:"current_agent"`
		Progress       int                `json:"progress"`
		LossType       string             `json:"loss_type"`
		PayoutEstimate int64              `json:"payout_estimate"`
	}
	out := make([]summary, 0, len(claims))
	for _, c := range claims {
		out = append(out, summary{
			ID:             c.ID,
			Status:         c.Status,
			CurrentAgent:   c.CurrentAgent,
			Progress:       c.Progress,
			LossType:       c.LossType,
			PayoutEstimate: c.PayoutEstimate,
		})
	}
	return jsonResult(map[string]any{"claims": out, "count": len(out)}), nil
}

func (s *Server) handleCreate(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var intake domain.ClaimIntake
	if err := decodeArgument(request, "intake", &intake); err != nil {
		return errorResult(err.Error()), nil
	}
	claim, err := s.services.Intake.Submit(ctx, intake)
	if err != nil {
		return s.failed("claims_create", err), nil
	}
	return jsonResult(claim), nil
}

func (s *Server) handleEditStage(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("id", ""))
	stage := strings.TrimSpace(request.GetString("stage", ""))
	if id == "" || stage == "" {
		return errorResult("id and stage are required"), nil
	}
	var fields domain.StageEdit
	if err := decodeArgument(request, "fields", &fields); err != nil {
		return errorResult(err.Error()), nil
	}
	if len(fields) == 0 {
		return errorResult("fields must not be empty"), nil
	}

	claim, err := s.services.Editor.EditStage(ctx, id, stage, fields)
	if err != nil {
		return s.failed("claims_edit_stage", err), nil
	}
	return jsonResult(claim), nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("id", ""))
	if id == "" {
		return errorResult("id is required"), nil
	}
	result, err := s.services.Pipeline.Step(ctx, id)
	if err != nil {
		return s.failed("claims_advance", err), nil
	}
	return jsonResult(result), nil
}

// failed turns a use case error into a tool error. Only unexpected kinds are
// logged; not-found and invalid input are the caller's problem.
func (s *Server) failed(tool string, err error) *mcplib.CallToolResult {
	if !domain.IsKind(err, domain.ErrClaimNotFound) && !domain.IsKind(err, domain.ErrInvalidInput) {
		s.logger.Warn("mcp_tool_failed", "tool", tool, "error", err)
	}
	return errorResult(fmt.Sprintf("%s failed: %v", tool, err))
}

// decodeArgument re-encodes an object argument into a typed value.
func decodeArgument(request mcplib.CallToolRequest, name string, dst any) error {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return fmt.Errorf("%s is required", name)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s is malformed: %w", name, err)
	}
	return nil
}
