package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/fleet-claims/internal/config"
	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
	"github.com/kirillkom/fleet-claims/internal/observability/metrics"
)

const serviceName = "claims-api"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Services are the inbound ports the router dispatches to.
type Services struct {
	Intake    ports.ClaimIntake
	Claims    ports.ClaimReader
	Editor    ports.StageEditor
	Pipeline  ports.PipelineControl
	Assistant ports.ClaimsAssistant
}

type Router struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter builds the claims API. httpMetrics may be nil.
func NewRouter(cfg config.Config, services Services, httpMetrics *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:      cfg,
		services: services,
		metrics:  httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, withRoute(h))
	}
	handle("GET /healthz", http.HandlerFunc(rt.healthz))
	if rt.metrics != nil {
		handle("GET /metrics", rt.metrics.Handler())
	}

	handle("POST /v1/claims", http.HandlerFunc(rt.createClaim))
	handle("GET /v1/claims", http.HandlerFunc(rt.listClaims))
	handle("GET /v1/claims/stats", http.HandlerFunc(rt.claimStats))
	handle("GET /v1/claims/export", http.HandlerFunc(rt.exportClaims))
	handle("GET /v1/claims/{id}", http.HandlerFunc(rt.getClaim))
	handle("PATCH /v1/claims/{id}/stages/{stage}", http.HandlerFunc(rt.editStage))
	handle("GET /v1/claims/{id}/stages/{stage}/preview", http.HandlerFunc(rt.previewStage))
	handle("POST /v1/claims/{id}/advance", http.HandlerFunc(rt.advanceClaim))
	handle("POST /v1/claims/{id}/cancel", http.HandlerFunc(rt.cancelClaim))
	handle("POST /v1/assistant/messages", http.HandlerFunc(rt.assistantMessage))

	var handler http.Handler = mux
	if rt.cfg.OpenAPIValidation {
		validator, err := newRequestValidator()
		if err != nil {
			// The contract is embedded; failing here means a broken build.
			panic(err)
		}
		handler = validator.middleware(handler)
	}
	handler = backpressureMiddleware(
		handler,
		rt.cfg.APIBackpressureMaxInFlight,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
		rt.rejected("backpressure"),
	)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.rejected("rate_limit"))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) rejected(reason string) func() {
	if rt.metrics == nil {
		return nil
	}
	return func() { rt.metrics.RecordRejected(serviceName, reason) }
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createClaim(w http.ResponseWriter, r *http.Request) {
	var intake domain.ClaimIntake
	if !decodeJSON(w, r, &intake) {
		return
	}

	claim, err := rt.services.Intake.Submit(r.Context(), intake)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": claim.ID, "claim": claim})
}

func (rt *Router) listClaims(w http.ResponseWriter, r *http.Request) {
	filter := domain.ClaimFilter{
		Status: domain.ClaimStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	claims, err := rt.services.Claims.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": claims, "count": len(claims)})
}

func (rt *Router) getClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := rt.services.Claims.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (rt *Router) claimStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.services.Claims.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) exportClaims(w http.ResponseWriter, r *http.Request) {
	// Buffer the workbook so a failed export still maps to a JSON error.
	var buf bytes.Buffer
	if err := rt.services.Claims.Export(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="claims.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) editStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields domain.StageEdit `json:"fields"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fields must not be empty"})
		return
	}

	claim, err := rt.services.Editor.EditStage(r.Context(), r.PathValue("id"), r.PathValue("stage"), req.Fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (rt *Router) previewStage(w http.ResponseWriter, r *http.Request) {
	stage := r.PathValue("stage")
	text, err := rt.services.Editor.PreviewStage(r.Context(), r.PathValue("id"), stage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"stage": stage, "report": text})
}

func (rt *Router) advanceClaim(w http.ResponseWriter, r *http.Request) {
	result, err := rt.services.Pipeline.Step(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) cancelClaim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := rt.services.Pipeline.Cancel(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
}

func (rt *Router) assistantMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := rt.services.Assistant.Reply(r.Context(), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
