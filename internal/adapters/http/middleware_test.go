package httpadapter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/kirillkom/fleet-claims/internal/observability/logging"
)

type accessLogLine struct {
	Msg    string `json:"msg"`
	Level  string `json:"level"`
	Method string `json:"method"`
	Route  string `json:"route"`
	Status int    `json:"status"`
	Claim  *struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	} `json:"claim"`
}

func captureAccessLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(logging.New(&buf, serviceName, "info"))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func lastAccessLog(t *testing.T, buf *bytes.Buffer) accessLogLine {
	t.Helper()
	var last *accessLogLine
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var line accessLogLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("decode log line %q: %v", scanner.Text(), err)
		}
		if line.Msg == "http_request" {
			last = &line
		}
	}
	if last == nil {
		t.Fatalf("no access log in:\n%s", buf.String())
	}
	return *last
}

func TestAccessLogCarriesStageRoute(t *testing.T) {
	handler := newTestHandler(t, defaultTestConfig())
	id := createClaim(t, handler)
	buf := captureAccessLog(t)

	res := doJSON(t, handler, http.MethodPatch, "/v1/claims/"+id+"/stages/fraud-detection",
		map[string]any{"fields": map[string]string{"riskLevel": "High"}})
	if res.Code != http.StatusOK {
		t.Fatalf("edit expected 200, got %d: %s", res.Code, res.Body.String())
	}

	line := lastAccessLog(t, buf)
	if line.Route != "PATCH /v1/claims/{id}/stages/{stage}" {
		t.Fatalf("unexpected route %q", line.Route)
	}
	if line.Claim == nil || line.Claim.ID != id || line.Claim.Stage != "fraud-detection" {
		t.Fatalf("unexpected claim context %+v", line.Claim)
	}
}

func TestAccessLogClaimWithoutStage(t *testing.T) {
	handler := newTestHandler(t, defaultTestConfig())
	buf := captureAccessLog(t)

	res := doJSON(t, handler, http.MethodGet, "/v1/claims/CL-2026-999999", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}

	line := lastAccessLog(t, buf)
	if line.Level != "WARN" || line.Route != "GET /v1/claims/{id}" {
		t.Fatalf("unexpected access log %+v", line)
	}
	if line.Claim == nil || line.Claim.ID != "CL-2026-999999" || line.Claim.Stage != "" {
		t.Fatalf("unexpected claim context %+v", line.Claim)
	}
}

func TestAccessLogUnmatchedRoute(t *testing.T) {
	handler := newTestHandler(t, defaultTestConfig())
	buf := captureAccessLog(t)

	res := doJSON(t, handler, http.MethodGet, "/v2/nowhere", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}

	line := lastAccessLog(t, buf)
	if line.Route != "unmatched" || line.Claim != nil || line.Method != http.MethodGet {
		t.Fatalf("unexpected access log %+v", line)
	}
}
