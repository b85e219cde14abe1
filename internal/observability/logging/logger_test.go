package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewTagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "claims-api", "warn")

	logger.Info("dropped")
	logger.Warn("stage_failed", "claim_id", "CL-2026-000001")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if record["service"] != "claims-api" || record["msg"] != "stage_failed" || record["claim_id"] != "CL-2026-000001" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, ok := ParseLevel("DEBUG"); !ok || lvl != slog.LevelDebug {
		t.Fatalf("expected debug, got %v %v", lvl, ok)
	}
	if lvl, ok := ParseLevel("verbose"); ok || lvl != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v %v", lvl, ok)
	}
}
