package domain

import "testing"

func TestPipelineOrder(t *testing.T) {
	want := []string{
		"fnol-intake",
		"validation",
		"fraud-detection",
		"claim-creation",
		"coverage-verification",
		"damage-assessment",
		"settlement-payout",
		"communication",
	}
	got := Pipeline()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i, stage := range got {
		if stage.ID() != want[i] {
			t.Fatalf("stage %d: expected %s, got %s", i, want[i], stage.ID())
		}
		parsed, ok := ParseStage(want[i])
		if !ok || parsed != stage {
			t.Fatalf("ParseStage(%q) = %v, %v", want[i], parsed, ok)
		}
	}
}

func TestParseStageRejectsUnknown(t *testing.T) {
	if _, ok := ParseStage("settlement-calculation"); ok {
		t.Fatalf("expected unknown stage to be rejected")
	}
	if _, ok := ParseStage(AgentCompleted); ok {
		t.Fatalf("terminal sentinel is not a stage")
	}
}

func TestStageProgressIsMonotonicAndBelowTerminal(t *testing.T) {
	prev := InitialProgress
	for _, stage := range Pipeline() {
		p := StageProgress(stage)
		if p < prev {
			t.Fatalf("progress decreased at %s: %d < %d", stage, p, prev)
		}
		if p >= 100 {
			t.Fatalf("non-terminal stage %s reported %d", stage, p)
		}
		prev = p
	}
}

func TestClaimPatchApplyIsShallow(t *testing.T) {
	claim := &Claim{Status: StatusSubmitted, CurrentAgent: "fnol-intake", Progress: 5}
	status := StatusProcessing
	progress := 25
	ClaimPatch{Status: &status, Progress: &progress}.Apply(claim)

	if claim.Status != StatusProcessing || claim.Progress != 25 {
		t.Fatalf("patched fields not applied: %+v", claim)
	}
	if claim.CurrentAgent != "fnol-intake" {
		t.Fatalf("absent field must stay untouched, got %q", claim.CurrentAgent)
	}
}

func TestCloneDoesNotShareMaps(t *testing.T) {
	claim := &Claim{
		VehiclesInvolved: []string{"TRK-001"},
		AgentOutputs:     map[string]string{"fnol-intake": "a"},
		EditedData:       map[string]StageEdit{"communication": {"emailBody": "x"}},
	}
	copyClaim := claim.Clone()
	copyClaim.VehiclesInvolved[0] = "VAN-001"
	copyClaim.AgentOutputs["fnol-intake"] = "b"
	copyClaim.EditedData["communication"]["emailBody"] = "y"

	if claim.VehiclesInvolved[0] != "TRK-001" || claim.AgentOutputs["fnol-intake"] != "a" || claim.EditedData["communication"]["emailBody"] != "x" {
		t.Fatalf("clone shares state with original: %+v", claim)
	}
}
