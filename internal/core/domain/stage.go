package domain

// Stage is one step of the fixed claim-processing sequence.
type Stage int

const (
	StageFNOLIntake Stage = iota
	StageValidation
	StageFraudDetection
	StageClaimCreation
	StageCoverageVerification
	StageDamageAssessment
	StageSettlementPayout
	StageCommunication

	stageCount
)

// AgentCompleted is the currentAgent sentinel of a claim past the last stage.
const AgentCompleted = "completed"

var stageIDs = [stageCount]string{
	StageFNOLIntake:           "fnol-intake",
	StageValidation:           "validation",
	StageFraudDetection:       "fraud-detection",
	StageClaimCreation:        "claim-creation",
	StageCoverageVerification: "coverage-verification",
	StageDamageAssessment:     "damage-assessment",
	StageSettlementPayout:     "settlement-payout",
	StageCommunication:        "communication",
}

var stageNames = [stageCount]string{
	StageFNOLIntake:           "FNOL Intake",
	StageValidation:           "Validation",
	StageFraudDetection:       "Fraud Detection",
	StageClaimCreation:        "Claim Creation",
	StageCoverageVerification: "Coverage Verification",
	StageDamageAssessment:     "Damage Assessment",
	StageSettlementPayout:     "Settlement & Payout",
	StageCommunication:        "Communication",
}

// Pipeline returns the stage sequence in execution order.
func Pipeline() []Stage {
	out := make([]Stage, stageCount)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

func StageCount() int { return int(stageCount) }

func (s Stage) Valid() bool { return s >= 0 && s < stageCount }

// ID is the wire identifier, e.g. "fraud-detection".
func (s Stage) ID() string {
	if !s.Valid() {
		return ""
	}
	return stageIDs[s]
}

func (s Stage) Name() string {
	if !s.Valid() {
		return ""
	}
	return stageNames[s]
}

func (s Stage) String() string { return s.ID() }

// ParseStage resolves a wire identifier.
func ParseStage(id string) (Stage, bool) {
	for i, candidate := range stageIDs {
		if candidate == id {
			return Stage(i), true
		}
	}
	return 0, false
}

// Next returns the following stage and false after the last one.
func (s Stage) Next() (Stage, bool) {
	next := s + 1
	return next, next.Valid()
}

// StageProgress is the progress percentage reported while stage s runs.
// Only the terminal transition reports 100.
func StageProgress(s Stage) int {
	p := (int(s+1)*100 + int(stageCount)/2) / int(stageCount)
	if p > 99 {
		p = 99
	}
	return p
}

// InitialProgress is the seed value of a freshly submitted claim.
const InitialProgress = 5
