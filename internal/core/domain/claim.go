package domain

import "time"

type ClaimStatus string

const (
	StatusSubmitted  ClaimStatus = "submitted"
	StatusProcessing ClaimStatus = "processing"
	StatusError      ClaimStatus = "error"
	StatusApproved   ClaimStatus = "approved"
)

// IsTerminal reports whether no further stage may execute.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusApproved
}

type FraudRisk string

const (
	FraudRiskLow    FraudRisk = "Low"
	FraudRiskMedium FraudRisk = "Medium"
	FraudRiskHigh   FraudRisk = "High"
)

func ParseFraudRisk(v string) (FraudRisk, bool) {
	switch FraudRisk(v) {
	case FraudRiskLow, FraudRiskMedium, FraudRiskHigh:
		return FraudRisk(v), true
	default:
		return "", false
	}
}

// DefaultVehicle stands in when the intake form supplied no vehicles.
const DefaultVehicle = "UNSPECIFIED"

type FileMeta struct {
	Name     string `json:"name" yaml:"name"`
	Size     int64  `json:"size" yaml:"size"`
	MimeType string `json:"mime_type" yaml:"mime_type"`
}

type AdjusterDetails struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Location   string    `json:"location"`
	Expertise  string    `json:"expertise"`
	AssignedAt time.Time `json:"assigned_at"`
}

// StageEdit is a human-supplied field map overlaid on one stage's report.
type StageEdit map[string]string

type Claim struct {
	ID string `json:"id"`

	PolicyNumber     string     `json:"policy_number"`
	FleetOwner       string     `json:"fleet_owner"`
	DriverName       string     `json:"driver_name"`
	VehiclesInvolved []string   `json:"vehicles_involved"`
	LossType         string     `json:"loss_type"`
	IncidentDate     string     `json:"incident_date"`
	IncidentTime     string     `json:"incident_time"`
	Location         string     `json:"location"`
	Description      string     `json:"description"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`
	Files            []FileMeta `json:"files"`

	Status           ClaimStatus      `json:"status"`
	CurrentAgent     string           `json:"current_agent"`
	Progress         int              `json:"progress"`
	PayoutEstimate   int64            `json:"payout_estimate"`
	AssignedAdjuster string           `json:"assigned_adjuster"`
	AdjusterDetails  *AdjusterDetails `json:"adjuster_details,omitempty"`
	FraudRiskScore   FraudRisk        `json:"fraud_risk_score,omitempty"`
	LastError        string           `json:"last_error,omitempty"`

	AgentOutputs map[string]string    `json:"agent_outputs"`
	EditedData   map[string]StageEdit `json:"edited_data"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClaimIntake is the creation payload: every claimant and incident field,
// without identity or timestamps.
type ClaimIntake struct {
	PolicyNumber     string     `json:"policy_number" yaml:"policy_number"`
	FleetOwner       string     `json:"fleet_owner" yaml:"fleet_owner"`
	DriverName       string     `json:"driver_name" yaml:"driver_name"`
	VehiclesInvolved []string   `json:"vehicles_involved" yaml:"vehicles_involved"`
	LossType         string     `json:"loss_type" yaml:"loss_type"`
	IncidentDate     string     `json:"incident_date" yaml:"incident_date"`
	IncidentTime     string     `json:"incident_time" yaml:"incident_time"`
	Location         string     `json:"location" yaml:"location"`
	Description      string     `json:"description" yaml:"description"`
	Name             string     `json:"name" yaml:"name"`
	Phone            string     `json:"phone" yaml:"phone"`
	Email            string     `json:"email" yaml:"email"`
	Files            []FileMeta `json:"files" yaml:"files"`
}

// ClaimPatch is a shallow merge: every non-nil field replaces the stored one.
type ClaimPatch struct {
	Status           *ClaimStatus
	CurrentAgent     *string
	Progress         *int
	PayoutEstimate   *int64
	AssignedAdjuster *string
	AdjusterDetails  *AdjusterDetails
	FraudRiskScore   *FraudRisk
	LastError        *string
}

// Apply merges the patch into c in place.
func (p ClaimPatch) Apply(c *Claim) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.CurrentAgent != nil {
		c.CurrentAgent = *p.CurrentAgent
	}
	if p.Progress != nil {
		c.Progress = *p.Progress
	}
	if p.PayoutEstimate != nil {
		c.PayoutEstimate = *p.PayoutEstimate
	}
	if p.AssignedAdjuster != nil {
		c.AssignedAdjuster = *p.AssignedAdjuster
	}
	if p.AdjusterDetails != nil {
		details := *p.AdjusterDetails
		c.AdjusterDetails = &details
	}
	if p.FraudRiskScore != nil {
		c.FraudRiskScore = *p.FraudRiskScore
	}
	if p.LastError != nil {
		c.LastError = *p.LastError
	}
}

// Clone returns a deep copy so callers never share maps or slices with a store.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	out := *c
	out.VehiclesInvolved = append([]string(nil), c.VehiclesInvolved...)
	out.Files = append([]FileMeta(nil), c.Files...)
	if c.AdjusterDetails != nil {
		details := *c.AdjusterDetails
		out.AdjusterDetails = &details
	}
	out.AgentOutputs = make(map[string]string, len(c.AgentOutputs))
	for k, v := range c.AgentOutputs {
		out.AgentOutputs[k] = v
	}
	out.EditedData = make(map[string]StageEdit, len(c.EditedData))
	for k, v := range c.EditedData {
		out.EditedData[k] = v.Clone()
	}
	return &out
}

func (e StageEdit) Clone() StageEdit {
	if e == nil {
		return nil
	}
	out := make(StageEdit, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

type ClaimFilter struct {
	Status ClaimStatus
}

type ClaimStats struct {
	Total           int                 `json:"total"`
	ByStatus        map[ClaimStatus]int `json:"by_status"`
	ByStage         map[string]int      `json:"by_stage"`
	HighRisk        int                 `json:"high_risk"`
	TotalPayout     int64               `json:"total_payout"`
	AverageProgress float64             `json:"average_progress"`
}

// StepResult describes one driver step.
type StepResult struct {
	Claim *Claim `json:"claim"`
	// Stage is the stage executed by this step, or AgentCompleted.
	Stage  string `json:"stage"`
	Report string `json:"report,omitempty"`
	Done   bool   `json:"done"`
}
