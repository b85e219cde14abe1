package report

import (
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

const (
	Deductible int64 = 2500

	MinDamage int64 = 8000
	MaxDamage int64 = 120000

	ConfidenceFloor = 70
	MinConfidence   = 75
	MaxConfidence   = 95

	TheftSettlementRatio = 0.85
)

type increment struct {
	keyword string
	amount  int64
	label   string
}

var damageIncrements = []increment{
	{keyword: "front", amount: 4500, label: "front-end impact"},
	{keyword: "side", amount: 3500, label: "side panel damage"},
	{keyword: "rear", amount: 4000, label: "rear impact"},
	{keyword: "interior", amount: 2500, label: "interior damage"},
	{keyword: "engine", amount: 8500, label: "engine compartment"},
	{keyword: "total", amount: 45000, label: "total loss indicator"},
}

var cargoIncrements = []increment{
	{keyword: "manifest", amount: 40000, label: "cargo manifest"},
	{keyword: "receipt", amount: 5000, label: "purchase receipt"},
}

var confidenceBonuses = []increment{
	{keyword: "police", amount: 5, label: "police report"},
	{keyword: "estimate", amount: 8, label: "repair estimate"},
	{keyword: "receipt", amount: 3, label: "receipt"},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".heic": {},
	".webp": {},
	".gif":  {},
	".bmp":  {},
}

const photoBonus = 2

// ClaimNumber is the numeric suffix of a claim id. Ids without a numeric
// suffix fall back to an FNV-1a hash so the value stays stable per claim.
func ClaimNumber(id string) uint64 {
	suffix := id
	if idx := strings.LastIndex(id, "-"); idx >= 0 {
		suffix = id[idx+1:]
	}
	if n, err := strconv.ParseUint(suffix, 10, 64); err == nil {
		return n
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return uint64(h.Sum32())
}

// DamageAssessment is the file-name heuristic result of one claim.
type DamageAssessment struct {
	DamageAmount int64    `json:"damage_amount"`
	CargoValue   int64    `json:"cargo_value,omitempty"`
	Confidence   int      `json:"confidence"`
	PhotoCount   int      `json:"photo_count"`
	Findings     []string `json:"findings"`
	Theft        bool     `json:"theft"`
}

// Settlement is the payout arithmetic of one claim.
type Settlement struct {
	Gross      int64  `json:"gross"`
	Deductible int64  `json:"deductible"`
	Net        int64  `json:"net"`
	Basis      string `json:"basis"`
}

// FraudAssessment is the pseudo-random risk score of one claim.
type FraudAssessment struct {
	Score       int              `json:"score"`
	Level       domain.FraudRisk `json:"level"`
	PriorClaims int              `json:"prior_claims"`
	Indicators  []string         `json:"indicators"`
	LevelEdited bool             `json:"level_edited"`
}

func isTheft(lossType string) bool {
	return strings.Contains(strings.ToLower(lossType), "theft")
}

func isImage(f domain.FileMeta) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(f.Name))]
	return ok
}

func lowerNames(files []domain.FileMeta) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, strings.ToLower(f.Name))
	}
	return out
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AssessDamage accumulates keyword increments over every file name and
// clamps once at the end.
func AssessDamage(claim *domain.Claim) DamageAssessment {
	n := ClaimNumber(claim.ID)
	names := lowerNames(claim.Files)
	out := DamageAssessment{Theft: isTheft(claim.LossType)}

	damage := 5000 + int64(n%50)*100
	for _, name := range names {
		for _, inc := range damageIncrements {
			if strings.Contains(name, inc.keyword) {
				damage += inc.amount
				out.Findings = append(out.Findings, fmt.Sprintf("%s (%s)", inc.label, name))
			}
		}
	}
	out.DamageAmount = clamp64(damage, MinDamage, MaxDamage)

	if out.Theft {
		cargo := 45000 + int64(n%40)*1000
		for _, name := range names {
			for _, inc := range cargoIncrements {
				if strings.Contains(name, inc.keyword) {
					cargo += inc.amount
					out.Findings = append(out.Findings, fmt.Sprintf("%s (%s)", inc.label, name))
				}
			}
		}
		out.CargoValue = clamp64(cargo, MinDamage, MaxDamage)
	}

	confidence := 68 + int(n%5)
	for _, name := range names {
		for _, bonus := range confidenceBonuses {
			if strings.Contains(name, bonus.keyword) {
				confidence += int(bonus.amount)
			}
		}
	}
	if confidence < ConfidenceFloor {
		confidence = ConfidenceFloor
	}
	for _, f := range claim.Files {
		if isImage(f) {
			out.PhotoCount++
		}
	}
	confidence += out.PhotoCount * photoBonus
	out.Confidence = clampInt(confidence, MinConfidence, MaxConfidence)

	return out
}

// SettleAmounts applies the deductible to a gross amount, floored at zero.
func SettleAmounts(gross int64) Settlement {
	net := gross - Deductible
	if net < 0 {
		net = 0
	}
	return Settlement{Gross: gross, Deductible: Deductible, Net: net}
}

// TheftGross is the settlement basis of a theft-type loss.
func TheftGross(cargoValue int64) int64 {
	return int64(math.Round(TheftSettlementRatio * float64(cargoValue)))
}

// AssessFraud derives a stable risk score from the claim number and intake data.
func AssessFraud(claim *domain.Claim) FraudAssessment {
	n := ClaimNumber(claim.ID)
	names := lowerNames(claim.Files)
	out := FraudAssessment{
		Score:       10 + int(n%60),
		PriorClaims: int(n % 4),
	}

	if isTheft(claim.LossType) {
		out.Score += 15
		out.Indicators = append(out.Indicators, "theft-type loss")
	}
	photos := 0
	police := false
	for i, f := range claim.Files {
		if isImage(f) {
			photos++
		}
		if strings.Contains(names[i], "police") {
			police = true
		}
	}
	if photos == 0 {
		out.Score += 10
		out.Indicators = append(out.Indicators, "no photographic evidence")
	}
	if police {
		out.Score -= 20
		out.Indicators = append(out.Indicators, "police report on file")
	}
	if hour, ok := incidentHour(claim.IncidentTime); ok && hour < 5 {
		out.Score += 10
		out.Indicators = append(out.Indicators, "late-night incident")
	}
	if len(strings.TrimSpace(claim.Description)) < 40 {
		out.Score += 5
		out.Indicators = append(out.Indicators, "sparse incident narrative")
	}
	if out.PriorClaims >= 2 {
		out.Score += 10
		out.Indicators = append(out.Indicators, fmt.Sprintf("%d prior claims on policy", out.PriorClaims))
	}

	out.Score = clampInt(out.Score, 0, 100)
	out.Level = riskLevel(out.Score)
	return out
}

func riskLevel(score int) domain.FraudRisk {
	switch {
	case score < 40:
		return domain.FraudRiskLow
	case score < 70:
		return domain.FraudRiskMedium
	default:
		return domain.FraudRiskHigh
	}
}

func incidentHour(v string) (int, bool) {
	head, _, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(head)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// AdjusterWorkload is the displayed workload percentage of the assigned adjuster.
func AdjusterWorkload(claimID string) int {
	return 40 + int((ClaimNumber(claimID)*7)%55)
}

// SLADays is the target number of days to settlement.
func SLADays(claimID string) int {
	return 3 + int(ClaimNumber(claimID)%5)
}
