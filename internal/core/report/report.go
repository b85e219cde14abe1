// Package report renders the per-stage analysis text of a claim. Every
// function here is pure: the same claim snapshot and override always
// produce the same report.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

// Report is one stage's rendered text plus the structured values the
// pipeline writes back onto the claim.
type Report struct {
	Stage      domain.Stage
	Text       string
	Fraud      *FraudAssessment
	Damage     *DamageAssessment
	Settlement *Settlement

	// verbatim marks text a reviewer supplied whole; nothing is appended.
	verbatim bool
}

type renderFunc func(claim *domain.Claim, override domain.StageEdit) (Report, error)

var renderers = map[domain.Stage]renderFunc{
	domain.StageFNOLIntake:           renderIntake,
	domain.StageValidation:           renderValidation,
	domain.StageFraudDetection:       renderFraud,
	domain.StageClaimCreation:        renderClaimCreation,
	domain.StageCoverageVerification: renderCoverage,
	domain.StageDamageAssessment:     renderDamage,
	domain.StageSettlementPayout:     renderSettlement,
	domain.StageCommunication:        renderCommunication,
}

// Override keys shared by every stage.
const NotesKey = "notes"

const (
	KeyRiskLevel       = "riskLevel"
	KeyDamageAmount    = "damageAmount"
	KeyCargoValue      = "cargoValue"
	KeyConfidence      = "confidence"
	KeyGrossSettlement = "grossSettlement"
	KeyEmailBody       = "emailBody"
	KeyInternalNotes   = "internalNotes"
)

var claimFieldSetters = map[string]func(c *domain.Claim, v string){
	"policyNumber":     func(c *domain.Claim, v string) { c.PolicyNumber = v },
	"fleetOwner":       func(c *domain.Claim, v string) { c.FleetOwner = v },
	"driverName":       func(c *domain.Claim, v string) { c.DriverName = v },
	"lossType":         func(c *domain.Claim, v string) { c.LossType = v },
	"incidentDate":     func(c *domain.Claim, v string) { c.IncidentDate = v },
	"incidentTime":     func(c *domain.Claim, v string) { c.IncidentTime = v },
	"location":         func(c *domain.Claim, v string) { c.Location = v },
	"description":      func(c *domain.Claim, v string) { c.Description = v },
	"name":             func(c *domain.Claim, v string) { c.Name = v },
	"phone":            func(c *domain.Claim, v string) { c.Phone = v },
	"email":            func(c *domain.Claim, v string) { c.Email = v },
	"assignedAdjuster": func(c *domain.Claim, v string) { c.AssignedAdjuster = v },
}

var stageKeys = map[domain.Stage][]string{
	domain.StageFraudDetection:   {KeyRiskLevel},
	domain.StageDamageAssessment: {KeyDamageAmount, KeyCargoValue, KeyConfidence},
	domain.StageSettlementPayout: {KeyGrossSettlement},
	domain.StageCommunication:    {KeyEmailBody, KeyInternalNotes},
}

var numericKeys = map[string]struct{}{
	KeyDamageAmount:    {},
	KeyCargoValue:      {},
	KeyConfidence:      {},
	KeyGrossSettlement: {},
}

// Synthesize renders the report of stage for claim. Fields in override take
// precedence over the claim's own values.
func Synthesize(stage domain.Stage, claim *domain.Claim, override domain.StageEdit) (Report, error) {
	if claim == nil {
		return Report{}, domain.WrapError(domain.ErrInvalidInput, "synthesize", errors.New("nil claim"))
	}
	render, ok := renderers[stage]
	if !ok {
		return Report{}, domain.WrapError(domain.ErrInvalidInput, "synthesize", fmt.Errorf("unknown stage %d", stage))
	}
	if err := checkFiles(claim.Files); err != nil {
		return Report{}, domain.WrapError(domain.ErrInvalidInput, "synthesize "+stage.ID(), err)
	}
	if err := ValidateOverride(stage, override); err != nil {
		return Report{}, err
	}

	view := overlay(claim, override)
	rep, err := render(view, override)
	if err != nil {
		return Report{}, domain.WrapError(domain.ErrInvalidInput, "synthesize "+stage.ID(), err)
	}
	rep.Stage = stage
	if notes := strings.TrimSpace(override[NotesKey]); notes != "" && !rep.verbatim {
		rep.Text += "\n\nReviewer notes: " + notes
	}
	return rep, nil
}

// AllowedKeys lists the override keys accepted for stage.
func AllowedKeys(stage domain.Stage) []string {
	keys := make([]string, 0, len(claimFieldSetters)+4)
	for k := range claimFieldSetters {
		keys = append(keys, k)
	}
	keys = append(keys, NotesKey)
	keys = append(keys, stageKeys[stage]...)
	sort.Strings(keys)
	return keys
}

// ValidateOverride rejects unknown keys and malformed values.
func ValidateOverride(stage domain.Stage, fields domain.StageEdit) error {
	allowed := make(map[string]struct{})
	for _, k := range AllowedKeys(stage) {
		allowed[k] = struct{}{}
	}
	for key, value := range fields {
		if _, ok := allowed[key]; !ok {
			return domain.WrapError(domain.ErrInvalidInput, "validate override", fmt.Errorf("field %q is not editable on %s", key, stage.ID()))
		}
		if _, ok := numericKeys[key]; ok {
			if _, err := parseAmount(value); err != nil {
				return domain.WrapError(domain.ErrInvalidInput, "validate override", fmt.Errorf("field %q: %w", key, err))
			}
		}
		if key == KeyRiskLevel {
			if _, ok := domain.ParseFraudRisk(value); !ok {
				return domain.WrapError(domain.ErrInvalidInput, "validate override", fmt.Errorf("riskLevel must be Low, Medium or High, got %q", value))
			}
		}
	}
	return nil
}

func overlay(claim *domain.Claim, override domain.StageEdit) *domain.Claim {
	view := claim.Clone()
	for key, value := range override {
		if set, ok := claimFieldSetters[key]; ok {
			set(view, value)
		}
	}
	return view
}

func checkFiles(files []domain.FileMeta) error {
	for i, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("file %d has an empty name", i)
		}
		if f.Size < 0 {
			return fmt.Errorf("file %q has negative size %d", f.Name, f.Size)
		}
	}
	return nil
}

func parseAmount(v string) (int64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a whole amount: %q", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative amount: %q", v)
	}
	return n, nil
}

// DamageFor assesses damage and applies any damage-assessment edits.
func DamageFor(claim *domain.Claim, override domain.StageEdit) (DamageAssessment, error) {
	out := AssessDamage(claim)
	if v, ok := override[KeyDamageAmount]; ok {
		n, err := parseAmount(v)
		if err != nil {
			return DamageAssessment{}, err
		}
		out.DamageAmount = n
	}
	if v, ok := override[KeyCargoValue]; ok {
		n, err := parseAmount(v)
		if err != nil {
			return DamageAssessment{}, err
		}
		out.CargoValue = n
	}
	if v, ok := override[KeyConfidence]; ok {
		n, err := parseAmount(v)
		if err != nil {
			return DamageAssessment{}, err
		}
		out.Confidence = int(n)
	}
	return out, nil
}

// SettlementFor computes the payout of claim. Damage edits recorded on the
// claim feed the gross amount, claim fields included, so settlement pays on
// the same view the damage report shows. Claim fields in override win over
// the damage edit; override may also replace the gross outright.
func SettlementFor(claim *domain.Claim, override domain.StageEdit) (Settlement, error) {
	damageEdit := claim.EditedData[domain.StageDamageAssessment.ID()]
	damage, err := DamageFor(overlay(overlay(claim, damageEdit), override), damageEdit)
	if err != nil {
		return Settlement{}, err
	}

	gross := damage.DamageAmount
	basis := "assessed vehicle damage"
	if damage.Theft {
		gross = TheftGross(damage.CargoValue)
		basis = "85% of assessed cargo value"
	}
	if v, ok := override[KeyGrossSettlement]; ok {
		n, err := parseAmount(v)
		if err != nil {
			return Settlement{}, err
		}
		gross = n
		basis = "adjuster override"
	}

	out := SettleAmounts(gross)
	out.Basis = basis
	return out, nil
}
