package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

func money(v int64) string {
	return message.NewPrinter(language.English).Sprintf("$%d", v)
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

type documentSet struct {
	photos    []string
	police    []string
	estimates []string
	manifests []string
	receipts  []string
	other     []string
}

func classifyDocuments(files []domain.FileMeta) documentSet {
	var out documentSet
	for _, f := range files {
		name := strings.ToLower(f.Name)
		switch {
		case isImage(f):
			out.photos = append(out.photos, f.Name)
		case strings.Contains(name, "police"):
			out.police = append(out.police, f.Name)
		case strings.Contains(name, "estimate"):
			out.estimates = append(out.estimates, f.Name)
		case strings.Contains(name, "manifest"):
			out.manifests = append(out.manifests, f.Name)
		case strings.Contains(name, "receipt"):
			out.receipts = append(out.receipts, f.Name)
		default:
			out.other = append(out.other, f.Name)
		}
	}
	return out
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  - %s: %s\n", label, strings.Join(items, ", "))
}

func renderIntake(c *domain.Claim, _ domain.StageEdit) (Report, error) {
	docs := classifyDocuments(c.Files)
	categories := 0
	for _, group := range [][]string{docs.photos, docs.police, docs.estimates, docs.manifests, docs.receipts} {
		if len(group) > 0 {
			categories++
		}
	}
	completeness := 60 + categories*10
	if completeness > 100 {
		completeness = 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FNOL Intake Summary for %s\n", c.ID)
	fmt.Fprintf(&b, "Claimant: %s (%s, %s)\n", orDash(c.Name), orDash(c.Phone), orDash(c.Email))
	fmt.Fprintf(&b, "Fleet Owner: %s | Driver: %s\n", orDash(c.FleetOwner), orDash(c.DriverName))
	fmt.Fprintf(&b, "Policy: %s | Loss Type: %s\n", orDash(c.PolicyNumber), orDash(c.LossType))
	fmt.Fprintf(&b, "Incident: %s %s at %s\n", orDash(c.IncidentDate), orDash(c.IncidentTime), orDash(c.Location))
	fmt.Fprintf(&b, "Vehicles Involved: %s\n", strings.Join(c.VehiclesInvolved, ", "))
	fmt.Fprintf(&b, "Narrative: %s\n", orDash(c.Description))
	fmt.Fprintf(&b, "Documents Received: %d\n", len(c.Files))
	writeList(&b, "Damage photos", docs.photos)
	writeList(&b, "Police reports", docs.police)
	writeList(&b, "Repair estimates", docs.estimates)
	writeList(&b, "Cargo manifests", docs.manifests)
	writeList(&b, "Receipts", docs.receipts)
	writeList(&b, "Other", docs.other)
	fmt.Fprintf(&b, "Intake Completeness: %d%%", completeness)
	return Report{Text: b.String()}, nil
}

type check struct {
	label string
	ok    bool
}

func renderValidation(c *domain.Claim, _ domain.StageEdit) (Report, error) {
	incident, dateErr := time.Parse("2006-01-02", strings.TrimSpace(c.IncidentDate))
	_, timeOK := incidentHour(c.IncidentTime)
	realVehicles := len(c.VehiclesInvolved) > 0 &&
		!(len(c.VehiclesInvolved) == 1 && c.VehiclesInvolved[0] == domain.DefaultVehicle)

	checks := []check{
		{label: "Policy number format (POL-#)", ok: strings.HasPrefix(strings.ToUpper(c.PolicyNumber), "POL-")},
		{label: "Claimant name present", ok: strings.TrimSpace(c.Name) != ""},
		{label: "Contact phone present", ok: strings.TrimSpace(c.Phone) != ""},
		{label: "Contact email well-formed", ok: strings.Contains(c.Email, "@")},
		{label: "Incident date valid", ok: dateErr == nil},
		{label: "Incident time valid", ok: timeOK},
		{label: "Incident location present", ok: strings.TrimSpace(c.Location) != ""},
		{label: "Vehicles identified", ok: realVehicles},
		{label: "Incident description present", ok: strings.TrimSpace(c.Description) != ""},
	}
	if dateErr == nil && !c.SubmittedAt.IsZero() {
		checks = append(checks, check{
			label: "Incident precedes submission",
			ok:    !incident.After(c.SubmittedAt),
		})
	}

	issues := 0
	var b strings.Builder
	fmt.Fprintf(&b, "Validation Report for %s\n", c.ID)
	for _, ch := range checks {
		mark := "PASS"
		if !ch.ok {
			mark = "FAIL"
			issues++
		}
		fmt.Fprintf(&b, "[%s] %s\n", mark, ch.label)
	}
	if issues == 0 {
		b.WriteString("Validation Result: PASSED")
	} else {
		fmt.Fprintf(&b, "Validation Result: NEEDS REVIEW (%d issue(s))", issues)
	}
	return Report{Text: b.String()}, nil
}

func renderFraud(c *domain.Claim, override domain.StageEdit) (Report, error) {
	fraud := AssessFraud(c)
	if v, ok := override[KeyRiskLevel]; ok {
		level, _ := domain.ParseFraudRisk(v)
		fraud.Level = level
		fraud.LevelEdited = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fraud Detection Analysis for %s\n", c.ID)
	fmt.Fprintf(&b, "Risk Score: %d/100\n", fraud.Score)
	fmt.Fprintf(&b, "Fraud Risk Level: %s", fraud.Level)
	if fraud.LevelEdited {
		b.WriteString(" (set by reviewer)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Prior Claims on Policy %s: %d\n", orDash(c.PolicyNumber), fraud.PriorClaims)
	if len(fraud.Indicators) == 0 {
		b.WriteString("Indicators: none\n")
	} else {
		b.WriteString("Indicators:\n")
		for _, ind := range fraud.Indicators {
			fmt.Fprintf(&b, "  - %s\n", ind)
		}
	}
	switch fraud.Level {
	case domain.FraudRiskHigh:
		b.WriteString("Recommendation: refer to the special investigations unit before payment")
	case domain.FraudRiskMedium:
		b.WriteString("Recommendation: proceed with enhanced document review")
	default:
		b.WriteString("Recommendation: proceed with standard processing")
	}
	return Report{Text: b.String(), Fraud: &fraud}, nil
}

func claimPriority(c *domain.Claim) string {
	loss := strings.ToLower(c.LossType)
	switch {
	case len(c.VehiclesInvolved) > 1, strings.Contains(loss, "fire"), strings.Contains(loss, "multi"):
		return "High"
	case isTheft(c.LossType):
		return "Elevated"
	default:
		return "Standard"
	}
}

func renderClaimCreation(c *domain.Claim, _ domain.StageEdit) (Report, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim File Created: %s\n", c.ID)
	fmt.Fprintf(&b, "Policy: %s | Fleet Owner: %s\n", orDash(c.PolicyNumber), orDash(c.FleetOwner))
	fmt.Fprintf(&b, "Priority: %s\n", claimPriority(c))
	fmt.Fprintf(&b, "Assigned Adjuster: %s\n", orDash(c.AssignedAdjuster))
	if d := c.AdjusterDetails; d != nil {
		fmt.Fprintf(&b, "  Contact: %s, %s\n", orDash(d.Email), orDash(d.Phone))
		fmt.Fprintf(&b, "  Office: %s | Expertise: %s\n", orDash(d.Location), orDash(d.Expertise))
	}
	fmt.Fprintf(&b, "Adjuster Workload: %d%%\n", AdjusterWorkload(c.ID))
	fmt.Fprintf(&b, "Target Settlement: within %d business days", SLADays(c.ID))
	return Report{Text: b.String()}, nil
}

type coverage struct {
	name  string
	limit int64
}

func coverageFor(lossType string) coverage {
	loss := strings.ToLower(lossType)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(loss, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("cargo"):
		return coverage{name: "Motor Truck Cargo", limit: 150000}
	case has("theft"):
		return coverage{name: "Comprehensive (Theft)", limit: 100000}
	case has("collision", "jackknife", "accident"):
		return coverage{name: "Commercial Auto Collision", limit: 250000}
	case has("weather", "hail", "fire", "flood", "vandal"):
		return coverage{name: "Comprehensive", limit: 200000}
	case has("liability", "property"):
		return coverage{name: "Commercial General Liability", limit: 500000}
	case has("mechanical"):
		return coverage{name: "Physical Damage (Mechanical Breakdown Endorsement)", limit: 50000}
	default:
		return coverage{name: "Commercial Auto Physical Damage", limit: 100000}
	}
}

func renderCoverage(c *domain.Claim, _ domain.StageEdit) (Report, error) {
	cov := coverageFor(c.LossType)
	policyStatus := "Active"
	if !strings.HasPrefix(strings.ToUpper(c.PolicyNumber), "POL-") {
		policyStatus = "Requires manual verification"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Coverage Verification for %s\n", c.ID)
	fmt.Fprintf(&b, "Policy %s: %s\n", orDash(c.PolicyNumber), policyStatus)
	fmt.Fprintf(&b, "Applicable Coverage: %s\n", cov.name)
	fmt.Fprintf(&b, "Coverage Limit: %s\n", money(cov.limit))
	fmt.Fprintf(&b, "Deductible: %s\n", money(Deductible))
	fmt.Fprintf(&b, "Covered Vehicles: %s", strings.Join(c.VehiclesInvolved, ", "))
	return Report{Text: b.String()}, nil
}

func renderDamage(c *domain.Claim, override domain.StageEdit) (Report, error) {
	damage, err := DamageFor(c, override)
	if err != nil {
		return Report{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Damage Assessment for %s\n", c.ID)
	fmt.Fprintf(&b, "Photos Analyzed: %d\n", damage.PhotoCount)
	if len(damage.Findings) == 0 {
		b.WriteString("Findings: no damage indicators in uploaded documents; baseline estimate applied\n")
	} else {
		b.WriteString("Findings:\n")
		for _, f := range damage.Findings {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	if damage.Theft {
		fmt.Fprintf(&b, "Estimated Cargo Value: %s\n", money(damage.CargoValue))
	}
	fmt.Fprintf(&b, "Total Damage Amount: %s\n", money(damage.DamageAmount))
	fmt.Fprintf(&b, "Assessment Confidence: %d%%", damage.Confidence)
	return Report{Text: b.String(), Damage: &damage}, nil
}

func renderSettlement(c *domain.Claim, override domain.StageEdit) (Report, error) {
	settlement, err := SettlementFor(c, override)
	if err != nil {
		return Report{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Settlement Calculation for %s\n", c.ID)
	fmt.Fprintf(&b, "Basis: %s\n", settlement.Basis)
	fmt.Fprintf(&b, "Gross Settlement: %s\n", money(settlement.Gross))
	fmt.Fprintf(&b, "Less Deductible: %s\n", money(settlement.Deductible))
	fmt.Fprintf(&b, "Net Payout: %s\n", money(settlement.Net))
	fmt.Fprintf(&b, "Payee: %s", orDash(c.FleetOwner))
	return Report{Text: b.String(), Settlement: &settlement}, nil
}

func renderCommunication(c *domain.Claim, override domain.StageEdit) (Report, error) {
	emailBody, hasEmail := override[KeyEmailBody]
	notes, hasNotes := override[KeyInternalNotes]
	if hasEmail && hasNotes {
		return Report{Text: formatCommunication(emailBody, notes), verbatim: true}, nil
	}

	settlement, err := SettlementFor(c, c.EditedData[domain.StageSettlementPayout.ID()])
	if err != nil {
		return Report{}, err
	}

	if !hasEmail {
		var b strings.Builder
		fmt.Fprintf(&b, "Subject: Update on your claim %s\n\n", c.ID)
		fmt.Fprintf(&b, "Dear %s,\n\n", orDash(c.Name))
		fmt.Fprintf(&b, "We have completed our review of claim %s for the %s incident on %s at %s. ",
			c.ID, orDash(c.LossType), orDash(c.IncidentDate), orDash(c.Location))
		fmt.Fprintf(&b, "An estimated net payout of %s has been approved after the %s deductible.\n\n",
			money(settlement.Net), money(settlement.Deductible))
		fmt.Fprintf(&b, "Your adjuster, %s, will contact you", orDash(c.AssignedAdjuster))
		if d := c.AdjusterDetails; d != nil {
			fmt.Fprintf(&b, " from %s (%s, %s)", orDash(d.Location), orDash(d.Phone), orDash(d.Email))
		}
		b.WriteString(" to confirm payment details.\n\nKind regards,\nClaims Team")
		emailBody = b.String()
	}
	if !hasNotes {
		fraud := AssessFraud(c)
		if v, ok := c.EditedData[domain.StageFraudDetection.ID()][KeyRiskLevel]; ok {
			fraud.Level, _ = domain.ParseFraudRisk(v)
		}
		notes = fmt.Sprintf("Fraud risk %s; gross %s, net %s (%s); %d document(s) on file.",
			fraud.Level, money(settlement.Gross), money(settlement.Net), settlement.Basis, len(c.Files))
	}
	return Report{Text: formatCommunication(emailBody, notes)}, nil
}

func formatCommunication(emailBody, notes string) string {
	return "Email Draft:\n" + emailBody + "\n\nInternal Notes:\n" + notes
}
