package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

type claimRepoFake struct {
	mu     sync.Mutex
	claims map[string]*domain.Claim
	order  []string

	createErrs []error
	updateErr  error
	getHook    func(id string)
	recordHook func(id, stage string)
}

func newClaimRepoFake() *claimRepoFake {
	return &claimRepoFake{claims: make(map[string]*domain.Claim)}
}

func (f *claimRepoFake) Create(_ context.Context, claim *domain.Claim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := f.claims[claim.ID]; ok {
		return domain.WrapError(domain.ErrDuplicateID, "create claim", fmt.Errorf("id %s", claim.ID))
	}
	f.claims[claim.ID] = claim.Clone()
	f.order = append([]string{claim.ID}, f.order...)
	return nil
}

func (f *claimRepoFake) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	if f.getHook != nil {
		f.getHook(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", fmt.Errorf("id %s", id))
	}
	return c.Clone(), nil
}

func (f *claimRepoFake) List(_ context.Context, filter domain.ClaimFilter) ([]domain.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Claim, 0, len(f.order))
	for _, id := range f.order {
		c := f.claims[id]
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, *c.Clone())
	}
	return out, nil
}

func (f *claimRepoFake) Update(_ context.Context, id string, patch domain.ClaimPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	c, ok := f.claims[id]
	if !ok {
		return domain.WrapError(domain.ErrClaimNotFound, "update claim", fmt.Errorf("id %s", id))
	}
	patch.Apply(c)
	return nil
}

func (f *claimRepoFake) RecordStageOutput(_ context.Context, id, stage, text string) error {
	if f.recordHook != nil {
		f.recordHook(id, stage)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return domain.WrapError(domain.ErrClaimNotFound, "record output", fmt.Errorf("id %s", id))
	}
	c.AgentOutputs[stage] = text
	return nil
}

func (f *claimRepoFake) RecordEdit(_ context.Context, id, stage string, fields domain.StageEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return domain.WrapError(domain.ErrClaimNotFound, "record edit", fmt.Errorf("id %s", id))
	}
	c.EditedData[stage] = fields.Clone()
	return nil
}

// mutate edits a stored claim directly, bypassing the port.
func (f *claimRepoFake) mutate(id string, fn func(c *domain.Claim)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.claims[id])
}

type dispatcherFake struct {
	started  []string
	canceled []string
	err      error
}

func (f *dispatcherFake) Start(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, id)
	return nil
}

func (f *dispatcherFake) Cancel(_ context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return nil
}

type assignerFake struct {
	adjuster domain.Adjuster
	calls    int
}

func (f *assignerFake) Assign(*domain.Claim) domain.Adjuster {
	f.calls++
	return f.adjuster
}

type observerFake struct {
	mu        sync.Mutex
	submitted int
	executed  []string
	failures  int
	approved  []int64
}

func (f *observerFake) ClaimSubmitted() {
	f.mu.Lock()
	f.submitted++
	f.mu.Unlock()
}

func (f *observerFake) StageExecuted(stage string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, stage)
	if err != nil {
		f.failures++
	}
}

func (f *observerFake) ClaimApproved(payout int64) {
	f.mu.Lock()
	f.approved = append(f.approved, payout)
	f.mu.Unlock()
}

type exporterFake struct {
	exported int
}

func (f *exporterFake) Export(_ context.Context, claims []domain.Claim, w io.Writer) error {
	f.exported = len(claims)
	_, err := io.WriteString(w, "xlsx")
	return err
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
}

func collisionIntake() domain.ClaimIntake {
	return domain.ClaimIntake{
		PolicyNumber:     "POL-789456",
		FleetOwner:       "ABC Logistics Inc.",
		DriverName:       "Michael Rodriguez",
		VehiclesInvolved: []string{"TRK-001", "VAN-045"},
		LossType:         "Collision",
		IncidentDate:     "2026-03-10",
		IncidentTime:     "14:30",
		Location:         "Interstate 95, Mile Marker 127, Baltimore, MD",
		Description:      "Rear-end collision during heavy traffic causing front-end damage to vehicle",
		Name:             "John Smith",
		Phone:            "(555) 123-4567",
		Email:            "john@abclogistics.com",
		Files: []domain.FileMeta{
			{Name: "front_bumper.jpg", Size: 2048, MimeType: "image/jpeg"},
			{Name: "police_report.pdf", Size: 4096, MimeType: "application/pdf"},
		},
	}
}

var sarah = domain.Adjuster{
	Name:      "Sarah Johnson",
	Email:     "sarah.johnson@autosure.com",
	Phone:     "(555) 234-5671",
	Location:  "Chicago, IL",
	Expertise: "Collision Claims",
}
