// Package memory is the default process-local claim store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
)

// ClaimRepository keeps claims in a map guarded by a single mutex. Reads and
// writes exchange deep copies, so callers never alias stored state.
type ClaimRepository struct {
	mu     sync.RWMutex
	claims map[string]*domain.Claim
	order  []string
	now    ports.Clock
}

func NewClaimRepository(now ports.Clock) *ClaimRepository {
	if now == nil {
		now = time.Now
	}
	return &ClaimRepository{
		claims: make(map[string]*domain.Claim),
		now:    now,
	}
}

func (r *ClaimRepository) Create(_ context.Context, claim *domain.Claim) error {
	if claim == nil || claim.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create claim", fmt.Errorf("claim id is required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.claims[claim.ID]; exists {
		return domain.WrapError(domain.ErrDuplicateID, "create claim", fmt.Errorf("id %s", claim.ID))
	}
	stored := claim.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = r.now().UTC()
	}
	r.claims[claim.ID] = stored
	r.order = append(r.order, claim.ID)
	return nil
}

func (r *ClaimRepository) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, notFound("get claim", id)
	}
	return c.Clone(), nil
}

// List returns claims most recent first.
func (r *ClaimRepository) List(_ context.Context, filter domain.ClaimFilter) ([]domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Claim, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.claims[r.order[i]]
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, *c.Clone())
	}
	return out, nil
}

func (r *ClaimRepository) Update(_ context.Context, id string, patch domain.ClaimPatch) error {
	return r.mutate("update claim", id, func(c *domain.Claim) {
		patch.Apply(c)
	})
}

func (r *ClaimRepository) RecordStageOutput(_ context.Context, id, stage, text string) error {
	return r.mutate("record stage output", id, func(c *domain.Claim) {
		if c.AgentOutputs == nil {
			c.AgentOutputs = make(map[string]string)
		}
		c.AgentOutputs[stage] = text
	})
}

func (r *ClaimRepository) RecordEdit(_ context.Context, id, stage string, fields domain.StageEdit) error {
	return r.mutate("record edit", id, func(c *domain.Claim) {
		if c.EditedData == nil {
			c.EditedData = make(map[string]domain.StageEdit)
		}
		c.EditedData[stage] = fields.Clone()
	})
}

func (r *ClaimRepository) mutate(op, id string, fn func(c *domain.Claim)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return notFound(op, id)
	}
	fn(c)
	c.UpdatedAt = r.now().UTC()
	return nil
}

func notFound(op, id string) error {
	return domain.WrapError(domain.ErrClaimNotFound, op, fmt.Errorf("id %s", id))
}
