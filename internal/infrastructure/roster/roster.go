// Package roster loads the adjuster roster and assigns new claims to it.
package roster

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/report"
)

//go:embed default_roster.yaml
var defaultRoster []byte

type file struct {
	Adjusters []domain.Adjuster `yaml:"adjusters"`
}

// Roster implements ports.AdjusterAssigner.
type Roster struct {
	adjusters []domain.Adjuster
}

// Load reads a roster file. An empty path selects the built-in roster.
func Load(path string) (*Roster, error) {
	raw := defaultRoster
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read roster %s: %w", path, err)
		}
		raw = data
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Roster, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if len(f.Adjusters) == 0 {
		return nil, errors.New("roster has no adjusters")
	}
	for i, a := range f.Adjusters {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("roster entry %d has no name", i)
		}
		for j, kw := range a.Keywords {
			f.Adjusters[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return &Roster{adjusters: f.Adjusters}, nil
}

func (r *Roster) Adjusters() []domain.Adjuster {
	return append([]domain.Adjuster(nil), r.adjusters...)
}

// Assign picks the adjuster whose keywords best match the loss type and
// description. Ties, including no match at all, break on the claim number.
func (r *Roster) Assign(claim *domain.Claim) domain.Adjuster {
	loss := strings.ToLower(claim.LossType)
	narrative := strings.ToLower(claim.Description)

	best := -1
	var candidates []domain.Adjuster
	for _, a := range r.adjusters {
		score := 0
		for _, kw := range a.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(loss, kw) {
				score += 2
			} else if strings.Contains(narrative, kw) {
				score++
			}
		}
		switch {
		case score > best:
			best = score
			candidates = []domain.Adjuster{a}
		case score == best:
			candidates = append(candidates, a)
		}
	}

	pick := candidates[report.ClaimNumber(claim.ID)%uint64(len(candidates))]
	pick.Keywords = append([]string(nil), pick.Keywords...)
	return pick
}
