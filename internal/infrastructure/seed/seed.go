// Package seed provides the demo claim portfolio.
package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

//go:embed demo_claims.yaml
var demoClaims []byte

func DemoClaims() ([]domain.SeedClaim, error) {
	var doc struct {
		Claims []domain.SeedClaim `yaml:"claims"`
	}
	if err := yaml.Unmarshal(demoClaims, &doc); err != nil {
		return nil, fmt.Errorf("decode demo claims: %w", err)
	}
	return doc.Claims, nil
}
