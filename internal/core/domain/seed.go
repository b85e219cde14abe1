package domain

// SeedClaim is a demo claim inserted with a fixed id and driven through the
// first Steps pipeline steps.
type SeedClaim struct {
	ID      string      `yaml:"id"`
	DaysAgo int         `yaml:"days_ago"`
	Steps   int         `yaml:"steps"`
	Intake  ClaimIntake `yaml:"intake"`
}
