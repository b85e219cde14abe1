package usecase

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/ports"
)

const claimSuffixSpace = 1_000_000

// IDGenerator derives claim ids of the form CL-<year>-<6 digits> from the
// millisecond clock. Retries after a collision shift the suffix by a random
// non-zero offset.
type IDGenerator struct {
	now    ports.Clock
	offset func(n int) int
}

func NewIDGenerator(now ports.Clock) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now, offset: rand.IntN}
}

// WithOffsetSource replaces the random source used on retries.
func (g *IDGenerator) WithOffsetSource(offset func(n int) int) *IDGenerator {
	g.offset = offset
	return g
}

func (g *IDGenerator) Now() time.Time {
	return g.now().UTC()
}

func (g *IDGenerator) Next(attempt int) string {
	now := g.Now()
	suffix := int(now.UnixMilli() % claimSuffixSpace)
	if attempt > 0 {
		suffix = (suffix + 1 + g.offset(claimSuffixSpace-1)) % claimSuffixSpace
	}
	return fmt.Sprintf("CL-%04d-%06d", now.Year(), suffix)
}
