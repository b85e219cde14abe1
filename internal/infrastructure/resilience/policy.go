package resilience

import (
	"strings"
	"time"
)

// DispatchPrefix marks step dispatch operations such as "nats.publish".
// Operation names carry their backend as a prefix and the prefix picks the
// policy.
const DispatchPrefix = "nats."

// Policy is the retry and breaker behavior of one backend.
type Policy struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// Config splits policy between the claim store and step dispatch. Store
// calls back every claim read and write, so they retry longer. Dispatch sits
// on the intake path, where a dead broker should surface as a 503 quickly
// rather than hold the submitter.
type Config struct {
	Store    Policy
	Dispatch Policy
}

func DefaultConfig() Config {
	return Config{
		Store: Policy{
			RetryMaxAttempts:        3,
			RetryInitialBackoff:     100 * time.Millisecond,
			RetryMaxBackoff:         400 * time.Millisecond,
			RetryMultiplier:         2.0,
			BreakerEnabled:          true,
			BreakerMinRequests:      10,
			BreakerFailureRatio:     0.5,
			BreakerOpenTimeout:      30 * time.Second,
			BreakerHalfOpenMaxCalls: 2,
		},
		Dispatch: Policy{
			RetryMaxAttempts:        2,
			RetryInitialBackoff:     50 * time.Millisecond,
			RetryMaxBackoff:         200 * time.Millisecond,
			RetryMultiplier:         2.0,
			BreakerEnabled:          true,
			BreakerMinRequests:      5,
			BreakerFailureRatio:     0.5,
			BreakerOpenTimeout:      15 * time.Second,
			BreakerHalfOpenMaxCalls: 1,
		},
	}
}

// For returns the policy of operation. Anything outside the dispatch prefix
// is treated as a store call.
func (c Config) For(operation string) Policy {
	if strings.HasPrefix(operation, DispatchPrefix) {
		return c.Dispatch
	}
	return c.Store
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	return Config{
		Store:    c.Store.normalize(def.Store),
		Dispatch: c.Dispatch.normalize(def.Dispatch),
	}
}

func (p Policy) normalize(def Policy) Policy {
	out := p
	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	out.RetryMaxBackoff = max(out.RetryMaxBackoff, out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}
