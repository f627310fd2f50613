package webhook

import (
	"math/rand"
	"time"
)

/* BackoffPolicy computes retry scheduling. A pure function of
 * (attempt number, config): no hidden state, independently testable.
 */
type BackoffPolicy struct {
	// Base is the delay before the first retry. Doubles on each attempt.
	Base time.Duration
	// Cap bounds the deterministic delay.
	Cap time.Duration
	// MaxAttempts is the automatic attempt budget for a new delivery, and
	// the extra budget granted by each manual retry.
	MaxAttempts int
	// JitterFrac adds up to this fraction of random extra delay on top of
	// the deterministic floor, spreading retries against the same target.
	JitterFrac float64
}

// DefaultBackoff returns the documented defaults: base 30s, cap 1h,
// 5 attempts, 25% jitter.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Base:        30 * time.Second,
		Cap:         time.Hour,
		MaxAttempts: 5,
		JitterFrac:  0.25,
	}
}

// NextDelay returns the delay before attempt number `attempt` (1-based, the
// attempt about to be scheduled). The deterministic floor is
// base * 2^(attempt-1) capped at Cap; jitter only ever adds to the floor, so
// the floor stays monotone in the attempt number.
func (p BackoffPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	floor := p.floor(attempt)
	if p.JitterFrac <= 0 {
		return floor
	}
	jitter := time.Duration(rand.Float64() * p.JitterFrac * float64(floor))
	return floor + jitter
}

// Floor returns the deterministic part of NextDelay, exposed for tests.
func (p BackoffPolicy) Floor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.floor(attempt)
}

func (p BackoffPolicy) floor(attempt int) time.Duration {
	// Shifting past 62 bits overflows time.Duration; the cap applies long
	// before that for any sane config.
	shift := attempt - 1
	if shift > 32 {
		return p.Cap
	}
	d := p.Base << shift
	if d > p.Cap || d < p.Base {
		return p.Cap
	}
	return d
}

// Exhausted reports whether a delivery with the given attempt count has
// spent its budget.
func (p BackoffPolicy) Exhausted(attempts, budget int) bool {
	if budget <= 0 {
		budget = p.MaxAttempts
	}
	return attempts >= budget
}

// Validate checks the policy configuration.
func (p BackoffPolicy) Validate() error {
	if p.Base <= 0 {
		return ErrInvalidInput
	}
	if p.Cap < p.Base {
		return ErrInvalidInput
	}
	if p.MaxAttempts < 1 {
		return ErrInvalidInput
	}
	return nil
}
