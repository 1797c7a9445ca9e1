package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ErrTimeout is returned by Poll when the policy timeout elapses before the
// polled operation completes.
var ErrTimeout = errors.New("retry: timed out")

// Policy holds backoff configuration
type Policy struct {
	InitialDelay time.Duration // Delay before the first retry (default: 100ms)
	MaxDelay     time.Duration // Maximum delay between attempts (default: 5s)
	Multiplier   float64       // Backoff multiplier (default: 2.0)
	Timeout      time.Duration // Overall bound for Poll; 0 means no bound
}

// DefaultPolicy returns the default polling policy
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Timeout:      2 * time.Minute,
	}
}

// withDefaults fills zero fields from DefaultPolicy, leaving Timeout as set.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// Backoff calculates the backoff duration for a given retry attempt
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	p = p.withDefaults()

	// Exponential: delay = initialDelay * (multiplier ^ (attempt-1))
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))

	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	// ±10% jitter so processes polling the same file drift apart
	jitter := delay * 0.1
	delay = delay + (rand.Float64()*2-1)*jitter

	return time.Duration(delay)
}

// Poll calls fn until it reports done or returns an error. Between attempts it
// sleeps for Backoff(attempt). Once the policy timeout has elapsed Poll returns
// an error wrapping ErrTimeout; cancellation of ctx is returned as ctx.Err().
func Poll(ctx context.Context, p Policy, fn func(attempt int) (done bool, err error)) error {
	p = p.withDefaults()

	var deadline <-chan time.Time
	if p.Timeout > 0 {
		timer := time.NewTimer(p.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.Backoff(attempt)):
			case <-deadline:
				return fmt.Errorf("%w after %d attempts (%s)", ErrTimeout, attempt, p.Timeout)
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		done, err := fn(attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
