package worker

import (
	"math"
	"time"
)

// RetryPolicy controls how failed sync tasks are rescheduled: geometric
// backoff from InitialDelay, clamped at MaxDelay, giving up after MaxRetries
// attempts (the task then goes to the dead letter).
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before the given attempt (1-based). Zero or
// negative policy fields fall back to one second / factor 2.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	if delay <= 0 {
		delay = time.Second
	}
	return delay
}
