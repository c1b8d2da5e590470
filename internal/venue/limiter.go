package venue

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// adaptiveLimiter wraps a token bucket with AIMD rate adjustment: repeated
// 429s cut the sustained rate multiplicatively, and a streak of clean
// successes restores it additively up to the configured rate. The mutex
// guards only the brief rate-accounting update, never a network call.
type adaptiveLimiter struct {
	limiter *rate.Limiter

	mu           sync.Mutex
	baseRate     float64
	currentRate  float64
	cleanStreak  int
	decreaseMult float64
	increaseStep float64
	minRate      float64
	// restoreAfter is the clean-success streak length that earns one
	// additive rate increase.
	restoreAfter int
}

func newAdaptiveLimiter(ratePerSec float64, burst int) *adaptiveLimiter {
	return &adaptiveLimiter{
		limiter:      rate.NewLimiter(rate.Limit(ratePerSec), burst),
		baseRate:     ratePerSec,
		currentRate:  ratePerSec,
		decreaseMult: 0.5,
		increaseStep: ratePerSec * 0.1,
		minRate:      ratePerSec * 0.05,
		restoreAfter: 10,
	}
}

// wait blocks until a token is available or the context is cancelled.
func (a *adaptiveLimiter) wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// onThrottled records a 429 and cuts the sustained rate.
func (a *adaptiveLimiter) onThrottled() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cleanStreak = 0
	next := a.currentRate * a.decreaseMult
	if next < a.minRate {
		next = a.minRate
	}
	if next != a.currentRate {
		a.currentRate = next
		a.limiter.SetLimit(rate.Limit(next))
	}
}

// onSuccess records a clean call; after enough in a row the rate recovers
// one additive step toward the configured base.
func (a *adaptiveLimiter) onSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentRate >= a.baseRate {
		a.cleanStreak = 0
		return
	}
	a.cleanStreak++
	if a.cleanStreak < a.restoreAfter {
		return
	}
	a.cleanStreak = 0
	next := a.currentRate + a.increaseStep
	if next > a.baseRate {
		next = a.baseRate
	}
	a.currentRate = next
	a.limiter.SetLimit(rate.Limit(next))
}

// rateNow reports the current sustained rate, for logging and tests.
func (a *adaptiveLimiter) rateNow() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}
