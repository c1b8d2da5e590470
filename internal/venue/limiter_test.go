package venue

import "testing"

func TestAdaptiveLimiter_ThrottleCutsRate(t *testing.T) {
	l := newAdaptiveLimiter(10, 5)

	l.onThrottled()
	if got := l.rateNow(); got != 5 {
		t.Errorf("rate after one throttle = %g, want 5", got)
	}
	l.onThrottled()
	if got := l.rateNow(); got != 2.5 {
		t.Errorf("rate after two throttles = %g, want 2.5", got)
	}
}

func TestAdaptiveLimiter_RateFloor(t *testing.T) {
	l := newAdaptiveLimiter(10, 5)

	for i := 0; i < 20; i++ {
		l.onThrottled()
	}
	if got, floor := l.rateNow(), 10*0.05; got != floor {
		t.Errorf("rate = %g, want floor %g", got, floor)
	}
}

func TestAdaptiveLimiter_RecoversAfterCleanStreak(t *testing.T) {
	l := newAdaptiveLimiter(10, 5)
	l.onThrottled() // 10 -> 5

	// Nine clean calls are not enough.
	for i := 0; i < 9; i++ {
		l.onSuccess()
	}
	if got := l.rateNow(); got != 5 {
		t.Fatalf("rate after 9 successes = %g, want 5", got)
	}

	// The tenth earns one additive step.
	l.onSuccess()
	if got := l.rateNow(); got != 6 {
		t.Errorf("rate after 10 successes = %g, want 6", got)
	}
}

func TestAdaptiveLimiter_NeverExceedsBase(t *testing.T) {
	l := newAdaptiveLimiter(10, 5)
	l.onThrottled()

	for i := 0; i < 200; i++ {
		l.onSuccess()
	}
	if got := l.rateNow(); got != 10 {
		t.Errorf("recovered rate = %g, want base 10", got)
	}
}

func TestAdaptiveLimiter_ThrottleResetsStreak(t *testing.T) {
	l := newAdaptiveLimiter(10, 5)
	l.onThrottled() // 10 -> 5

	for i := 0; i < 9; i++ {
		l.onSuccess()
	}
	l.onThrottled() // 5 -> 2.5, streak cleared
	for i := 0; i < 9; i++ {
		l.onSuccess()
	}
	if got := l.rateNow(); got != 2.5 {
		t.Errorf("rate = %g, want 2.5 (streak should reset on throttle)", got)
	}
}
