package portal

import (
	"testing"
	"time"
)

// fakeClock drives the scheduler deterministically: time only moves
// when the scheduler sleeps.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

func pacedScheduler(clock *fakeClock, maxPerMinute int, minDelay, maxDelay float64) *PacingScheduler {
	cfg := testConfig()
	cfg.MaxRequestsPerMinute = maxPerMinute
	cfg.MinDelaySeconds = minDelay
	cfg.MaxDelaySeconds = maxDelay

	p := NewPacingScheduler(cfg, testLogger())
	p.now = clock.now
	p.sleep = clock.sleep
	p.randF = func() float64 { return 0.5 }
	return p
}

func TestAwaitTurnNeverExceedsWindowLimit(t *testing.T) {
	const limit = 5
	clock := newFakeClock()
	p := pacedScheduler(clock, limit, 0, 0)

	var recorded []time.Time
	for i := 0; i < 25; i++ {
		p.AwaitTurn()
		recorded = append(recorded, clock.now())
	}

	// No trailing 60-second window may hold more than limit requests.
	for i := range recorded {
		inWindow := 0
		for j := 0; j <= i; j++ {
			if recorded[i].Sub(recorded[j]) < time.Minute {
				inWindow++
			}
		}
		if inWindow > limit {
			t.Fatalf("request %d: %d requests inside trailing 60s window, limit %d",
				i, inWindow, limit)
		}
	}
}

func TestAwaitTurnEnforcesMinimumGap(t *testing.T) {
	clock := newFakeClock()
	p := pacedScheduler(clock, 1000, 2, 4)

	p.AwaitTurn()
	first := clock.now()
	p.AwaitTurn()
	second := clock.now()

	// randF is pinned to 0.5, so the sampled gap is 3s.
	if gap := second.Sub(first); gap < 3*time.Second {
		t.Errorf("gap between requests: %v, want at least 3s", gap)
	}
}

func TestAwaitTurnPeakHourCooldown(t *testing.T) {
	clock := newFakeClock()
	clock.t = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cfg := testConfig()
	cfg.AvoidPeakHours = true
	cfg.PeakStartHour = 9
	cfg.PeakEndHour = 18

	p := NewPacingScheduler(cfg, testLogger())
	p.now = clock.now
	p.sleep = clock.sleep
	p.randF = func() float64 { return 0 }

	p.AwaitTurn()

	if len(clock.sleeps) == 0 || clock.sleeps[0] != time.Minute {
		t.Fatalf("expected a 60s peak-hour cooldown first, got %v", clock.sleeps)
	}
}

func TestAwaitTurnSkipsCooldownOffPeak(t *testing.T) {
	clock := newFakeClock() // 03:00, outside the default window
	cfg := testConfig()
	cfg.AvoidPeakHours = true
	cfg.PeakStartHour = 9
	cfg.PeakEndHour = 18

	p := NewPacingScheduler(cfg, testLogger())
	p.now = clock.now
	p.sleep = clock.sleep
	p.randF = func() float64 { return 0 }

	p.AwaitTurn()

	for _, d := range clock.sleeps {
		if d == time.Minute {
			t.Errorf("unexpected peak cooldown outside peak hours")
		}
	}
}
