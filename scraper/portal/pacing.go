package portal

import (
	"math/rand"
	"time"

	"portal-scraper/config"
	"portal-scraper/utils"
)

const (
	pacingWindow     = time.Minute
	peakHourCooldown = time.Minute
)

// PacingScheduler decides when the next outbound page request may
// fire. It keeps a rolling one-minute window of request timestamps and
// enforces a randomized minimum gap between consecutive requests.
//
// A scheduler instance is single-consumer: the crawl pipeline is one
// sequential worker, so no two AwaitTurn calls are ever in flight at
// once. If concurrent workers are ever introduced, the window and the
// last-request state must move behind a single arbiter.
type PacingScheduler struct {
	cfg    *config.Config
	logger *utils.Logger

	now   func() time.Time
	sleep func(time.Duration)
	randF func() float64

	window []time.Time
	last   time.Time
}

// NewPacingScheduler creates a scheduler bound to the given config.
func NewPacingScheduler(cfg *config.Config, logger *utils.Logger) *PacingScheduler {
	return &PacingScheduler{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
		randF:  rand.Float64,
	}
}

// AwaitTurn blocks until the next request is allowed to fire. It never
// fails; the new timestamp is recorded only after all waits complete.
func (p *PacingScheduler) AwaitTurn() {
	// Peak-hour cooldown is advisory, not a hard block: wait one fixed
	// minute, re-check, and proceed either way.
	if p.inPeakHours() {
		p.logger.Info("[pacing] Peak hours (%02d:00–%02d:00) — cooling down for %v",
			p.cfg.PeakStartHour, p.cfg.PeakEndHour, peakHourCooldown)
		p.sleep(peakHourCooldown)
		if p.inPeakHours() {
			p.logger.Debug("[pacing] Still inside peak window — proceeding anyway")
		}
	}

	p.prune()

	if len(p.window) >= p.cfg.MaxRequestsPerMinute {
		wait := pacingWindow - p.now().Sub(p.window[0])
		if wait > 0 {
			p.logger.Info("[pacing] Rate limit reached (%d/min) — waiting %.1fs",
				p.cfg.MaxRequestsPerMinute, wait.Seconds())
			p.sleep(wait)
		}
		p.prune()
	}

	// Minimum inter-request gap, sampled uniformly from
	// [minDelay, maxDelay].
	gap := p.cfg.MinDelaySeconds +
		p.randF()*(p.cfg.MaxDelaySeconds-p.cfg.MinDelaySeconds)
	minGap := time.Duration(gap * float64(time.Second))

	if !p.last.IsZero() {
		elapsed := p.now().Sub(p.last)
		if elapsed < minGap {
			p.sleep(minGap - elapsed)
		}
	}

	now := p.now()
	p.window = append(p.window, now)
	p.last = now
}

func (p *PacingScheduler) inPeakHours() bool {
	if !p.cfg.AvoidPeakHours {
		return false
	}
	hour := p.now().Hour()
	return hour >= p.cfg.PeakStartHour && hour <= p.cfg.PeakEndHour
}

func (p *PacingScheduler) prune() {
	cutoff := p.now().Add(-pacingWindow)
	kept := p.window[:0]
	for _, t := range p.window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.window = kept
}
