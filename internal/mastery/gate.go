// Package mastery decides progression after an assessment: pass/fail,
// mastery, and when a retry becomes available.
package mastery

import (
	"fmt"
	"time"
)

const (
	// DefaultPassThreshold is the fixed "passed" bar, independent of mastery.
	DefaultPassThreshold = 70.0

	// DefaultMasteryThreshold applies when an assessment does not set one.
	DefaultMasteryThreshold = 80.0

	// DefaultCooldown is the wait before a non-mastered assessment can be retaken.
	DefaultCooldown = 24 * time.Hour
)

// Gate evaluates completed assessments. The zero value uses the defaults.
type Gate struct {
	PassThreshold float64
	Cooldown      time.Duration
}

// NewGate returns a gate with the given pass threshold and cooldown. Zero
// values fall back to the defaults.
func NewGate(passThreshold float64, cooldown time.Duration) *Gate {
	return &Gate{PassThreshold: passThreshold, Cooldown: cooldown}
}

func (g *Gate) passThreshold() float64 {
	if g == nil || g.PassThreshold <= 0 {
		return DefaultPassThreshold
	}
	return g.PassThreshold
}

func (g *Gate) cooldown() time.Duration {
	if g == nil || g.Cooldown <= 0 {
		return DefaultCooldown
	}
	return g.Cooldown
}

// Decision is the gate's verdict for one attempt.
type Decision struct {
	Score            float64
	MasteryThreshold float64
	Passed           bool
	Mastered         bool

	// RetryAvailableAt is nil when mastered.
	RetryAvailableAt *time.Time
	DecidedAt        time.Time
}

// Evaluate decides pass, mastery and retry availability for score (0-100).
func (g *Gate) Evaluate(score, masteryThreshold float64, now time.Time) Decision {
	d := Decision{
		Score:            score,
		MasteryThreshold: masteryThreshold,
		Passed:           score >= g.passThreshold(),
		Mastered:         score >= masteryThreshold,
		DecidedAt:        now,
	}
	if !d.Mastered {
		at := now.Add(g.cooldown())
		d.RetryAvailableAt = &at
	}
	return d
}

// CanRetry reports whether a retake is allowed at now.
func (d Decision) CanRetry(now time.Time) bool {
	return d.RetryAvailableAt == nil || !now.Before(*d.RetryAvailableAt)
}

// RetryIn returns the time left before a retake is allowed, or zero.
func (d Decision) RetryIn(now time.Time) time.Duration {
	if d.RetryAvailableAt == nil {
		return 0
	}
	return max(d.RetryAvailableAt.Sub(now), 0)
}

// RetryGate wraps a persisted retry time for callers that have no Decision,
// such as a stored progress record.
func RetryGate(retryAvailableAt *time.Time) Decision {
	return Decision{RetryAvailableAt: retryAvailableAt}
}

// FormatCountdown renders a remaining duration as HH:MM:SS, rounding up so
// the display never shows zero while a retry is still locked.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
