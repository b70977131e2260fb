package timer

import "time"

// Interval tracks the time elapsed since its last restart. It never resets
// on its own: after consuming an expiry the caller restarts it, so the next
// period is measured from that moment rather than from a fixed schedule.
// Any delay between expiry and Restart therefore accumulates.
type Interval struct {
	now   func() time.Time
	epoch time.Time
}

// New returns a timer reading the given clock, restarted at creation.
// A nil clock uses time.Now (monotonic).
func New(clock func() time.Time) *Interval {
	if clock == nil {
		clock = time.Now
	}
	t := &Interval{now: clock}
	t.Restart()
	return t
}

// Restart records the current time as the epoch.
func (t *Interval) Restart() {
	t.epoch = t.now()
}

// Elapsed returns the time since the epoch.
func (t *Interval) Elapsed() time.Duration {
	return t.now().Sub(t.epoch)
}

// HasElapsed reports whether at least threshold has passed since the epoch.
func (t *Interval) HasElapsed(threshold time.Duration) bool {
	return t.Elapsed() >= threshold
}

// Epoch returns the time of the last restart.
func (t *Interval) Epoch() time.Time {
	return t.epoch
}
