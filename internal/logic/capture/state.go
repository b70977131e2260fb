package capture

import (
	"math"
	"time"
)

// Defaults applied at startup.
const (
	DefaultPhotoCount      uint32  = 1
	DefaultIntervalSeconds float64 = 1
)

// MaxIntervalSeconds is the longest interval a time.Duration can hold.
const MaxIntervalSeconds = float64(math.MaxInt64 / int64(time.Second))

// State is the capture bookkeeping owned by the Controller.
//
// TargetCount 0 means unlimited. Outside a capture TotalDurationSeconds is
// always TargetCount * IntervalSeconds.
type State struct {
	Active               bool      `json:"active"`
	Autofocus            bool      `json:"autofocus"`
	TargetCount          uint32    `json:"target_count"`
	TakenCount           uint32    `json:"taken_count"`
	IntervalSeconds      float64   `json:"interval_s"`
	TotalDurationSeconds float64   `json:"total_duration_s"`
	RunID                string    `json:"run_id,omitempty"`
	StartedAt            time.Time `json:"started_at"`
	LastShotAt           time.Time `json:"last_shot_at"`
}

// DefaultState returns the power-on state.
func DefaultState() State {
	s := State{
		TargetCount:     DefaultPhotoCount,
		IntervalSeconds: DefaultIntervalSeconds,
	}
	s.recomputeDuration()
	return s
}

// Interval returns the photo spacing as a duration.
func (s State) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds * float64(time.Second))
}

// Unlimited reports whether the capture only ends on cancel.
func (s State) Unlimited() bool {
	return s.TargetCount == 0
}

// Remaining returns how many photos are left in a bounded capture.
func (s State) Remaining() uint32 {
	if s.Unlimited() || s.TakenCount >= s.TargetCount {
		return 0
	}
	return s.TargetCount - s.TakenCount
}

// ETA estimates when the last photo of an active bounded capture fires.
// It returns the zero time when idle, unlimited, or too far out for a
// time.Duration.
func (s State) ETA() time.Time {
	if !s.Active || s.Unlimited() || s.LastShotAt.IsZero() {
		return time.Time{}
	}
	left, iv := int64(s.Remaining()), s.Interval()
	if iv > 0 && left > math.MaxInt64/int64(iv) {
		return time.Time{}
	}
	return s.LastShotAt.Add(time.Duration(left) * iv)
}

// Done reports whether a bounded capture has fired all its photos.
func (s State) Done() bool {
	return !s.Unlimited() && s.TakenCount >= s.TargetCount
}

func (s *State) recomputeDuration() {
	s.TotalDurationSeconds = float64(s.TargetCount) * s.IntervalSeconds
}

// deriveCount sets TargetCount from the total duration and re-normalises
// the duration to a whole number of intervals.
func (s *State) deriveCount(totalSeconds float64) {
	n := math.Floor(totalSeconds / s.IntervalSeconds)
	if n > math.MaxUint32 {
		n = math.MaxUint32
	}
	s.TargetCount = uint32(n)
	s.recomputeDuration()
}
