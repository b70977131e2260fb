package capture

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/cjeanneret/LapseGo/internal/hw/camera"
	"github.com/cjeanneret/LapseGo/internal/logic/timer"
	"github.com/google/uuid"
)

var (
	// ErrCaptureActive rejects a parameter change or a second start while a
	// capture is running.
	ErrCaptureActive = errors.New("capture in progress")
	// ErrInvalidValue rejects an interval or duration that cannot describe
	// a capture.
	ErrInvalidValue = errors.New("invalid value")
)

// Indicator is the status light advanced by the controller.
type Indicator interface {
	Tick(now time.Time) error
	Clear() error
}

// Config wires a Controller.
type Config struct {
	Camera    camera.Camera
	Indicator Indicator        // optional
	Clock     func() time.Time // nil = time.Now
	Initial   *State           // nil = DefaultState()
	OnChange  func(State)      // optional, called after every state change
	NewRunID  func() string    // nil = uuid.NewString
}

// Controller is the time-lapse state machine (Idle, Capturing).
//
// All methods except Published must be called from the control-loop
// goroutine: the state carries no lock.
type Controller struct {
	camera    camera.Camera
	indicator Indicator
	now       func() time.Time
	timer     *timer.Interval
	onChange  func(State)
	newRunID  func() string

	state     State
	published atomic.Pointer[State]
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	state := DefaultState()
	if cfg.Initial != nil {
		state = *cfg.Initial
		state.Active = false
		state.TakenCount = 0
		state.recomputeDuration()
	}

	c := &Controller{
		camera:    cfg.Camera,
		indicator: cfg.Indicator,
		now:       clock,
		timer:     timer.New(clock),
		onChange:  cfg.OnChange,
		newRunID:  newRunID,
		state:     state,
	}
	c.publish()
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	return c.state
}

// Published returns the last published state. Safe from any goroutine.
func (c *Controller) Published() State {
	return *c.published.Load()
}

// Active reports whether a capture is running.
func (c *Controller) Active() bool {
	return c.state.Active
}

func (c *Controller) publish() {
	s := c.state
	c.published.Store(&s)
	if c.onChange != nil {
		c.onChange(s)
	}
}

// Start begins a capture: the first photo fires immediately and the
// interval is measured from it. A capture of one photo ends within Start.
func (c *Controller) Start() error {
	if c.state.Active {
		return ErrCaptureActive
	}

	now := c.now()
	c.state.Active = true
	c.state.TakenCount = 0
	c.state.RunID = c.newRunID()
	c.state.StartedAt = now
	c.state.LastShotAt = time.Time{}

	debug.Transition("idle", "capturing", "start")
	debug.Info("Run %s: %d photos every %gs (%gs total)", c.state.RunID,
		c.state.TargetCount, c.state.IntervalSeconds, c.state.TotalDurationSeconds)

	c.timer.Restart()
	c.advance(now)
	return nil
}

// Cancel ends the capture immediately, freezing the counters. Cancelling
// an idle controller does nothing.
func (c *Controller) Cancel() {
	if !c.state.Active {
		return
	}
	c.stop("cancel")
}

// Tick runs one control-loop iteration. While idle it only makes sure the
// indicator is off; while capturing it advances the indicator and fires a
// photo once the interval has elapsed since the previous one.
func (c *Controller) Tick() {
	if !c.state.Active {
		if c.indicator != nil {
			if err := c.indicator.Clear(); err != nil {
				debug.Error(fmt.Errorf("clear indicator: %w", err))
			}
		}
		return
	}

	now := c.now()
	if c.indicator != nil {
		if err := c.indicator.Tick(now); err != nil {
			debug.Error(fmt.Errorf("tick indicator: %w", err))
		}
	}

	if !c.timer.HasElapsed(c.state.Interval()) {
		return
	}
	debug.Verbose("Interval elapsed after %v", c.timer.Elapsed())
	c.timer.Restart()
	c.advance(now)
}

// advance fires one counted photo and stops a bounded capture once the
// target is reached. A failed pulse is logged and still counted.
func (c *Controller) advance(now time.Time) {
	if err := c.camera.Shoot(c.state.Autofocus); err != nil {
		debug.Error(fmt.Errorf("photo %d: %w", c.state.TakenCount+1, err))
	}
	c.state.TakenCount++
	c.state.LastShotAt = now
	debug.Shot(c.state.TakenCount, c.state.TargetCount)

	if c.state.Done() {
		c.stop("target reached")
		return
	}
	c.publish()
}

func (c *Controller) stop(reason string) {
	c.state.Active = false
	debug.Transition("capturing", "idle", reason)
	debug.Info("Run %s: %d photos taken", c.state.RunID, c.state.TakenCount)
	c.publish()
}

// TriggerPhoto fires one manual photo. It is allowed in any state and
// leaves the counters untouched.
func (c *Controller) TriggerPhoto() error {
	debug.Live("Manual trigger")
	return c.camera.Shoot(c.state.Autofocus)
}

// SetPhotoCount sets the number of photos of the next capture; 0 means
// unlimited.
func (c *Controller) SetPhotoCount(n uint32) error {
	if c.state.Active {
		return ErrCaptureActive
	}
	c.state.TargetCount = n
	c.state.recomputeDuration()
	c.publish()
	return nil
}

// SetPhotoInterval sets the spacing between photos, in seconds.
func (c *Controller) SetPhotoInterval(seconds float64) error {
	if c.state.Active {
		return ErrCaptureActive
	}
	if !finitePositive(seconds) || seconds > MaxIntervalSeconds {
		return fmt.Errorf("%w: interval must be > 0 and <= %.0fs, got %g", ErrInvalidValue, MaxIntervalSeconds, seconds)
	}
	c.state.IntervalSeconds = seconds
	c.state.recomputeDuration()
	c.publish()
	return nil
}

// SetTimeLapseDuration derives the photo count from a total duration in
// seconds at the current interval. The stored duration is rounded down to
// a whole number of intervals.
func (c *Controller) SetTimeLapseDuration(seconds float64) error {
	if c.state.Active {
		return ErrCaptureActive
	}
	if !finitePositive(seconds) || seconds < c.state.IntervalSeconds {
		return fmt.Errorf("%w: duration must be at least one interval (%gs), got %g",
			ErrInvalidValue, c.state.IntervalSeconds, seconds)
	}
	c.state.deriveCount(seconds)
	c.publish()
	return nil
}

// SetAutofocus enables or disables the focus pulse before each shot.
func (c *Controller) SetAutofocus(on bool) error {
	if c.state.Active {
		return ErrCaptureActive
	}
	c.state.Autofocus = on
	c.publish()
	return nil
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
