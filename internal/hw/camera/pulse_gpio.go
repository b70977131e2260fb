package camera

import (
	"time"

	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/cjeanneret/LapseGo/internal/hw/gpio"
)

// DefaultPulseWidth is how long a line is held active for one press.
const DefaultPulseWidth = 100 * time.Millisecond

// PulseGPIO is a Camera implementation for bodies triggered by a wired
// remote: one line for autofocus, one for the shutter. Each press is a
// single pulse of fixed width on the corresponding line.
//
// Trigger sequence:
// 1. (autofocus only) FOCUS active, hold, FOCUS inactive
// 2. SHUTTER active, hold, SHUTTER inactive
//
// Pulse blocks the caller for the pulse width, so one shot with
// autofocus stalls the control loop for up to twice the width.
type PulseGPIO struct {
	gpio       gpio.Driver
	focusPin   int
	shutterPin int
	width      time.Duration
	activeLow  bool
}

// Config holds the wiring of a pulse-triggered camera.
type Config struct {
	FocusPin   int
	ShutterPin int
	PulseWidth time.Duration // 0 = DefaultPulseWidth
	ActiveLow  bool          // lines idle HIGH and are pulled LOW to press
}

// NewPulseGPIO configures both lines as outputs at their resting level.
func NewPulseGPIO(g gpio.Driver, cfg Config) *PulseGPIO {
	width := cfg.PulseWidth
	if width <= 0 {
		width = DefaultPulseWidth
	}

	_ = g.SetupPin(cfg.FocusPin, gpio.Output)
	_ = g.SetupPin(cfg.ShutterPin, gpio.Output)
	_ = g.WritePin(cfg.FocusPin, gpio.Inactive(cfg.ActiveLow))
	_ = g.WritePin(cfg.ShutterPin, gpio.Inactive(cfg.ActiveLow))

	return &PulseGPIO{
		gpio:       g,
		focusPin:   cfg.FocusPin,
		shutterPin: cfg.ShutterPin,
		width:      width,
		activeLow:  cfg.ActiveLow,
	}
}

// Pulse drives pin active for the pulse width, then releases it.
// If asserting the line fails nothing was pressed and the error is returned
// as is; a release failure is returned after the hold.
func (p *PulseGPIO) Pulse(pin int) error {
	debug.Verbose("Camera: pulsing pin %d for %v", pin, p.width)

	if err := p.gpio.WritePin(pin, gpio.Active(p.activeLow)); err != nil {
		return err
	}
	time.Sleep(p.width)
	return p.gpio.WritePin(pin, gpio.Inactive(p.activeLow))
}

// Shoot fires one photo. Order is fixed: focus before shutter.
func (p *PulseGPIO) Shoot(autofocus bool) error {
	debug.Printf("Camera: triggering shot (af=%v, focus=%d, shutter=%d)", autofocus, p.focusPin, p.shutterPin)

	if autofocus {
		if err := p.Pulse(p.focusPin); err != nil {
			return err
		}
	}
	if err := p.Pulse(p.shutterPin); err != nil {
		// Release FOCUS on error
		_ = p.gpio.WritePin(p.focusPin, gpio.Inactive(p.activeLow))
		return err
	}
	return nil
}

// PulseWidth returns the configured hold time of one pulse.
func (p *PulseGPIO) PulseWidth() time.Duration {
	return p.width
}
