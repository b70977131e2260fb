package indicator

import (
	"time"

	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/cjeanneret/LapseGo/internal/hw/gpio"
)

// DefaultPeriod is the time between two toggles: the LED blinks once
// every two periods.
const DefaultPeriod = 1000 * time.Millisecond

// Blinker is a non-blocking heartbeat on an indicator pin. Tick must be
// called on every control-loop iteration while capturing.
type Blinker struct {
	gpio    gpio.Driver
	pin     int // BCM pin. 0 = no indicator fitted.
	period  time.Duration
	last    time.Time
	on      bool
	cleared bool
}

// NewBlinker configures pin as an output, driven low.
// A pin of 0 disables the indicator; Tick and Clear become no-ops.
func NewBlinker(g gpio.Driver, pin int, period time.Duration) *Blinker {
	if period <= 0 {
		period = DefaultPeriod
	}
	b := &Blinker{gpio: g, pin: pin, period: period, cleared: true}
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePin(pin, gpio.Low)
	}
	return b
}

// Tick flips the indicator when more than one period has passed since the
// last toggle.
func (b *Blinker) Tick(now time.Time) error {
	if b.pin <= 0 {
		return nil
	}
	if now.Sub(b.last) <= b.period {
		return nil
	}
	b.on = !b.on
	b.last = now
	b.cleared = false
	debug.Trace("Indicator: toggled %v", gpio.Level(b.on))
	return b.gpio.WritePin(b.pin, gpio.Level(b.on))
}

// Clear forces the indicator low. Only the first call after a toggle
// touches the pin.
func (b *Blinker) Clear() error {
	if b.pin <= 0 || b.cleared {
		return nil
	}
	b.on = false
	b.cleared = true
	b.last = time.Time{}
	return b.gpio.WritePin(b.pin, gpio.Low)
}

// On reports whether the indicator is currently lit.
func (b *Blinker) On() bool {
	return b.on
}
