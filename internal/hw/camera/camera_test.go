package camera

import (
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/LapseGo/internal/hw/gpio"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls    []gpioCall
	failPin  int
	failWith error
}

type gpioCall struct {
	op    string
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	if d.failWith != nil && pin == d.failPin {
		return d.failWith
	}
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return gpio.Low, nil
}

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) writeCalls() []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

type expectedWrite struct {
	pin   int
	level gpio.Level
	desc  string
}

func checkWrites(t *testing.T, got []gpioCall, want []expectedWrite) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %d: %v", len(want), len(got), got)
	}
	for i, exp := range want {
		if got[i].pin != exp.pin || got[i].level != exp.level {
			t.Errorf("step %d (%s): pin=%d level=%v, want pin=%d level=%v",
				i, exp.desc, got[i].pin, got[i].level, exp.pin, exp.level)
		}
	}
}

func newTestCamera(drv *recordingDriver, activeLow bool) *PulseGPIO {
	return NewPulseGPIO(drv, Config{
		FocusPin:   24,
		ShutterPin: 25,
		PulseWidth: time.Microsecond,
		ActiveLow:  activeLow,
	})
}

func TestPulseGPIO_PinsInitializedInactive(t *testing.T) {
	drv := &recordingDriver{}
	newTestCamera(drv, false)

	checkWrites(t, drv.writeCalls(), []expectedWrite{
		{24, gpio.Low, "focus idle"},
		{25, gpio.Low, "shutter idle"},
	})
}

func TestPulseGPIO_ActiveLowInitializedHigh(t *testing.T) {
	drv := &recordingDriver{}
	newTestCamera(drv, true)

	checkWrites(t, drv.writeCalls(), []expectedWrite{
		{24, gpio.High, "focus idle"},
		{25, gpio.High, "shutter idle"},
	})
}

func TestPulseGPIO_ShootWithoutAutofocus(t *testing.T) {
	drv := &recordingDriver{}
	cam := newTestCamera(drv, false)
	drv.calls = nil

	if err := cam.Shoot(false); err != nil {
		t.Fatalf("Shoot: %v", err)
	}

	checkWrites(t, drv.writeCalls(), []expectedWrite{
		{25, gpio.High, "shutter press"},
		{25, gpio.Low, "shutter release"},
	})
}

func TestPulseGPIO_ShootWithAutofocus(t *testing.T) {
	drv := &recordingDriver{}
	cam := newTestCamera(drv, false)
	drv.calls = nil

	if err := cam.Shoot(true); err != nil {
		t.Fatalf("Shoot: %v", err)
	}

	checkWrites(t, drv.writeCalls(), []expectedWrite{
		{24, gpio.High, "focus press"},
		{24, gpio.Low, "focus release"},
		{25, gpio.High, "shutter press"},
		{25, gpio.Low, "shutter release"},
	})
}

func TestPulseGPIO_ActiveLowShoot(t *testing.T) {
	drv := &recordingDriver{}
	cam := newTestCamera(drv, true)
	drv.calls = nil

	if err := cam.Shoot(true); err != nil {
		t.Fatalf("Shoot: %v", err)
	}

	checkWrites(t, drv.writeCalls(), []expectedWrite{
		{24, gpio.Low, "focus press"},
		{24, gpio.High, "focus release"},
		{25, gpio.Low, "shutter press"},
		{25, gpio.High, "shutter release"},
	})
}

func TestPulseGPIO_PulseHoldsForWidth(t *testing.T) {
	drv := &recordingDriver{}
	cam := NewPulseGPIO(drv, Config{FocusPin: 24, ShutterPin: 25, PulseWidth: 20 * time.Millisecond})

	start := time.Now()
	if err := cam.Pulse(25); err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Pulse returned after %v, want at least 20ms", elapsed)
	}
}

func TestPulseGPIO_DefaultWidth(t *testing.T) {
	drv := &recordingDriver{}
	cam := NewPulseGPIO(drv, Config{FocusPin: 24, ShutterPin: 25})
	if cam.PulseWidth() != DefaultPulseWidth {
		t.Errorf("default width = %v, want %v", cam.PulseWidth(), DefaultPulseWidth)
	}
}

func TestPulseGPIO_ShutterErrorReleasesFocus(t *testing.T) {
	drv := &recordingDriver{}
	cam := newTestCamera(drv, false)
	drv.calls = nil
	drv.failPin = 25
	drv.failWith = errors.New("bus error")

	err := cam.Shoot(true)
	if !errors.Is(err, drv.failWith) {
		t.Fatalf("Shoot error = %v, want %v", err, drv.failWith)
	}

	writes := drv.writeCalls()
	last := writes[len(writes)-1]
	if last.pin != 24 || last.level != gpio.Low {
		t.Errorf("last write should release focus, got pin=%d level=%v", last.pin, last.level)
	}
}

func TestPulseGPIO_ImplementsCamera(t *testing.T) {
	drv := &recordingDriver{}
	var _ Camera = newTestCamera(drv, false) // compile-time check
}
