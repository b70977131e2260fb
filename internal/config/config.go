package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a configuration file.
const MaxConfigFileBytes = 64 * 1024

// maxIntervalSeconds is the longest interval a time.Duration can hold.
const maxIntervalSeconds = float64(math.MaxInt64 / int64(time.Second))

// CameraPulseGPIO is the only supported camera type: a wired remote with
// FOCUS and SHUTTER lines.
const CameraPulseGPIO = "pulse_gpio"

// Highest BCM pin number exposed by go-rpio.
const maxBCMPin = 53

// CameraConfig describes how to communicate with the camera.
// Type selects a concrete implementation (e.g., "pulse_gpio").
type CameraConfig struct {
	Type         string `yaml:"type"`           // e.g., "pulse_gpio"
	FocusPin     int    `yaml:"focus_pin"`      // GPIO pin for FOCUS line
	ShutterPin   int    `yaml:"shutter_pin"`    // GPIO pin for SHUTTER line
	PulseWidthMs int    `yaml:"pulse_width_ms"` // hold time of one press (ms)
	ActiveLow    bool   `yaml:"active_low"`     // lines idle HIGH, pulled LOW to press
	// Note: GND is physically connected to Raspberry Pi ground
}

// IndicatorConfig describes the status LED.
type IndicatorConfig struct {
	Pin           int `yaml:"pin"`             // 0 = no indicator fitted
	BlinkPeriodMs int `yaml:"blink_period_ms"` // time between toggles (ms)
}

// CaptureConfig holds the capture parameters applied at power-on.
type CaptureConfig struct {
	PhotoCount      *uint32 `yaml:"photo_count"` // 0 = unlimited, unset = 1
	IntervalSeconds float64 `yaml:"interval_s"`
	Autofocus       bool    `yaml:"autofocus"`
}

// SerialConfig selects the command console. An empty device means the
// process's stdin/stdout.
type SerialConfig struct {
	Device string `yaml:"device"` // e.g., "/dev/ttyACM0"
	Baud   int    `yaml:"baud"`
}

// WebConfig controls the read-only status monitor.
type WebConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	PollIntervalMs int  `yaml:"poll_interval_ms"` // control loop period
	DebugLevel     int  `yaml:"debug_level"`      // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO       bool `yaml:"mock_gpio"`        // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Capture   CaptureConfig   `yaml:"capture"`
	Serial    SerialConfig    `yaml:"serial"`
	Web       WebConfig       `yaml:"web"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// ValidateConfigPath accepts only "<dir>/configs/<name>.yaml" paths without
// ".." segments.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain \"..\"", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	return Parse(data)
}

// Parse decodes YAML, fills in defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Camera.PulseWidthMs <= 0 {
		c.Camera.PulseWidthMs = 100 // 100ms press
	}
	if c.Indicator.BlinkPeriodMs <= 0 {
		c.Indicator.BlinkPeriodMs = 1000 // 1 Hz toggle
	}
	if c.Capture.PhotoCount == nil {
		one := uint32(1)
		c.Capture.PhotoCount = &one
	}
	if c.Capture.IntervalSeconds == 0 {
		c.Capture.IntervalSeconds = 1
	}
	if c.Serial.Baud <= 0 {
		c.Serial.Baud = 115200
	}
	if c.Defaults.PollIntervalMs <= 0 {
		c.Defaults.PollIntervalMs = 10
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.Camera.Type == "" {
		return fmt.Errorf("camera.type is required")
	}
	if err := checkPin("camera.shutter_pin", c.Camera.ShutterPin, true); err != nil {
		return err
	}
	if err := checkPin("camera.focus_pin", c.Camera.FocusPin, true); err != nil {
		return err
	}
	if err := checkPin("indicator.pin", c.Indicator.Pin, false); err != nil {
		return err
	}
	if c.Camera.FocusPin == c.Camera.ShutterPin {
		return fmt.Errorf("camera.focus_pin and camera.shutter_pin must differ, both are %d", c.Camera.ShutterPin)
	}
	if c.Indicator.Pin != 0 && (c.Indicator.Pin == c.Camera.FocusPin || c.Indicator.Pin == c.Camera.ShutterPin) {
		return fmt.Errorf("indicator.pin %d is already used by the camera", c.Indicator.Pin)
	}
	iv := c.Capture.IntervalSeconds
	if math.IsNaN(iv) || math.IsInf(iv, 0) || iv <= 0 || iv > maxIntervalSeconds {
		return fmt.Errorf("capture.interval_s must be > 0 and <= %.0f, got %g", maxIntervalSeconds, iv)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be 0-65535, got %d", c.Web.Port)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be 0-4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

func checkPin(name string, pin int, required bool) error {
	if pin == 0 && !required {
		return nil
	}
	if pin <= 0 || pin > maxBCMPin {
		return fmt.Errorf("%s must be a BCM pin 1-%d, got %d", name, maxBCMPin, pin)
	}
	return nil
}

// PulseWidth returns the hold time of one camera press.
func (c *Config) PulseWidth() time.Duration {
	return time.Duration(c.Camera.PulseWidthMs) * time.Millisecond
}

// BlinkPeriod returns the time between two indicator toggles.
func (c *Config) BlinkPeriod() time.Duration {
	return time.Duration(c.Indicator.BlinkPeriodMs) * time.Millisecond
}

// PollInterval returns the control loop period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Defaults.PollIntervalMs) * time.Millisecond
}

// PhotoCount returns the configured photo count; 0 means unlimited.
func (c *Config) PhotoCount() uint32 {
	if c.Capture.PhotoCount == nil {
		return 1
	}
	return *c.Capture.PhotoCount
}
