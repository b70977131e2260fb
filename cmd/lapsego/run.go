package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cjeanneret/LapseGo/internal/buildinfo"
	"github.com/cjeanneret/LapseGo/internal/commands"
	"github.com/cjeanneret/LapseGo/internal/config"
	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/cjeanneret/LapseGo/internal/hw/camera"
	"github.com/cjeanneret/LapseGo/internal/hw/gpio"
	"github.com/cjeanneret/LapseGo/internal/hw/indicator"
	"github.com/cjeanneret/LapseGo/internal/hw/serialport"
	"github.com/cjeanneret/LapseGo/internal/logic/capture"
	"github.com/cjeanneret/LapseGo/internal/logic/loop"
	"github.com/cjeanneret/LapseGo/internal/shell"
	"github.com/cjeanneret/LapseGo/internal/web"
	"golang.org/x/sync/errgroup"
)

const prompt = "> "

// run opens the console, wires the hardware and blocks until ctx ends.
func run(ctx context.Context, cfg *config.Config) error {
	port, err := openConsole(cfg)
	if err != nil {
		return err
	}
	defer port.Close()

	// Command replies own stdout when the console is stdio.
	var logOut io.Writer = os.Stdout
	if cfg.Serial.Device == "" {
		logOut = os.Stderr
	}
	var monitor *web.StatusBroadcaster
	if cfg.Web.Port > 0 {
		monitor = web.NewStatusBroadcaster()
		logOut = io.MultiWriter(logOut, web.BroadcastWriter(monitor))
	}
	debug.SetOutput(logOut)
	debug.Init(cfg.Defaults.DebugLevel)

	info := buildinfo.Get()
	debug.Section("Initialization")
	debug.Value("Firmware", info.String())
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Console", consoleName(cfg))

	a, err := newApp(cfg, port, port.Interactive(), monitor)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			debug.Error(fmt.Errorf("closing GPIO driver: %w", err))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.run(ctx, port)
	})
	if monitor != nil {
		srv, err := web.NewServer(fmt.Sprintf(":%d", cfg.Web.Port), monitor, a.ctrl, info)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		})
	}

	debug.Section("Ready")
	return g.Wait()
}

// openConsole opens the command port and drops input queued before
// startup, such as a half-typed line or line noise from the adapter.
func openConsole(cfg *config.Config) (serialport.Port, error) {
	port, err := serialport.Open(serialport.Config{Device: cfg.Serial.Device, Baud: cfg.Serial.Baud})
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		debug.Verbose("Console flush failed: %v", err)
	}
	return port, nil
}

func consoleName(cfg *config.Config) string {
	if cfg.Serial.Device == "" {
		return "stdin/stdout"
	}
	return fmt.Sprintf("%s @ %d baud", cfg.Serial.Device, cfg.Serial.Baud)
}

// app is the wired firmware: GPIO, camera, indicator, controller and shell.
type app struct {
	cfg   *config.Config
	gpio  gpio.Driver
	ctrl  *capture.Controller
	shell *shell.Shell
}

// newApp initializes the hardware from cfg and binds the command set to a
// shell writing to console. monitor may be nil.
func newApp(cfg *config.Config, console io.Writer, interactive bool, monitor *web.StatusBroadcaster) (*app, error) {
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("init GPIO: %w", err)
	}

	debug.Step(2, "Initializing camera")
	cam, err := newCameraFromConfig(g, cfg)
	if err != nil {
		g.Close()
		return nil, err
	}
	debug.PrintStruct("Camera config", cfg.Camera)

	debug.Step(3, "Initializing indicator")
	blinker := indicator.NewBlinker(g, cfg.Indicator.Pin, cfg.BlinkPeriod())
	debug.PrintStruct("Indicator config", cfg.Indicator)

	debug.Step(4, "Creating capture controller")
	initial := capture.DefaultState()
	initial.TargetCount = cfg.PhotoCount()
	initial.IntervalSeconds = cfg.Capture.IntervalSeconds
	initial.Autofocus = cfg.Capture.Autofocus
	ctrlCfg := capture.Config{
		Camera:    cam,
		Indicator: blinker,
		Initial:   &initial,
	}
	if monitor != nil {
		ctrlCfg.OnChange = monitor.PublishState
	}
	ctrl := capture.NewController(ctrlCfg)

	debug.Step(5, "Registering commands")
	sh := shell.New(console)
	if interactive {
		sh.SetPrompt(prompt)
	}
	if err := commands.Register(sh, ctrl, buildinfo.Get()); err != nil {
		g.Close()
		return nil, fmt.Errorf("register commands: %w", err)
	}

	return &app{cfg: cfg, gpio: g, ctrl: ctrl, shell: sh}, nil
}

// run drives the control loop with lines read from in until ctx ends.
func (a *app) run(ctx context.Context, in io.Reader) error {
	lines := shell.ReadLines(ctx, in)
	return loop.New(a.shell, a.ctrl, lines, a.cfg.PollInterval()).Run(ctx)
}

// Close ends any capture and releases the pins. Call it after run returns.
func (a *app) Close() error {
	a.ctrl.Cancel()
	return a.gpio.Close()
}

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(g gpio.Driver, cfg *config.Config) (camera.Camera, error) {
	switch cfg.Camera.Type {
	case config.CameraPulseGPIO:
		return camera.NewPulseGPIO(g, camera.Config{
			FocusPin:   cfg.Camera.FocusPin,
			ShutterPin: cfg.Camera.ShutterPin,
			PulseWidth: cfg.PulseWidth(),
			ActiveLow:  cfg.Camera.ActiveLow,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}
