// Package loop runs the single control goroutine: it owns the capture
// controller and interleaves command lines with periodic ticks, so no
// state is ever touched from two goroutines.
package loop

import (
	"context"
	"time"

	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/cjeanneret/LapseGo/internal/shell"
)

// DefaultPollInterval is how often the controller is ticked when no
// command arrives.
const DefaultPollInterval = 10 * time.Millisecond

// Dispatcher runs one command line and reports input errors.
type Dispatcher interface {
	Dispatch(line string) error
	Report(err error)
	Prompt()
}

// Ticker advances the capture state machine.
type Ticker interface {
	Tick()
}

// Loop is the control loop.
type Loop struct {
	shell        Dispatcher
	ctrl         Ticker
	lines        <-chan shell.Line
	pollInterval time.Duration
}

// New creates a loop reading lines from the given channel. A pollInterval
// of 0 selects DefaultPollInterval.
func New(shell Dispatcher, ctrl Ticker, lines <-chan shell.Line, pollInterval time.Duration) *Loop {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Loop{
		shell:        shell,
		ctrl:         ctrl,
		lines:        lines,
		pollInterval: pollInterval,
	}
}

// Run blocks until ctx is cancelled. When the input closes the loop keeps
// ticking so a running capture completes.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	debug.Verbose("Control loop polling every %v", l.pollInterval)
	l.shell.Prompt()

	lines := l.lines
	for {
		select {
		case <-ctx.Done():
			debug.Info("Control loop stopped: %v", context.Cause(ctx))
			return nil
		case line, ok := <-lines:
			if !ok {
				debug.Verbose("Command input closed")
				lines = nil
				continue
			}
			if line.Err != nil {
				l.shell.Report(line.Err)
			} else if err := l.shell.Dispatch(line.Text); err != nil {
				// Already reported to the console by the shell.
				debug.Verbose("Command failed: %v", err)
			}
			l.ctrl.Tick()
			l.shell.Prompt()
		case <-ticker.C:
			l.ctrl.Tick()
		}
	}
}
