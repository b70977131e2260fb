// Package serialport opens the command console: a tty device through
// github.com/tarm/serial, or the process's stdin/stdout when no device is
// configured.
package serialport

import (
	"fmt"
	"io"
	"os"

	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/tarm/serial"
	"golang.org/x/term"
)

// DefaultBaud is used when Config.Baud is 0.
const DefaultBaud = 115200

// Port is a bidirectional command channel.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output where supported.
	Flush() error

	// Interactive reports whether a person is typing on the other end,
	// in which case the shell writes a prompt.
	Interactive() bool
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0"). Empty selects stdin/stdout.
	Device string

	// Baud rate. USB CDC devices ignore it.
	Baud int
}

// Open returns the configured port.
func Open(cfg Config) (Port, error) {
	if cfg.Device == "" {
		debug.Verbose("Console: stdin/stdout")
		return NewConsole(os.Stdin, os.Stdout, isTerminal(os.Stdin) && isTerminal(os.Stdout)), nil
	}

	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	// ReadTimeout 0 blocks until data arrives. A timeout would surface as
	// empty reads that bufio.Scanner treats as an error.
	p, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Device, err)
	}
	debug.Info("Console: %s at %d baud", cfg.Device, baud)
	return &device{Port: p}, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// device adapts a tarm/serial port. The far end is usually a host program,
// so no prompt is written.
type device struct {
	*serial.Port
}

func (d *device) Interactive() bool { return false }

// Console is a Port over an arbitrary reader and writer.
type Console struct {
	in          io.Reader
	out         io.Writer
	interactive bool
}

// NewConsole wraps in and out. Close does not close either side: stdin
// cannot be unblocked and stdout stays in use by the logger.
func NewConsole(in io.Reader, out io.Writer, interactive bool) *Console {
	return &Console{in: in, out: out, interactive: interactive}
}

func (c *Console) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *Console) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *Console) Close() error                { return nil }
func (c *Console) Flush() error                { return nil }
func (c *Console) Interactive() bool           { return c.interactive }
