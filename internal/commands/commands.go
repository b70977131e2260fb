// Package commands binds the firmware command set to the capture
// controller.
package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cjeanneret/LapseGo/internal/buildinfo"
	"github.com/cjeanneret/LapseGo/internal/logic/capture"
	"github.com/cjeanneret/LapseGo/internal/shell"
)

// Controller is the part of capture.Controller the commands drive.
type Controller interface {
	Start() error
	Cancel()
	TriggerPhoto() error
	SetPhotoCount(n uint32) error
	SetPhotoInterval(seconds float64) error
	SetTimeLapseDuration(seconds float64) error
	SetAutofocus(on bool) error
	Snapshot() capture.State
}

// Register adds every firmware command to sh.
func Register(sh *shell.Shell, ctrl Controller, info buildinfo.Info) error {
	h := &handlers{ctrl: ctrl, info: info}
	for _, cmd := range []shell.Command{
		{Name: "file?", Help: "firmware identity, version and build date", Handler: h.file},
		{Name: "status?", Help: "capture counters and settings", Handler: h.status},
		{Name: "trigger", Help: "fire one photo now (not counted)", Handler: h.trigger},
		{Name: "start", Help: "start the time-lapse", Handler: h.start},
		{Name: "cancel", Help: "stop the time-lapse", Handler: h.cancel},
		{Name: "set_count", Args: []string{"photos"}, Help: "photos per time-lapse, 0 = unlimited", Handler: h.setCount},
		{Name: "set_interval", Args: []string{"seconds"}, Help: "time between photos", Handler: h.setInterval},
		{Name: "set_dur", Args: []string{"seconds"}, Help: "total duration, at least one interval; sets the photo count", Handler: h.setDuration},
		{Name: "set_af", Args: []string{"on|off"}, Help: "pulse autofocus before each photo", Handler: h.setAutofocus},
	} {
		if err := sh.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

type handlers struct {
	ctrl Controller
	info buildinfo.Info
}

func (h *handlers) file(out io.Writer, _ []string) error {
	fmt.Fprintln(out, h.info.String())
	return nil
}

func (h *handlers) status(out io.Writer, _ []string) error {
	writeStatus(out, h.ctrl.Snapshot())
	return nil
}

func (h *handlers) trigger(out io.Writer, _ []string) error {
	if err := h.ctrl.TriggerPhoto(); err != nil {
		return err
	}
	fmt.Fprintln(out, "triggered")
	return nil
}

func (h *handlers) start(out io.Writer, _ []string) error {
	if err := h.ctrl.Start(); err != nil {
		return err
	}
	s := h.ctrl.Snapshot()
	fmt.Fprintf(out, "started run %s: %s\n", s.RunID, formatCount(s))
	return nil
}

func (h *handlers) cancel(out io.Writer, _ []string) error {
	if !h.ctrl.Snapshot().Active {
		fmt.Fprintln(out, "not capturing")
		return nil
	}
	h.ctrl.Cancel()
	fmt.Fprintf(out, "cancelled after %s\n", formatCount(h.ctrl.Snapshot()))
	return nil
}

func (h *handlers) setCount(out io.Writer, args []string) error {
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return badArgument(args[0])
	}
	if err := h.ctrl.SetPhotoCount(uint32(n)); err != nil {
		return err
	}
	writeSettings(out, h.ctrl.Snapshot())
	return nil
}

func (h *handlers) setInterval(out io.Writer, args []string) error {
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return badArgument(args[0])
	}
	if err := h.ctrl.SetPhotoInterval(v); err != nil {
		return err
	}
	writeSettings(out, h.ctrl.Snapshot())
	return nil
}

func (h *handlers) setDuration(out io.Writer, args []string) error {
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return badArgument(args[0])
	}
	if err := h.ctrl.SetTimeLapseDuration(v); err != nil {
		return err
	}
	writeSettings(out, h.ctrl.Snapshot())
	return nil
}

func (h *handlers) setAutofocus(out io.Writer, args []string) error {
	on, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	if err := h.ctrl.SetAutofocus(on); err != nil {
		return err
	}
	fmt.Fprintf(out, "autofocus: %s\n", onOff(on))
	return nil
}

func badArgument(arg string) error {
	return fmt.Errorf("%w %q", shell.ErrBadArgument, arg)
}

// parseSwitch accepts on/off in addition to strconv.ParseBool forms.
func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	v, err := strconv.ParseBool(arg)
	if err != nil {
		return false, badArgument(arg)
	}
	return v, nil
}
