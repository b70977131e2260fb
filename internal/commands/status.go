package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cjeanneret/LapseGo/internal/logic/capture"
	"github.com/dustin/go-humanize"
)

// writeStatus prints one "key: value" line per field.
func writeStatus(out io.Writer, s capture.State) {
	fmt.Fprintf(out, "capturing: %s\n", yesNo(s.Active))
	fmt.Fprintf(out, "photos: %s\n", formatCount(s))
	fmt.Fprintf(out, "interval: %s\n", formatSeconds(s.IntervalSeconds))
	fmt.Fprintf(out, "duration: %s\n", formatDuration(s))
	fmt.Fprintf(out, "autofocus: %s\n", onOff(s.Autofocus))
	if s.RunID != "" {
		fmt.Fprintf(out, "run: %s\n", s.RunID)
	}
	if eta := s.ETA(); !eta.IsZero() {
		fmt.Fprintf(out, "done: %s\n", humanize.Time(eta))
	}
}

// writeSettings echoes the capture parameters after a change.
func writeSettings(out io.Writer, s capture.State) {
	fmt.Fprintf(out, "count: %s, interval: %s, duration: %s\n",
		formatTarget(s.TargetCount), formatSeconds(s.IntervalSeconds), formatDuration(s))
}

// formatCount renders "taken/target".
func formatCount(s capture.State) string {
	return humanize.Comma(int64(s.TakenCount)) + "/" + formatTarget(s.TargetCount)
}

func formatTarget(n uint32) string {
	if n == 0 {
		return "unlimited"
	}
	return humanize.Comma(int64(n))
}

func formatDuration(s capture.State) string {
	if s.Unlimited() {
		return "unlimited"
	}
	return formatSeconds(s.TotalDurationSeconds)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
