package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/cjeanneret/LapseGo/internal/debug"
)

// maxLineBytes caps a single command line, terminator excluded.
const maxLineBytes = 256

// ErrLineTooLong reports an input line longer than maxLineBytes. The line
// is discarded up to its terminator and reading continues.
var ErrLineTooLong = errors.New("line too long")

// Line is one unit of console input: a command line, or Err when the
// line could not be read.
type Line struct {
	Text string
	Err  error
}

// ReadLines scans r in its own goroutine and delivers each line on the
// returned channel, which is closed on EOF, read error or ctx
// cancellation. Lines may end in "\n", "\r" or "\r\n": serial terminals
// often send a bare carriage return. Empty lines are not delivered.
// An over-long line is delivered as a Line with ErrLineTooLong.
//
// Only the scan runs off the control loop; lines are consumed by the loop,
// so command handlers never race with it.
func ReadLines(ctx context.Context, r io.Reader) <-chan Line {
	lines := make(chan Line)
	go func() {
		defer close(lines)
		split := &lineSplitter{max: maxLineBytes}
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, maxLineBytes+1), maxLineBytes+1)
		sc.Split(split.scan)
		for sc.Scan() {
			var line Line
			switch {
			case split.dropped:
				split.dropped = false
				debug.Verbose("Discarded input line over %d bytes", maxLineBytes)
				line.Err = ErrLineTooLong
			case len(sc.Bytes()) == 0:
				continue
			default:
				line.Text = sc.Text()
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			debug.Error(err)
		}
	}()
	return lines
}

// lineSplitter ends a line at either CR or LF, so a CRLF pair yields an
// extra empty token. Input past max bytes without a terminator is thrown
// away as it arrives; the terminator that ends it yields an empty token
// with dropped set.
type lineSplitter struct {
	max      int
	skipping bool
	dropped  bool
}

func (s *lineSplitter) scan(data []byte, atEOF bool) (advance int, token []byte, err error) {
	i := bytes.IndexAny(data, "\r\n")
	switch {
	case i >= 0 && (s.skipping || i > s.max):
		return i + 1, s.drop(), nil
	case i >= 0:
		return i + 1, data[:i], nil
	case len(data) > s.max:
		s.skipping = true
		return len(data), nil, nil
	case atEOF && s.skipping:
		return len(data), s.drop(), nil
	case atEOF && len(data) > 0:
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (s *lineSplitter) drop() []byte {
	s.skipping = false
	s.dropped = true
	return []byte{}
}
