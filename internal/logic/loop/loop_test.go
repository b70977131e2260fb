package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/LapseGo/internal/shell"
)

type recordingShell struct {
	mu      sync.Mutex
	lines   []string
	reports []error
	prompts int
	fail    bool
}

func (r *recordingShell) Dispatch(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingShell) Report(err error) {
	r.mu.Lock()
	r.reports = append(r.reports, err)
	r.mu.Unlock()
}

func (r *recordingShell) Prompt() {
	r.mu.Lock()
	r.prompts++
	r.mu.Unlock()
}

func (r *recordingShell) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...), r.prompts
}

type countingTicker struct {
	mu    sync.Mutex
	ticks int
}

func (c *countingTicker) Tick() {
	c.mu.Lock()
	c.ticks++
	c.mu.Unlock()
}

func (c *countingTicker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

func runLoop(t *testing.T, l *Loop) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestNew_DefaultPollInterval(t *testing.T) {
	l := New(&recordingShell{}, &countingTicker{}, nil, 0)
	if l.pollInterval != DefaultPollInterval {
		t.Errorf("pollInterval = %v, want %v", l.pollInterval, DefaultPollInterval)
	}
}

func TestRun_DispatchesLinesInOrder(t *testing.T) {
	sh := &recordingShell{}
	tk := &countingTicker{}
	lines := make(chan shell.Line, 3)
	lines <- shell.Line{Text: "set_count 3"}
	lines <- shell.Line{Text: "start"}
	lines <- shell.Line{Text: "status?"}

	cancel, done := runLoop(t, New(sh, tk, lines, time.Millisecond))
	deadline := time.Now().Add(time.Second)
	for {
		if got, _ := sh.snapshot(); len(got) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("lines not dispatched")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	waitDone(t, done)

	got, prompts := sh.snapshot()
	want := []string{"set_count 3", "start", "status?"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	// One initial prompt plus one after each line.
	if prompts != 4 {
		t.Errorf("prompts = %d, want 4", prompts)
	}
}

func TestRun_TicksWithoutInput(t *testing.T) {
	tk := &countingTicker{}
	cancel, done := runLoop(t, New(&recordingShell{}, tk, make(chan shell.Line), time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	cancel()
	waitDone(t, done)

	if tk.count() < 5 {
		t.Errorf("ticks = %d, want at least 5", tk.count())
	}
}

func TestRun_KeepsTickingAfterInputCloses(t *testing.T) {
	tk := &countingTicker{}
	lines := make(chan shell.Line)
	close(lines)

	cancel, done := runLoop(t, New(&recordingShell{}, tk, lines, time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	cancel()
	waitDone(t, done)

	if tk.count() < 5 {
		t.Errorf("ticks = %d, want at least 5", tk.count())
	}
}

func TestRun_FailedCommandDoesNotStopLoop(t *testing.T) {
	sh := &recordingShell{fail: true}
	lines := make(chan shell.Line, 2)
	lines <- shell.Line{Text: "bogus"}
	lines <- shell.Line{Text: "again"}

	cancel, done := runLoop(t, New(sh, &countingTicker{}, lines, time.Millisecond))
	deadline := time.Now().Add(time.Second)
	for {
		if got, _ := sh.snapshot(); len(got) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second line not dispatched after a failure")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	waitDone(t, done)
}

func TestRun_ReportsInputErrorAndContinues(t *testing.T) {
	sh := &recordingShell{}
	lines := make(chan shell.Line, 2)
	lines <- shell.Line{Err: shell.ErrLineTooLong}
	lines <- shell.Line{Text: "cancel"}

	cancel, done := runLoop(t, New(sh, &countingTicker{}, lines, time.Millisecond))
	deadline := time.Now().Add(time.Second)
	for {
		if got, _ := sh.snapshot(); len(got) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("line after an input error not dispatched")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	waitDone(t, done)

	got, prompts := sh.snapshot()
	if got[0] != "cancel" {
		t.Errorf("dispatched %q, want cancel", got[0])
	}
	sh.mu.Lock()
	reports := sh.reports
	sh.mu.Unlock()
	if len(reports) != 1 || !errors.Is(reports[0], shell.ErrLineTooLong) {
		t.Errorf("reports = %v, want [%v]", reports, shell.ErrLineTooLong)
	}
	if prompts != 3 {
		t.Errorf("prompts = %d, want 3", prompts)
	}
}
