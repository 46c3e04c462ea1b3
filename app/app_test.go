package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"sparkrt/hal"
	"sparkrt/kernel"
)

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) WriteLineString(s string) {
	l.mu.Lock()
	l.lines = append(l.lines, s)
	l.mu.Unlock()
}

func (l *testLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *testLogger) text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

type testLED struct{ toggles int }

func (l *testLED) High() { l.toggles++ }
func (l *testLED) Low()  { l.toggles++ }

type testSerial struct{ *strings.Reader }

func (testSerial) Write(p []byte) (int, error) { return len(p), nil }

type testHAL struct {
	log    *testLogger
	led    *testLED
	serial hal.Serial
}

func newTestHAL(input string) *testHAL {
	h := &testHAL{log: &testLogger{}, led: &testLED{}}
	if input != "" {
		h.serial = testSerial{strings.NewReader(input)}
	}
	return h
}

func (h *testHAL) Logger() hal.Logger   { return h.log }
func (h *testHAL) LED() hal.LED         { return h.led }
func (h *testHAL) Display() hal.Display { return nil }
func (h *testHAL) Serial() hal.Serial   { return h.serial }

func boot(t *testing.T, s *System) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Boot(ctx); err != nil {
		t.Fatalf("Boot() err = %v", err)
	}
}

func TestShellOverSerial(t *testing.T) {
	h := newTestHAL("echo hi\nstats\nhalt\n")
	s, err := New(h, Config{Shell: true, Virtual: true})
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	boot(t, s)

	out := h.log.text()
	for _, want := range []string{"hi\nDone", "stats: demo not running\nDone", "sparkrt: halt requested"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output = %q, want it to contain %q", out, want)
		}
	}
}

func TestDemoRunsUntilHaltAfter(t *testing.T) {
	h := newTestHAL("")
	s, err := New(h, Config{Demo: true, Virtual: true, HaltAfter: 2_000_000})
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	boot(t, s)

	d := s.demo
	if d.rounds == 0 || d.work[0] == 0 || d.work[1] == 0 || d.timeouts == 0 {
		t.Fatalf("demo stats = %s, want every counter above zero", d.stats())
	}
	if d.blinks < 3 || h.led.toggles != int(d.blinks) {
		t.Fatalf("blinks = %d, led toggles = %d, want at least 3 and equal", d.blinks, h.led.toggles)
	}
	if !strings.Contains(h.log.text(), "sparkrt: time limit reached") {
		t.Fatalf("output = %q, want the time limit line", h.log.text())
	}
	if now := s.Kernel().Clock().Now(); now != 2_000_000 {
		t.Fatalf("Clock().Now() = %d, want 2000000", now)
	}
	if err := s.Kernel().CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants() err = %v", err)
	}
}

func TestPanicLines(t *testing.T) {
	lines := panicLines(kernel.PanicInfo{PID: 3, Value: "boom"})
	if lines[0] != "Spark RT panic:" || lines[1] != "pid: 3" || lines[2] != "panic: boom" {
		t.Fatalf("panicLines() = %q", lines)
	}
	if lines[len(lines)-1] != "stack: unavailable" {
		t.Fatalf("panicLines() last = %q, want stack: unavailable", lines[len(lines)-1])
	}

	if p, r := takeRunes("héllo", 2); p != "hé" || r != "llo" {
		t.Fatalf("takeRunes() = %q, %q, want hé, llo", p, r)
	}
}
