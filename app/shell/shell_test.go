package shell

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sparkrt/hal/cpu"
	"sparkrt/kernel"
)

type lines []string

func (l *lines) WriteLineString(s string) { *l = append(*l, s) }

func (l *lines) take() []string {
	out := *l
	*l = nil
	return out
}

func newTestShell(t *testing.T) (*Shell, *cpu.CPU, *lines) {
	t.Helper()
	c := cpu.New(cpu.Options{HaltWhenIdle: true})
	k, err := kernel.New(c, kernel.Config{Clock: c.Clock()})
	if err != nil {
		t.Fatalf("kernel.New() err = %v", err)
	}
	out := &lines{}
	s, err := New(k, out)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	return s, c, out
}

func TestExec(t *testing.T) {
	s, _, out := newTestShell(t)
	k := s.Kernel()
	worker, err := k.CreateThread(make([]byte, 1024), 5, kernel.CreateSleeping, nil, nil, "worker")
	if err != nil {
		t.Fatalf("CreateThread() err = %v", err)
	}

	tcs := []struct {
		line string
		want []string
		err  error
	}{
		{line: "", want: nil},
		{line: `echo 'hello world' x`, want: []string{"hello world x", "Done"}},
		{line: "bogus arg", want: []string{"Unknown command: bogus"}, err: ErrUnknownCommand},
		{line: "wake 1", want: []string{"Done"}},
		{line: "wake 1", want: []string{"wake: pid 1 is not sleeping", "Done"}},
		{line: "wake 40", want: []string{`wake: invalid pid "40"`, "Done"}},
		{line: "flags 0x1 0x4", want: []string{"Done"}},
		{line: "flags 7 1", want: []string{"flags: kernel: no such thread: 7", "Done"}},
		{line: "uptime", want: []string{"up 0s", "Done"}},
	}
	for _, tc := range tcs {
		err := s.Exec(tc.line)
		if tc.err != nil && !errors.Is(err, tc.err) {
			t.Fatalf("Exec(%q) err = %v, want %v", tc.line, err, tc.err)
		}
		got := out.take()
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Fatalf("Exec(%q) printed %q, want %q", tc.line, got, tc.want)
		}
	}

	if got := k.ThreadStatus(worker); got != kernel.StatusPending {
		t.Fatalf("worker status = %s, want %s", got, kernel.StatusPending)
	}
	if k.Thread(worker).Flags()&4 == 0 {
		t.Fatalf("flags command did not set the flag")
	}
	if err := s.Exec(`echo "oops`); err == nil {
		t.Fatalf("Exec() with an open quote err = nil")
	}
	out.take()

	s.Exec("ps")
	got := out.take()
	if len(got) != 3 || !strings.HasPrefix(strings.TrimSpace(got[0]), "pid") || !strings.Contains(got[1], "worker") {
		t.Fatalf("ps printed %q, want a header and one row for worker", got)
	}

	s.Exec("stack 1")
	if got := out.take(); len(got) != 2 || !strings.HasPrefix(got[0], "pid 1: size ") {
		t.Fatalf("stack printed %q", got)
	}
}

func TestRegister(t *testing.T) {
	s, _, out := newTestShell(t)
	var called []string
	err := s.Register(Command{Name: "halt", Aliases: []string{"off"}, Desc: "Stop.", Run: func(_ *Shell, args []string) error {
		called = append(called, strings.Join(args, ","))
		return nil
	}})
	if err != nil {
		t.Fatalf("Register() err = %v", err)
	}
	if err := s.Register(Command{Name: "off", Run: cmdEcho}); err == nil {
		t.Fatalf("Register() of a name taken by an alias succeeded")
	}
	if err := s.Register(Command{Name: "nop"}); err == nil {
		t.Fatalf("Register() without handler succeeded")
	}

	s.Exec("off now")
	if len(called) != 1 || called[0] != "now" {
		t.Fatalf("alias ran handler with %q, want [now]", called)
	}
	out.take()

	s.Exec("help halt")
	if got := strings.Join(out.take(), "|"); got != "Stop.|aliases: off|Done" {
		t.Fatalf("help halt printed %q", got)
	}
}

func TestHelpListsGroups(t *testing.T) {
	s, _, out := newTestShell(t)
	if err := s.Register(Command{Name: "halt", Desc: "Stop.", Run: cmdEcho}); err != nil {
		t.Fatalf("Register() err = %v", err)
	}

	// A batch with a clash adds nothing.
	err := s.reg.add(groupSystem,
		Command{Name: "reboot", Desc: "Restart.", Run: cmdEcho},
		Command{Name: "boot", Aliases: []string{"reboot"}, Run: cmdEcho},
	)
	if err == nil {
		t.Fatalf("add() with a duplicate alias in the batch succeeded")
	}
	if _, ok := s.reg.resolve("reboot"); ok {
		t.Fatalf("resolve(reboot) found a command from a failed batch")
	}

	s.Exec("?")
	want := []string{
		"core:",
		"  help     Show available commands.",
		"  echo     Print arguments.",
		"kernel:",
		"  ps       List threads.",
		"  wake     Wake a sleeping thread.",
		"  flags    Set thread flags.",
		"  stack    Show stack usage of a thread.",
		"  uptime   Show time since boot.",
		"  version  Show build version.",
		"system:",
		"  halt     Stop.",
		"Done",
	}
	if got := out.take(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("help printed %q, want %q", got, want)
	}
}

func TestSubmitFromInterrupt(t *testing.T) {
	s, c, out := newTestShell(t)
	k := s.Kernel()

	if _, err := k.CreateThread(make([]byte, 1024), k.PriorityIdle(), 0, func(any) {
		for {
			c.WaitForInterrupt()
		}
	}, nil, "idle"); err != nil {
		t.Fatalf("CreateThread(idle) err = %v", err)
	}
	if _, err := s.Spawn(make([]byte, 2048), 4); err != nil {
		t.Fatalf("Spawn() err = %v", err)
	}

	var errs []error
	if _, err := k.CreateThread(make([]byte, 1024), 6, 0, func(any) {
		for _, line := range []string{"echo hi", "bogus"} {
			line := line
			c.Interrupt(func() { errs = append(errs, s.Submit(line)) })
		}
	}, nil, "feeder"); err != nil {
		t.Fatalf("CreateThread(feeder) err = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Boot(ctx); err != nil {
		t.Fatalf("Boot() err = %v", err)
	}

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Submit() #%d err = %v", i, err)
		}
	}
	want := "hi|Done|Unknown command: bogus"
	if got := strings.Join(*out, "|"); got != want {
		t.Fatalf("shell printed %q, want %q", got, want)
	}
	if got := k.ThreadStatus(s.PID()); got != kernel.StatusReceiveBlocked {
		t.Fatalf("shell status = %s, want %s", got, kernel.StatusReceiveBlocked)
	}
}
