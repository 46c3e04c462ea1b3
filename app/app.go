package app

import (
	"bufio"
	"context"
	"fmt"

	"sparkrt/app/monitor"
	"sparkrt/app/shell"
	"sparkrt/hal"
	"sparkrt/hal/cpu"
	"sparkrt/internal/buildinfo"
	"sparkrt/kernel"
)

// Config selects what runs on top of the kernel.
type Config struct {
	// Demo starts the sample workload threads.
	Demo bool
	// Shell runs the command interpreter on the serial console.
	Shell bool
	// Monitor draws the thread table on the display every Step.
	Monitor bool
	// Virtual runs the kernel on simulated time.
	Virtual bool
	// HaltAfter stops the system after that many microseconds; 0 runs
	// until halted otherwise.
	HaltAfter uint64
}

const (
	prioMonitor = 3
	prioShell   = 4

	idleStackLen  = 512
	mainStackLen  = 2048
	shellStackLen = 4096
	monStackLen   = 4096
)

// System is one kernel instance wired to a HAL.
type System struct {
	h   hal.HAL
	cfg Config
	cpu *cpu.CPU
	k   *kernel.Kernel

	shell *shell.Shell
	mon   *monitor.Monitor
	demo  *demo

	haltTimer kernel.Timer
}

// New builds the system with its idle and main threads. Nothing runs until
// Boot.
func New(h hal.HAL, cfg Config) (*System, error) {
	installPanicHandler(h)

	c := cpu.New(cpu.Options{Wall: !cfg.Virtual})
	k, err := kernel.New(c, kernel.Config{Clock: c.Clock(), Logger: h.Logger()})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	s := &System{h: h, cfg: cfg, cpu: c, k: k}

	if _, err := k.CreateThread(make([]byte, idleStackLen), k.PriorityIdle(), 0, s.idle, nil, "idle"); err != nil {
		return nil, fmt.Errorf("app: idle: %w", err)
	}
	if _, err := k.CreateThread(make([]byte, mainStackLen), k.PriorityMain(), 0, s.main, nil, "main"); err != nil {
		return nil, fmt.Errorf("app: main: %w", err)
	}

	if cfg.Monitor {
		if d := h.Display(); d != nil && d.Framebuffer() != nil {
			s.mon = monitor.New(k, d.Framebuffer())
			if _, err := s.mon.Spawn(make([]byte, monStackLen), prioMonitor); err != nil {
				return nil, err
			}
		}
	}
	if cfg.Shell {
		if s.shell, err = shell.New(k, h.Logger()); err != nil {
			return nil, err
		}
		if err := s.registerCommands(); err != nil {
			return nil, err
		}
		if _, err := s.shell.Spawn(make([]byte, shellStackLen), prioShell); err != nil {
			return nil, err
		}
	}
	if cfg.Demo {
		s.demo = newDemo(k, c, h.LED())
	}
	if cfg.HaltAfter > 0 {
		s.haltTimer.Callback = func(any) { s.halt("time limit reached") }
	}
	return s, nil
}

// Kernel returns the kernel instance of s.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Boot runs the kernel until it halts, a thread panics or ctx ends.
func (s *System) Boot(ctx context.Context) error {
	return s.cpu.Boot(ctx)
}

// Step requests a monitor frame. It is called from outside the kernel.
func (s *System) Step() error {
	if s.mon != nil {
		s.cpu.Raise(s.mon.RequestRedraw)
	}
	return nil
}

func (s *System) idle(any) {
	for {
		s.cpu.WaitForInterrupt()
	}
}

// main runs once every more urgent thread is blocked, so the shell already
// waits for input when the serial reader starts.
func (s *System) main(any) {
	s.logf("sparkrt %s: %d threads, %d priority levels", buildinfo.Short(), s.k.NumThreads(), s.k.PriorityLevels())
	if s.cfg.HaltAfter > 0 {
		s.k.Clock().Set(&s.haltTimer, s.cfg.HaltAfter)
	}
	if s.shell != nil {
		go s.readSerial()
	}
	if s.demo != nil {
		if err := s.demo.start(); err != nil {
			s.k.Fatalf("%v", err)
		}
	}
}

// readSerial forwards console lines to the shell thread as interrupts.
func (s *System) readSerial() {
	in := s.h.Serial()
	if in == nil {
		return
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		s.cpu.Raise(func() {
			if err := s.shell.Submit(line); err != nil {
				s.logf("shell: dropped %q: %v", line, err)
			}
		})
	}
}

func (s *System) registerCommands() error {
	for _, cmd := range []shell.Command{
		{Name: "halt", Usage: "halt", Desc: "Stop the system.", Run: func(*shell.Shell, []string) error {
			s.halt("halt requested")
			return nil
		}},
		{Name: "stats", Usage: "stats", Desc: "Show demo counters.", Run: func(*shell.Shell, []string) error {
			if s.demo == nil {
				return fmt.Errorf("demo not running")
			}
			s.logf("%s", s.demo.stats())
			return nil
		}},
	} {
		if err := s.shell.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) halt(why string) {
	s.logf("sparkrt: %s", why)
	s.cpu.Halt()
}

func (s *System) logf(format string, args ...any) {
	if l := s.h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf(format, args...))
	}
}
