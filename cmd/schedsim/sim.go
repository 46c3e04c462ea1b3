package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"sparkrt/hal/cpu"
	"sparkrt/kernel"
)

const (
	simStackLen   = 2048
	idleStackLen  = 512
	bootWallLimit = 30 * time.Second
)

// lineLogger adapts an io.Writer to kernel.Logger.
type lineLogger struct{ w io.Writer }

func (l lineLogger) WriteLineString(s string) {
	if l.w != nil {
		fmt.Fprintln(l.w, s)
	}
}

// sim is one kernel on virtual time, set up by a scenario.
type sim struct {
	c *cpu.CPU
	k *kernel.Kernel

	counters map[string]uint64
	halt     kernel.Timer
}

func newSim(log io.Writer, levels int) (*sim, error) {
	c := cpu.New(cpu.Options{})
	k, err := kernel.New(c, kernel.Config{PriorityLevels: levels, Clock: c.Clock(), Logger: lineLogger{log}})
	if err != nil {
		return nil, err
	}
	s := &sim{c: c, k: k, counters: make(map[string]uint64)}
	if _, err := k.CreateThread(make([]byte, idleStackLen), k.PriorityIdle(), 0, s.idle, nil, "idle"); err != nil {
		return nil, err
	}
	s.halt.Callback = func(any) { c.Halt() }
	return s, nil
}

func (s *sim) idle(any) {
	for {
		s.c.WaitForInterrupt()
	}
}

// spawn creates a scenario thread.
func (s *sim) spawn(prio uint8, name string, entry func(any), arg any) (kernel.PID, error) {
	pid, err := s.k.CreateThread(make([]byte, simStackLen), prio, kernel.CreateWithoutYield|kernel.CreateStackMarker, entry, arg, name)
	if err != nil {
		return kernel.PIDUndef, fmt.Errorf("%s: %w", name, err)
	}
	return pid, nil
}

func (s *sim) count(name string) { s.counters[name]++ }

// result is what a finished run leaves behind.
type result struct {
	Scenario string
	Duration uint64
	IdlePrio uint8
	Threads  []kernel.ThreadInfo
	Counters map[string]uint64
}

// run boots sc for d microseconds of virtual time.
func run(ctx context.Context, sc scenario, d uint64, log io.Writer) (*result, error) {
	s, err := newSim(log, sc.levels)
	if err != nil {
		return nil, err
	}
	if err := sc.setup(s); err != nil {
		return nil, fmt.Errorf("%s: %w", sc.name, err)
	}
	s.k.Clock().Set(&s.halt, d)

	ctx, cancel := context.WithTimeout(ctx, bootWallLimit)
	defer cancel()
	if err := s.c.Boot(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", sc.name, err)
	}
	if err := s.k.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("%s: %w", sc.name, err)
	}
	return &result{
		Scenario: sc.name,
		Duration: s.k.Clock().Now(),
		IdlePrio: s.k.PriorityIdle(),
		Threads:  s.k.Snapshot(),
		Counters: s.counters,
	}, nil
}
