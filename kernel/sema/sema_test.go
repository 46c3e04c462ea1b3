package sema

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"sparkrt/hal/cpu"
	"sparkrt/kernel"
)

type system struct {
	c *cpu.CPU
	k *kernel.Kernel
}

func newSystem(t *testing.T) *system {
	t.Helper()
	c := cpu.New(cpu.Options{HaltWhenIdle: true})
	k, err := kernel.New(c, kernel.Config{Clock: c.Clock()})
	if err != nil {
		t.Fatalf("kernel.New() err = %v", err)
	}
	s := &system{c: c, k: k}
	s.spawn(t, k.PriorityIdle(), "idle", func() {
		for {
			c.WaitForInterrupt()
		}
	})
	return s
}

func (s *system) spawn(t *testing.T, prio uint8, name string, fn func()) kernel.PID {
	t.Helper()
	pid, err := s.k.CreateThread(make([]byte, 1024), prio, 0, func(any) { fn() }, nil, name)
	if err != nil {
		t.Fatalf("CreateThread(%q) err = %v", name, err)
	}
	return pid
}

func (s *system) boot(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.c.Boot(ctx); err != nil {
		t.Fatalf("Boot() err = %v, want nil", err)
	}
}

func TestDestroyCancelsAllWaiters(t *testing.T) {
	sys := newSystem(t)
	s := New(sys.k, 0)

	var results []error
	for _, prio := range []uint8{5, 6, 7} {
		sys.spawn(t, prio, "waiter", func() {
			results = append(results, s.Wait())
		})
	}
	sys.spawn(t, 8, "destroyer", s.Destroy)
	sys.boot(t)

	if len(results) != 3 {
		t.Fatalf("%d waiters returned, want 3", len(results))
	}
	for i, err := range results {
		if !errors.Is(err, ErrCanceled) {
			t.Fatalf("waiter %d err = %v, want ErrCanceled", i, err)
		}
	}
	if err := s.TryWait(); !errors.Is(err, ErrCanceled) {
		t.Fatalf("TryWait() after Destroy err = %v, want ErrCanceled", err)
	}
}

func TestPostWakesWaiter(t *testing.T) {
	sys := newSystem(t)
	s := New(sys.k, 0)

	var got int
	sys.spawn(t, 5, "consumer", func() {
		for i := 0; i < 3; i++ {
			if err := s.Wait(); err != nil {
				t.Errorf("Wait() err = %v, want nil", err)
				return
			}
			got++
		}
	})
	sys.spawn(t, 7, "producer", func() {
		for i := 0; i < 3; i++ {
			if err := s.Post(); err != nil {
				t.Errorf("Post() err = %v, want nil", err)
			}
		}
	})
	sys.boot(t)

	if got != 3 {
		t.Fatalf("consumer took %d permits, want 3", got)
	}
	if v := s.Value(); v != 0 {
		t.Fatalf("Value() = %d, want 0", v)
	}
}

func TestBatonPassing(t *testing.T) {
	sys := newSystem(t)
	s := New(sys.k, 0)

	var results []error
	for _, prio := range []uint8{5, 6, 7} {
		sys.spawn(t, prio, "waiter", func() {
			results = append(results, s.Wait())
		})
	}
	sys.spawn(t, 8, "poster", func() {
		// Both permits land before any waiter runs.
		state := sys.c.DisableIRQ()
		s.Post()
		s.Post()
		sys.c.RestoreIRQ(state)
		s.Destroy()
	})
	sys.boot(t)

	if len(results) != 3 {
		t.Fatalf("%d waiters returned, want 3", len(results))
	}
	if results[0] != nil || results[1] != nil {
		t.Fatalf("first waiters err = %v, %v, want nil, nil", results[0], results[1])
	}
	if !errors.Is(results[2], ErrCanceled) {
		t.Fatalf("last waiter err = %v, want ErrCanceled", results[2])
	}
}

func TestWaitTimed(t *testing.T) {
	sys := newSystem(t)
	s := New(sys.k, 0)

	var (
		timedOut, acquired error
		at                 uint64
	)
	sys.spawn(t, 5, "waiter", func() {
		timedOut = s.WaitTimed(1000)
		at = sys.c.Clock().Now()
		acquired = s.WaitTimed(1000)
	})
	sys.spawn(t, 6, "poster", func() {
		// The first deadline passes during this, the second one does not.
		sys.c.Busy(1500)
		s.Post()
	})
	sys.boot(t)

	if !errors.Is(timedOut, ErrTimeout) || at != 1000 {
		t.Fatalf("WaitTimed() = %v at %d, want ErrTimeout at 1000", timedOut, at)
	}
	if acquired != nil {
		t.Fatalf("second WaitTimed() err = %v, want nil", acquired)
	}
}

func TestNonBlocking(t *testing.T) {
	sys := newSystem(t)
	s := New(sys.k, 0)
	if err := s.TryWait(); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("TryWait() err = %v, want ErrWouldBlock", err)
	}
	if err := s.WaitTimed(0); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("WaitTimed(0) err = %v, want ErrWouldBlock", err)
	}

	s.Init(sys.k, math.MaxUint32)
	if err := s.Post(); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Post() at max err = %v, want ErrOverflow", err)
	}
	if err := s.TryWait(); err != nil {
		t.Fatalf("TryWait() err = %v, want nil", err)
	}
	if v := s.Value(); v != math.MaxUint32-1 {
		t.Fatalf("Value() = %d, want %d", v, uint32(math.MaxUint32-1))
	}
}
