// Package sema implements counting semaphores on top of kernel.Mutex.
//
// The inner mutex is only a parking spot: it is held whenever the count is
// zero, so waiters queue on it in priority order. A waiter that finds permits
// left after taking one unlocks it again to pass the baton on.
package sema

import (
	"errors"
	"math"

	"sparkrt/kernel"
)

var (
	ErrOverflow   = errors.New("sema: count overflow")
	ErrCanceled   = errors.New("sema: destroyed")
	ErrTimeout    = errors.New("sema: timed out")
	ErrWouldBlock = errors.New("sema: no permit available")
)

// Sema is a counting semaphore.
type Sema struct {
	k         *kernel.Kernel
	mu        kernel.Mutex
	value     uint32
	destroyed bool
}

// New returns a semaphore holding value permits.
func New(k *kernel.Kernel, value uint32) *Sema {
	s := &Sema{}
	s.Init(k, value)
	return s
}

// Init resets s to value permits.
func (s *Sema) Init(k *kernel.Kernel, value uint32) {
	s.k = k
	s.value = value
	s.destroyed = false
	s.mu.Init(k)
	if value == 0 {
		s.mu.TryLock()
	}
}

// Post returns one permit, releasing a waiter when the count was zero. Safe
// in interrupt context.
func (s *Sema) Post() error {
	cpu := s.k.CPU()
	state := cpu.DisableIRQ()
	if s.value == math.MaxUint32 {
		cpu.RestoreIRQ(state)
		return ErrOverflow
	}
	old := s.value
	s.value++
	cpu.RestoreIRQ(state)

	if old == 0 {
		s.mu.Unlock()
	}
	return nil
}

// Wait takes a permit, blocking until one is posted.
func (s *Sema) Wait() error {
	return s.wait(true, 0)
}

// TryWait takes a permit if one is available.
func (s *Sema) TryWait() error {
	return s.wait(false, 0)
}

// WaitTimed is Wait with a deadline in microseconds. A zero timeout behaves
// like TryWait.
func (s *Sema) WaitTimed(timeout uint64) error {
	return s.wait(timeout != 0, timeout)
}

func (s *Sema) wait(block bool, us uint64) error {
	if s.destroyed {
		return ErrCanceled
	}
	cpu := s.k.CPU()
	didBlock := block

	state := cpu.DisableIRQ()
	for s.value == 0 && block {
		cpu.RestoreIRQ(state)

		if us == 0 {
			s.mu.Lock()
		} else {
			clock := s.k.Clock()
			if clock == nil {
				return kernel.ErrNoClock
			}
			start := clock.Now()
			if err := s.mu.LockTimeout(us); err != nil {
				block = false
			}
			if elapsed := clock.Now() - start; elapsed < us {
				us -= elapsed
			} else {
				block = false
			}
		}

		if s.destroyed {
			// Relay the wakeup so the next waiter sees it too.
			s.mu.Unlock()
			return ErrCanceled
		}
		state = cpu.DisableIRQ()
	}

	if s.value == 0 {
		cpu.RestoreIRQ(state)
		if didBlock {
			return ErrTimeout
		}
		return ErrWouldBlock
	}
	s.value--
	left := s.value
	cpu.RestoreIRQ(state)

	if didBlock && left > 0 {
		s.mu.Unlock()
	}
	return nil
}

// Destroy cancels every current and future waiter with ErrCanceled.
func (s *Sema) Destroy() {
	s.destroyed = true
	s.mu.Unlock()
}

// Value returns the number of available permits.
func (s *Sema) Value() uint32 {
	state := s.k.CPU().DisableIRQ()
	defer s.k.CPU().RestoreIRQ(state)
	return s.value
}
