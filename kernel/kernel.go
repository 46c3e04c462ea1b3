package kernel

import (
	"errors"
	"fmt"
)

// Kernel is one scheduler instance: a fixed thread table, a priority
// run-queue and the thread that currently owns the CPU.
//
// Any number of kernels may coexist; they share nothing but the process-wide
// panic handler.
type Kernel struct {
	cpu    CPU
	clock  Clock
	log    Logger
	levels int

	// slots backs the thread table and stays addressable after a thread exits,
	// so queue links can always be followed.
	slots      [MaxThreads]Thread
	threads    [MaxThreads + 1]*Thread
	numThreads int
	created    uint64

	current         *Thread
	switchRequested bool

	rq runQueue
}

// New creates a kernel running on cpu.
func New(cpu CPU, cfg Config) (*Kernel, error) {
	if cpu == nil {
		return nil, errors.New("kernel: nil cpu")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k := &Kernel{
		cpu:    cpu,
		clock:  cfg.Clock,
		log:    cfg.Logger,
		levels: cfg.PriorityLevels,
	}
	cpu.Attach(k)
	return k, nil
}

func (k *Kernel) CPU() CPU     { return k.cpu }
func (k *Kernel) Clock() Clock { return k.clock }

// PriorityLevels returns the number of configured priorities.
func (k *Kernel) PriorityLevels() int { return k.levels }

// PriorityIdle is the least urgent priority.
func (k *Kernel) PriorityIdle() uint8 { return uint8(k.levels - 1) }

// PriorityMain is the conventional priority of the main thread.
func (k *Kernel) PriorityMain() uint8 { return uint8(k.levels-1) - uint8(k.levels/2) }

func (k *Kernel) now() uint64 {
	if k.clock == nil {
		return 0
	}
	return k.clock.Now()
}

func (k *Kernel) warnf(format string, args ...any) {
	if k.log == nil {
		return
	}
	k.log.WriteLineString("kernel: " + fmt.Sprintf(format, args...))
}

// tcb returns the slot backing pid whether or not a thread is registered there.
func (k *Kernel) tcb(pid PID) *Thread {
	return &k.slots[pid-PIDFirst]
}

// Thread returns the registered thread with the given pid, or nil.
func (k *Kernel) Thread(pid PID) *Thread {
	if !PIDValid(pid) {
		return nil
	}
	return k.threads[pid]
}

// ThreadStatus returns the status of pid, or StatusNotFound.
func (k *Kernel) ThreadStatus(pid PID) Status {
	t := k.Thread(pid)
	if t == nil {
		return StatusNotFound
	}
	return t.status
}

// NumThreads returns the number of registered threads.
func (k *Kernel) NumThreads() int { return k.numThreads }

// Current returns the thread owning the CPU, or nil before the first Run.
func (k *Kernel) Current() *Thread { return k.current }

// CurrentPID returns the pid of Current, or PIDUndef.
func (k *Kernel) CurrentPID() PID {
	if k.current == nil {
		return PIDUndef
	}
	return k.current.pid
}

// ContextSwitchRequested reports whether a switch is pending from interrupt context.
func (k *Kernel) ContextSwitchRequested() bool { return k.switchRequested }

// RequestContextSwitch marks a switch to be performed at interrupt exit.
func (k *Kernel) RequestContextSwitch() { k.switchRequested = true }

// EndOfISR is called by the CPU port when the outermost interrupt handler
// returns.
func (k *Kernel) EndOfISR() {
	if k.switchRequested {
		k.cpu.YieldHigherPriorityThread()
	}
}
