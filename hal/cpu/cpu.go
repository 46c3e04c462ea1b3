// Package cpu runs kernel threads on goroutines.
//
// Every thread owns a goroutine, but only the goroutine holding the CPU runs;
// the others are parked on their wake channel. A context switch hands the
// baton to the next thread and parks the previous one, so kernel state is
// only ever touched by one goroutine at a time. Interrupt handlers run on the
// goroutine that holds the CPU.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"sparkrt/kernel"
)

// Options configure a CPU.
type Options struct {
	// Wall selects the host clock. By default time is virtual: it only moves
	// when a thread calls Busy or when every thread is idle, in which case it
	// jumps to the next timer deadline.
	Wall bool

	// HaltWhenIdle ends Boot once all threads are idle and nothing is left
	// that could wake them.
	HaltWhenIdle bool
}

// thread is the host side of a kernel thread.
type thread struct {
	sp      kernel.StackPointer
	entry   func(arg any)
	arg     any
	wake    chan struct{}
	started bool
}

// CPU implements kernel.CPU.
type CPU struct {
	k      *kernel.Kernel
	clock  kernel.Clock
	vclock *virtualClock
	wclock *wallClock

	threads map[kernel.StackPointer]*thread
	running *thread
	booted  bool

	// Owned by the goroutine holding the CPU.
	masked bool
	hw     hwState
	inISR  int
	pendSV bool

	mu     sync.Mutex
	raised []func()
	notify chan struct{}

	haltWhenIdle bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
	err      error
}

// New returns a CPU ready to be passed to kernel.New.
func New(opts Options) *CPU {
	c := &CPU{
		threads:      make(map[kernel.StackPointer]*thread),
		notify:       make(chan struct{}, 1),
		haltWhenIdle: opts.HaltWhenIdle,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	if opts.Wall {
		c.wclock = newWallClock(c)
		c.clock = c.wclock
	} else {
		c.vclock = &virtualClock{}
		c.clock = c.vclock
	}
	return c
}

func (c *CPU) Attach(k *kernel.Kernel) { c.k = k }

// Clock returns the time source of c, for kernel.Config.
func (c *CPU) Clock() kernel.Clock { return c.clock }

// Virtual reports whether c runs on virtual time.
func (c *CPU) Virtual() bool { return c.vclock != nil }

// frameWords is the size of the initial exception frame: r0-r3, r12, lr, pc,
// psr and the callee-saved r4-r11.
const frameWords = 16

func (c *CPU) StackInit(entry func(arg any), arg any, stack []byte) kernel.StackPointer {
	size := frameWords * int(unsafe.Sizeof(uintptr(0)))
	if size > len(stack) {
		size = len(stack)
	}
	frame := stack[len(stack)-size:]
	clear(frame)

	sp := kernel.StackPointer(uintptr(unsafe.Pointer(unsafe.SliceData(frame))))
	c.threads[sp] = &thread{
		sp:    sp,
		entry: entry,
		arg:   arg,
		wake:  make(chan struct{}, 1),
	}
	return sp
}

func (c *CPU) threadOf(t *kernel.Thread) *thread {
	th := c.threads[t.StackPointer()]
	if th == nil {
		c.k.Fatalf("no context for pid %d", t.PID())
	}
	return th
}

func (c *CPU) YieldHigherPriorityThread() {
	if !c.booted {
		return
	}
	if c.inISR > 0 || c.masked {
		c.pendSV = true
		return
	}
	c.switchContext()
}

func (c *CPU) switchContext() {
	c.pendSV = false
	prev := c.running
	c.k.Run()
	next := c.threadOf(c.k.Current())
	if next == prev {
		return
	}
	c.running = next
	c.resume(next)
	c.park(prev)
}

func (c *CPU) SwitchContextExit() {
	delete(c.threads, c.running.sp)
	c.masked = false
	hwRestore(c.hw)
	c.pendSV = false

	c.k.Run()
	next := c.threadOf(c.k.Current())
	c.running = next
	c.resume(next)
	runtime.Goexit()
}

func (c *CPU) resume(th *thread) {
	if !th.started {
		th.started = true
		go c.run(th)
		return
	}
	th.wake <- struct{}{}
}

func (c *CPU) park(th *thread) {
	select {
	case <-th.wake:
	case <-c.stop:
		runtime.Goexit()
	}
}

func (c *CPU) run(th *thread) {
	defer func() {
		// runtime.Goexit also lands here, with nothing to recover.
		if r := recover(); r != nil {
			pid := c.k.CurrentPID()
			kernel.ReportPanic(pid, r)
			c.finish(fmt.Errorf("cpu: pid %d panicked: %v", pid, r))
		}
	}()
	if th.entry != nil {
		th.entry(th.arg)
	}
	c.k.Exit()
}

func (c *CPU) finish(err error) {
	c.doneOnce.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Boot starts the most urgent thread and blocks until the system halts, a
// thread panics or ctx ends.
func (c *CPU) Boot(ctx context.Context) error {
	if c.k == nil {
		return errors.New("cpu: not attached to a kernel")
	}
	if c.k.NumThreads() == 0 {
		return errors.New("cpu: no threads to run")
	}
	c.booted = true
	c.k.Run()
	first := c.threadOf(c.k.Current())
	c.running = first
	c.resume(first)

	var err error
	select {
	case <-c.done:
		err = c.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.stopOnce.Do(func() { close(c.stop) })
	return err
}

// Halt ends Boot with a nil error. The calling thread never resumes.
func (c *CPU) Halt() {
	c.finish(nil)
	<-c.stop
	runtime.Goexit()
}

// Busy stands for the calling thread computing for us microseconds. Timers
// falling due meanwhile fire and may preempt it; preemption does not eat into
// the remaining work.
func (c *CPU) Busy(us uint64) {
	if c.vclock == nil {
		time.Sleep(time.Duration(us) * time.Microsecond)
		c.service()
		return
	}
	if c.masked {
		// Deadlines passed meanwhile fire at the next Busy or idle period.
		c.vclock.now += us
		return
	}
	left := us
	for {
		at, ok := c.vclock.next()
		if !ok {
			break
		}
		now := c.vclock.Now()
		if at < now {
			at = now
		}
		if at-now > left {
			break
		}
		left -= at - now
		c.Interrupt(func() { c.vclock.advanceTo(at) })
	}
	c.vclock.now += left
}

// WaitForInterrupt parks the calling thread until at least one interrupt has
// been handled. Idle threads call it in a loop.
func (c *CPU) WaitForInterrupt() {
	if c.deliverRaised() {
		return
	}
	if c.vclock != nil {
		if at, ok := c.vclock.next(); ok {
			c.Interrupt(func() { c.vclock.advanceTo(at) })
			return
		}
	}
	if c.haltWhenIdle && (c.wclock == nil || c.wclock.pending() == 0) {
		c.Halt()
	}
	select {
	case <-c.notify:
	case <-c.stop:
		runtime.Goexit()
	}
	c.deliverRaised()
}
