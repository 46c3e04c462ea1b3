package kernel

import "fmt"

// CreateFlags modify CreateThread.
type CreateFlags uint8

const (
	// CreateSleeping leaves the new thread sleeping until Wakeup.
	CreateSleeping CreateFlags = 1 << iota
	// CreateWithoutYield makes the new thread runnable without switching to it.
	CreateWithoutYield
	// CreateStackMarker fills the stack with markers for MeasureStackFree.
	CreateStackMarker
)

type schedStat struct {
	lastStart    uint64
	runtimeTicks uint64
	schedules    uint
}

// Thread is a thread control block. Fields are owned by the kernel and only
// change inside its critical sections.
type Thread struct {
	pid      PID
	serial   uint64
	name     string
	priority uint8
	status   Status

	// next is the single queue link; queue records which queue uses it.
	next  PID
	queue queueKind

	sp        StackPointer
	stack     []byte
	stackSize int

	msgQueue   cib
	msgArray   []Message
	waitData   *Message
	msgWaiters waitList

	flags       Flags
	waitedFlags Flags

	stat schedStat
}

func (t *Thread) PID() PID                   { return t.pid }
func (t *Thread) Name() string               { return t.name }
func (t *Thread) Priority() uint8            { return t.priority }
func (t *Thread) Status() Status             { return t.status }
func (t *Thread) StackPointer() StackPointer { return t.sp }

// Serial counts thread creations; it tells apart threads that held the same
// pid at different times.
func (t *Thread) Serial() uint64 { return t.serial }

// StackSize is the size of the buffer handed to CreateThread.
func (t *Thread) StackSize() int { return t.stackSize }

// Stack is the aligned part of the buffer the thread may use.
func (t *Thread) Stack() []byte { return t.stack }

func (t *Thread) Flags() Flags       { return t.flags }
func (t *Thread) WaitedFlags() Flags { return t.waitedFlags }

// CreateThread registers a thread running entry(arg) on stack.
//
// The thread gets the lowest free pid. Unless CreateSleeping is given it is
// made runnable, and unless CreateWithoutYield is given the caller yields to
// it when it is more urgent.
func (k *Kernel) CreateThread(stack []byte, priority uint8, flags CreateFlags, entry func(arg any), arg any, name string) (PID, error) {
	if int(priority) >= k.levels {
		return PIDUndef, fmt.Errorf("%w: %d (levels %d)", ErrInvalidPriority, priority, k.levels)
	}

	total := len(stack)
	usable := alignStack(stack)
	if usable == nil {
		k.fatalf("thread %q: stack of %d bytes is too small", name, total)
	}
	if flags&CreateStackMarker != 0 {
		writeStackMarker(usable)
	} else {
		writeStackGuard(usable)
	}

	state := k.cpu.DisableIRQ()

	pid := PIDUndef
	for i := PIDFirst; i <= PIDLast; i++ {
		if k.threads[i] == nil {
			pid = i
			break
		}
	}
	if pid == PIDUndef {
		k.cpu.RestoreIRQ(state)
		return PIDUndef, ErrNoFreeSlot
	}

	t := k.tcb(pid)
	k.created++
	*t = Thread{pid: pid, serial: k.created}
	k.threads[pid] = t

	t.sp = k.cpu.StackInit(entry, arg, usable)
	t.stack = usable
	t.stackSize = total
	t.name = name
	t.priority = priority
	t.status = StatusStopped
	k.numThreads++

	if flags&CreateSleeping != 0 {
		k.setStatus(t, StatusSleeping)
		k.cpu.RestoreIRQ(state)
		return pid, nil
	}

	k.setStatus(t, StatusPending)
	k.cpu.RestoreIRQ(state)
	if flags&CreateWithoutYield == 0 {
		k.ContextSwitch(priority)
	}
	return pid, nil
}

// MeasureStackFree returns how many bytes at the base of the stack of pid
// still hold their marker. It is only meaningful for threads created with
// CreateStackMarker.
func (k *Kernel) MeasureStackFree(pid PID) int {
	t := k.Thread(pid)
	if t == nil {
		return 0
	}
	return stackFree(t.stack)
}

// StackGuardIntact reports whether the lowest word of the stack of pid is
// still untouched.
func (k *Kernel) StackGuardIntact(pid PID) bool {
	t := k.Thread(pid)
	if t == nil {
		return false
	}
	return stackWordIntact(t.stack, 0)
}

// RuntimeTicks returns the clock time pid has spent running, up to its last
// switch out.
func (k *Kernel) RuntimeTicks(pid PID) uint64 {
	if t := k.Thread(pid); t != nil {
		return t.stat.runtimeTicks
	}
	return 0
}

// ScheduleCount returns how often pid has been switched in.
func (k *Kernel) ScheduleCount(pid PID) uint {
	if t := k.Thread(pid); t != nil {
		return t.stat.schedules
	}
	return 0
}
