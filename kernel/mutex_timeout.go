package kernel

type mutexWaiter struct {
	m        *Mutex
	t        *Thread
	dequeued bool
	blocking bool
}

// LockTimeout acquires m, giving up after timeout microseconds. A zero
// timeout waits without deadline.
//
// It returns ErrTimeout when the deadline removed the thread from the wait
// list and ErrWouldBlock when the deadline passed before the thread could
// queue and the mutex was busy.
func (m *Mutex) LockTimeout(timeout uint64) error {
	k := m.k
	if k.clock == nil {
		return ErrNoClock
	}
	mw := &mutexWaiter{m: m, t: k.self("lock timeout"), blocking: true}

	var timer *Timer
	if timeout != 0 {
		timer = &Timer{Callback: mutexTimeoutExpired, Arg: mw}
		k.clock.Set(timer, timeout)
	}

	if mw.blocking {
		m.Lock()
	} else if !m.TryLock() {
		return ErrWouldBlock
	}

	if timer != nil {
		k.clock.Remove(timer)
	}
	if mw.dequeued {
		return ErrTimeout
	}
	return nil
}

func mutexTimeoutExpired(arg any) {
	mw := arg.(*mutexWaiter)
	k := mw.m.k
	state := k.cpu.DisableIRQ()
	mw.blocking = false
	if !k.waitRemove(&mw.m.waiters, mw.t, queueMutex) {
		k.cpu.RestoreIRQ(state)
		return
	}
	mw.dequeued = true
	k.setStatus(mw.t, StatusPending)
	k.cpu.RestoreIRQ(state)
	k.ContextSwitch(mw.t.priority)
}
