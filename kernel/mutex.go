package kernel

// Mutex is a non-recursive lock whose waiters queue by priority, FIFO among
// equal priorities.
//
// It is in one of three states: unlocked, locked with no waiters, or locked
// with a non-empty wait list. The zero value is unusable; call Init or use
// NewMutex.
type Mutex struct {
	k       *Kernel
	locked  bool
	waiters waitList
}

// NewMutex returns an unlocked mutex bound to k.
func NewMutex(k *Kernel) *Mutex {
	m := &Mutex{}
	m.Init(k)
	return m
}

// Init resets m to unlocked.
func (m *Mutex) Init(k *Kernel) {
	*m = Mutex{k: k}
}

// Kernel returns the kernel m belongs to.
func (m *Mutex) Kernel() *Kernel { return m.k }

// Lock acquires m, blocking the calling thread while it is held.
func (m *Mutex) Lock() {
	m.lock(true)
}

// TryLock acquires m if it is free.
func (m *Mutex) TryLock() bool {
	return m.lock(false)
}

func (m *Mutex) lock(blocking bool) bool {
	k := m.k
	state := k.cpu.DisableIRQ()
	if !m.locked {
		m.locked = true
		k.cpu.RestoreIRQ(state)
		return true
	}
	if !blocking {
		k.cpu.RestoreIRQ(state)
		return false
	}

	me := k.current
	if me == nil {
		k.cpu.RestoreIRQ(state)
		k.fatalf("blocking mutex lock outside thread context")
	}
	k.setStatus(me, StatusMutexBlocked)
	k.waitInsert(&m.waiters, me, queueMutex)
	k.cpu.RestoreIRQ(state)
	k.cpu.YieldHigherPriorityThread()

	// Ownership was handed over by Unlock, unless a lock timeout dequeued us.
	return true
}

// Unlock releases m, handing it directly to the most urgent waiter. It may
// be called from interrupt context.
func (m *Mutex) Unlock() {
	k := m.k
	state := k.cpu.DisableIRQ()
	if !m.locked {
		k.cpu.RestoreIRQ(state)
		return
	}
	if m.waiters.empty() {
		m.locked = false
		k.cpu.RestoreIRQ(state)
		return
	}
	t := m.handOff()
	k.cpu.RestoreIRQ(state)
	k.ContextSwitch(t.priority)
}

// UnlockAndSleep releases m and puts the calling thread to sleep in one step.
func (m *Mutex) UnlockAndSleep() {
	k := m.k
	state := k.cpu.DisableIRQ()
	if m.locked {
		if m.waiters.empty() {
			m.locked = false
		} else {
			m.handOff()
		}
	}
	k.setStatus(k.self("unlock and sleep"), StatusSleeping)
	k.cpu.RestoreIRQ(state)
	k.cpu.YieldHigherPriorityThread()
}

// handOff pops the head waiter and makes it runnable; m stays locked on its
// behalf.
func (m *Mutex) handOff() *Thread {
	t := m.k.waitPop(&m.waiters, queueMutex)
	m.k.setStatus(t, StatusPending)
	return t
}

// Peek returns the pid of the next waiter, or PIDUndef.
func (m *Mutex) Peek() PID {
	return m.waiters.head
}

// Locked reports whether m is held.
func (m *Mutex) Locked() bool {
	return m.locked
}

// Waiters returns the number of threads blocked on m.
func (m *Mutex) Waiters() int {
	return m.k.waitLen(&m.waiters)
}
