package kernel

// Flags is a per-thread signal bitset.
type Flags uint16

// ThreadFlagEvent is reserved for EventQueue wakeups.
const ThreadFlagEvent Flags = 1 << 0

// SetFlags ORs mask into the flags of t and wakes t when that satisfies the
// wait it is blocked in. Safe in interrupt context.
func (k *Kernel) SetFlags(t *Thread, mask Flags) {
	state := k.cpu.DisableIRQ()
	t.flags |= mask
	woke := k.wakeOnFlags(t)
	k.cpu.RestoreIRQ(state)
	if woke && !k.cpu.InISR() {
		k.cpu.YieldHigherPriorityThread()
	}
}

// SetFlagsPID is SetFlags by pid. It reports false for unknown pids.
func (k *Kernel) SetFlagsPID(pid PID, mask Flags) bool {
	t := k.Thread(pid)
	if t == nil {
		return false
	}
	k.SetFlags(t, mask)
	return true
}

func (k *Kernel) wakeOnFlags(t *Thread) bool {
	var wake bool
	switch t.status {
	case StatusFlagBlockedAny:
		wake = t.flags&t.waitedFlags != 0
	case StatusFlagBlockedAll:
		wake = t.flags&t.waitedFlags == t.waitedFlags
	}
	if wake {
		k.setStatus(t, StatusPending)
		k.switchRequested = true
	}
	return wake
}

// waitFlags blocks the current thread. state is the mask taken by the caller
// and is restored before yielding.
func (k *Kernel) waitFlags(me *Thread, mask Flags, s Status, state IRQState) {
	me.waitedFlags = mask
	k.setStatus(me, s)
	k.cpu.RestoreIRQ(state)
	k.cpu.YieldHigherPriorityThread()
}

func (k *Kernel) self(op string) *Thread {
	me := k.current
	if me == nil {
		k.fatalf("%s outside thread context", op)
	}
	return me
}

// WaitAny blocks until at least one bit of mask is set, then clears and
// returns the set bits of mask.
func (k *Kernel) WaitAny(mask Flags) Flags {
	me := k.self("wait any")
	k.waitAnyBlocked(me, mask)
	return k.clearFlags(me, mask)
}

func (k *Kernel) waitAnyBlocked(me *Thread, mask Flags) {
	state := k.cpu.DisableIRQ()
	if me.flags&mask == 0 {
		k.waitFlags(me, mask, StatusFlagBlockedAny, state)
		return
	}
	k.cpu.RestoreIRQ(state)
}

// WaitAll blocks until every bit of mask is set, then clears mask.
//
// Flags left set by an earlier satisfied wait count toward the next one, so
// a second WaitAll without ClearFlags in between returns at once.
func (k *Kernel) WaitAll(mask Flags) Flags {
	me := k.self("wait all")
	state := k.cpu.DisableIRQ()
	if me.flags&mask != mask {
		k.waitFlags(me, mask, StatusFlagBlockedAll, state)
	} else {
		k.cpu.RestoreIRQ(state)
	}
	return k.clearFlags(me, mask)
}

// WaitOne is WaitAny that consumes only the lowest matching bit.
func (k *Kernel) WaitOne(mask Flags) Flags {
	me := k.self("wait one")
	k.waitAnyBlocked(me, mask)
	tmp := me.flags & mask
	tmp &= ^tmp + 1
	return k.clearFlags(me, tmp)
}

// ClearFlags clears mask in the flags of the current thread and returns the
// bits that were set.
func (k *Kernel) ClearFlags(mask Flags) Flags {
	return k.clearFlags(k.self("clear flags"), mask)
}

func (k *Kernel) clearFlags(t *Thread, mask Flags) Flags {
	state := k.cpu.DisableIRQ()
	mask &= t.flags
	t.flags &^= mask
	k.cpu.RestoreIRQ(state)
	return mask
}
