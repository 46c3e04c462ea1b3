package kernel

// SetThreadStatus moves t to status s, linking it into or out of the
// run-queue when s crosses the runnable boundary.
func (k *Kernel) SetThreadStatus(t *Thread, s Status) {
	state := k.cpu.DisableIRQ()
	k.setStatus(t, s)
	k.cpu.RestoreIRQ(state)
}

// setStatus is SetThreadStatus for callers already holding the IRQ mask.
func (k *Kernel) setStatus(t *Thread, s Status) {
	was, now := t.status.Runnable(), s.Runnable()
	switch {
	case now && !was:
		k.rqPush(t)
	case !now && was:
		k.rqRemove(t)
	}
	t.status = s
}

// Run selects the most urgent runnable thread and makes it current. CPU
// ports call it from their switch path; it never switches stacks itself.
func (k *Kernel) Run() {
	k.switchRequested = false

	if k.rq.empty() {
		k.fatalf("no runnable thread")
	}
	next := k.rqHead(k.rq.highest())
	prev := k.current
	if next == prev {
		return
	}

	now := k.now()
	if prev != nil {
		if prev.status == StatusRunning {
			k.setStatus(prev, StatusPending)
		}
		prev.stat.runtimeTicks += now - prev.stat.lastStart
	}
	next.stat.lastStart = now
	next.stat.schedules++

	k.setStatus(next, StatusRunning)
	k.current = next
}

// ContextSwitch hands the CPU over when a thread at priority prio should
// preempt the current one. From interrupt context the switch is only
// requested and happens at EndOfISR.
func (k *Kernel) ContextSwitch(prio uint8) {
	cur := k.current
	if cur == nil {
		// Not scheduling yet.
		return
	}
	if cur.status.Runnable() && cur.priority <= prio {
		return
	}
	if k.cpu.InISR() {
		k.switchRequested = true
		return
	}
	k.cpu.YieldHigherPriorityThread()
}

// Yield lets other threads of the same priority run.
func (k *Kernel) Yield() {
	state := k.cpu.DisableIRQ()
	if cur := k.current; cur != nil && cur.status.Runnable() {
		k.rqRotate(cur.priority)
	}
	k.cpu.RestoreIRQ(state)
	k.cpu.YieldHigherPriorityThread()
}

// Sleep suspends the calling thread until Wakeup. It is a no-op in
// interrupt context.
func (k *Kernel) Sleep() {
	if k.cpu.InISR() {
		return
	}
	state := k.cpu.DisableIRQ()
	k.setStatus(k.current, StatusSleeping)
	k.cpu.RestoreIRQ(state)
	k.cpu.YieldHigherPriorityThread()
}

// Wakeup makes a sleeping thread runnable. It reports false when pid does
// not name a sleeping thread, including when the thread exists in another
// status.
func (k *Kernel) Wakeup(pid PID) bool {
	state := k.cpu.DisableIRQ()
	t := k.Thread(pid)
	if t == nil || t.status != StatusSleeping {
		k.cpu.RestoreIRQ(state)
		k.warnf("wakeup: pid %d is not sleeping", pid)
		return false
	}
	k.setStatus(t, StatusPending)
	k.cpu.RestoreIRQ(state)
	k.ContextSwitch(t.priority)
	return true
}

// Exit terminates the calling thread and frees its pid. On a real port it
// does not return.
func (k *Kernel) Exit() {
	k.cpu.DisableIRQ()
	t := k.current
	if t == nil {
		k.fatalf("exit outside thread context")
	}
	k.threads[t.pid] = nil
	k.numThreads--
	k.setStatus(t, StatusStopped)
	k.current = nil
	k.cpu.SwitchContextExit()
}
