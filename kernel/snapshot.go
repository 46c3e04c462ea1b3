package kernel

import "fmt"

// ThreadInfo is a point-in-time view of one thread, as listed by "ps".
type ThreadInfo struct {
	PID          PID
	Serial       uint64
	Name         string
	Priority     uint8
	Status       Status
	StackSize    int
	StackFree    int
	RuntimeTicks uint64
	Schedules    uint
	Current      bool
}

// Snapshot lists the registered threads in pid order.
func (k *Kernel) Snapshot() []ThreadInfo {
	state := k.cpu.DisableIRQ()
	defer k.cpu.RestoreIRQ(state)

	now := k.now()
	out := make([]ThreadInfo, 0, k.numThreads)
	for pid := PIDFirst; pid <= PIDLast; pid++ {
		t := k.threads[pid]
		if t == nil {
			continue
		}
		rt := t.stat.runtimeTicks
		if t == k.current {
			rt += now - t.stat.lastStart
		}
		out = append(out, ThreadInfo{
			PID:          t.pid,
			Serial:       t.serial,
			Name:         t.name,
			Priority:     t.priority,
			Status:       t.status,
			StackSize:    t.stackSize,
			StackFree:    stackFree(t.stack),
			RuntimeTicks: rt,
			Schedules:    t.stat.schedules,
			Current:      t == k.current,
		})
	}
	return out
}

// CheckInvariants verifies the scheduler bookkeeping: a single running
// thread, run-queue membership matching status, the bit cache matching the
// levels, and every queue link used by exactly one queue.
func (k *Kernel) CheckInvariants() error {
	state := k.cpu.DisableIRQ()
	defer k.cpu.RestoreIRQ(state)

	running := 0
	runnable := 0
	for pid := PIDFirst; pid <= PIDLast; pid++ {
		t := k.threads[pid]
		if t == nil {
			continue
		}
		if t.status == StatusRunning {
			running++
			if t != k.current {
				return fmt.Errorf("pid %d running but not current", pid)
			}
		}
		inRQ := t.queue == queueRun
		if t.status.Runnable() != inRQ {
			return fmt.Errorf("pid %d status %s but queued on %s", pid, t.status, t.queue)
		}
		if t.status.Runnable() {
			runnable++
		}
		switch t.queue {
		case queueMutex:
			if t.status != StatusMutexBlocked {
				return fmt.Errorf("pid %d on %s with status %s", pid, t.queue, t.status)
			}
		case queueMsg:
			if t.status != StatusSendBlocked && t.status != StatusReplyBlocked {
				return fmt.Errorf("pid %d on %s with status %s", pid, t.queue, t.status)
			}
		}
	}
	if running > 1 {
		return fmt.Errorf("%d threads running", running)
	}

	linked := 0
	for p := 0; p < MaxPriorityLevels; p++ {
		tail := k.rq.tail[p]
		bit := k.rq.cache&(1<<p) != 0
		if bit != (tail != PIDUndef) {
			return fmt.Errorf("priority %d: cache bit %t with tail %d", p, bit, tail)
		}
		if tail == PIDUndef {
			continue
		}
		cur := tail
		for {
			cur = k.tcb(cur).next
			t := k.threads[cur]
			if t == nil {
				return fmt.Errorf("priority %d: unregistered pid %d in run-queue", p, cur)
			}
			if int(t.priority) != p {
				return fmt.Errorf("priority %d: pid %d has priority %d", p, cur, t.priority)
			}
			linked++
			if linked > MaxThreads {
				return fmt.Errorf("priority %d: run-queue cycle", p)
			}
			if cur == tail {
				break
			}
		}
	}
	if linked != runnable {
		return fmt.Errorf("%d threads linked in run-queue, %d runnable", linked, runnable)
	}
	return nil
}
