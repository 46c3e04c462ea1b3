package kernel

import "math/bits"

// queueKind names the queue a thread's single link currently serves.
type queueKind uint8

const (
	queueNone queueKind = iota
	queueRun
	queueMutex
	queueMsg
)

func (q queueKind) String() string {
	switch q {
	case queueNone:
		return "none"
	case queueRun:
		return "run-queue"
	case queueMutex:
		return "mutex wait-queue"
	case queueMsg:
		return "message waiters"
	default:
		return "unknown"
	}
}

func (k *Kernel) link(t *Thread, q queueKind) {
	if t.queue != queueNone {
		k.fatalf("thread %d linked into %s while on %s", t.pid, q, t.queue)
	}
	t.queue = q
}

func (k *Kernel) unlink(t *Thread, q queueKind) {
	if t.queue != q {
		k.fatalf("thread %d unlinked from %s while on %s", t.pid, q, t.queue)
	}
	t.queue = queueNone
	t.next = PIDUndef
}

// runQueue keeps one circular list of pids per priority. Each level is
// addressed by its tail; the tail's link is the head.
type runQueue struct {
	tail  [MaxPriorityLevels]PID
	cache uint32
}

// empty reports whether no thread is runnable.
func (rq *runQueue) empty() bool { return rq.cache == 0 }

// highest returns the most urgent non-empty level. The queue must not be empty.
func (rq *runQueue) highest() uint8 {
	return uint8(bits.TrailingZeros32(rq.cache))
}

func (k *Kernel) rqPush(t *Thread) {
	k.link(t, queueRun)
	p := t.priority
	if tail := k.rq.tail[p]; tail == PIDUndef {
		t.next = t.pid
	} else {
		tt := k.tcb(tail)
		t.next = tt.next
		tt.next = t.pid
	}
	k.rq.tail[p] = t.pid
	k.rq.cache |= 1 << p
}

func (k *Kernel) rqRemove(t *Thread) {
	p := t.priority
	tail := k.rq.tail[p]
	if tail == PIDUndef {
		k.fatalf("thread %d missing from empty run-queue level %d", t.pid, p)
	}
	prev := k.tcb(tail)
	for prev.next != t.pid {
		prev = k.tcb(prev.next)
		if prev.pid == tail {
			k.fatalf("thread %d missing from run-queue level %d", t.pid, p)
		}
	}
	if prev == t {
		k.rq.tail[p] = PIDUndef
		k.rq.cache &^= 1 << p
	} else {
		prev.next = t.next
		if tail == t.pid {
			k.rq.tail[p] = prev.pid
		}
	}
	k.unlink(t, queueRun)
}

// rqRotate moves the head of level p to its tail.
func (k *Kernel) rqRotate(p uint8) {
	if tail := k.rq.tail[p]; tail != PIDUndef {
		k.rq.tail[p] = k.tcb(tail).next
	}
}

func (k *Kernel) rqHead(p uint8) *Thread {
	tail := k.rq.tail[p]
	if tail == PIDUndef {
		return nil
	}
	return k.tcb(k.tcb(tail).next)
}

// waitList is a singly linked list of blocked threads ordered by priority,
// FIFO among equal priorities.
type waitList struct {
	head PID
}

func (l *waitList) empty() bool { return l.head == PIDUndef }

func (k *Kernel) waitInsert(l *waitList, t *Thread, q queueKind) {
	k.link(t, q)
	prev := PIDUndef
	cur := l.head
	for cur != PIDUndef && k.tcb(cur).priority <= t.priority {
		prev = cur
		cur = k.tcb(cur).next
	}
	t.next = cur
	if prev == PIDUndef {
		l.head = t.pid
	} else {
		k.tcb(prev).next = t.pid
	}
}

func (k *Kernel) waitPop(l *waitList, q queueKind) *Thread {
	if l.head == PIDUndef {
		return nil
	}
	t := k.tcb(l.head)
	l.head = t.next
	k.unlink(t, q)
	return t
}

// waitRemove unlinks t from l by identity and reports whether it was there.
func (k *Kernel) waitRemove(l *waitList, t *Thread, q queueKind) bool {
	if t.queue != q {
		return false
	}
	prev := PIDUndef
	for cur := l.head; cur != PIDUndef; cur = k.tcb(cur).next {
		if cur != t.pid {
			prev = cur
			continue
		}
		if prev == PIDUndef {
			l.head = t.next
		} else {
			k.tcb(prev).next = t.next
		}
		k.unlink(t, q)
		return true
	}
	return false
}

func (k *Kernel) waitLen(l *waitList) int {
	n := 0
	for cur := l.head; cur != PIDUndef; cur = k.tcb(cur).next {
		n++
	}
	return n
}
