package kernel

// Event is an intrusive queue node. An Event is queued at most once at a
// time; it must be released before it is posted again.
type Event struct {
	// Handler is run by EventQueue.Loop.
	Handler func(*Event)

	next   *Event
	queued bool
}

// Queued reports whether e is linked into a queue.
func (e *Event) Queued() bool { return e.queued }

// EventQueue is a FIFO of events whose owner thread is woken through
// ThreadFlagEvent.
type EventQueue struct {
	k    *Kernel
	head *Event
	tail *Event
}

// NewEventQueue returns an empty queue bound to k.
func NewEventQueue(k *Kernel) *EventQueue {
	q := &EventQueue{}
	q.Init(k)
	return q
}

func (q *EventQueue) Init(k *Kernel) {
	*q = EventQueue{k: k}
}

// Post appends e and signals t. Posting an event that is still queued only
// signals t again. Safe in interrupt context.
func (q *EventQueue) Post(e *Event, t *Thread) {
	state := q.k.cpu.DisableIRQ()
	if !e.queued {
		e.queued = true
		e.next = nil
		if q.tail == nil {
			q.head = e
		} else {
			q.tail.next = e
		}
		q.tail = e
	}
	q.k.cpu.RestoreIRQ(state)
	q.k.SetFlags(t, ThreadFlagEvent)
}

// Cancel removes e from the queue if it is there.
func (q *EventQueue) Cancel(e *Event) {
	state := q.k.cpu.DisableIRQ()
	var prev *Event
	for cur := q.head; cur != nil; cur = cur.next {
		if cur != e {
			prev = cur
			continue
		}
		if prev == nil {
			q.head = cur.next
		} else {
			prev.next = cur.next
		}
		if q.tail == cur {
			q.tail = prev
		}
		break
	}
	e.next = nil
	e.queued = false
	q.k.cpu.RestoreIRQ(state)
}

// Get pops the oldest event, or returns nil.
func (q *EventQueue) Get() *Event {
	state := q.k.cpu.DisableIRQ()
	e := q.head
	if e != nil {
		q.head = e.next
		if q.head == nil {
			q.tail = nil
		}
		e.next = nil
		e.queued = false
	}
	q.k.cpu.RestoreIRQ(state)
	return e
}

// Wait returns the next event, blocking the calling thread while the queue
// is empty.
func (q *EventQueue) Wait() *Event {
	for {
		if e := q.Get(); e != nil {
			return e
		}
		q.k.WaitAny(ThreadFlagEvent)
	}
}

// Release marks a consumed event reusable.
func (q *EventQueue) Release(e *Event) {
	state := q.k.cpu.DisableIRQ()
	e.next = nil
	e.queued = false
	q.k.cpu.RestoreIRQ(state)
}

// Pending returns the number of queued events.
func (q *EventQueue) Pending() int {
	state := q.k.cpu.DisableIRQ()
	n := 0
	for cur := q.head; cur != nil; cur = cur.next {
		n++
	}
	q.k.cpu.RestoreIRQ(state)
	return n
}

// Peek returns the oldest event without removing it.
func (q *EventQueue) Peek() *Event {
	return q.head
}

// Loop waits for events and runs their handlers. It never returns.
func (q *EventQueue) Loop() {
	for {
		e := q.Wait()
		if e.Handler != nil {
			e.Handler(e)
		}
	}
}
