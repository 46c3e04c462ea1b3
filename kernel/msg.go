package kernel

// Message is the fixed-size envelope exchanged between threads.
type Message struct {
	Sender PID
	Type   uint16
	Value  uint32
	Ptr    any
}

// SentByISR reports whether m was sent from interrupt context.
func (m *Message) SentByISR() bool { return m.Sender == PIDISR }

// InitMsgQueue gives the calling thread a message queue backed by buf, whose
// length must be a power of two. Without a queue, sends to the thread only
// succeed while it waits in Receive.
func (k *Kernel) InitMsgQueue(buf []Message) {
	me := k.self("init msg queue")
	n := len(buf)
	if n == 0 || n&(n-1) != 0 {
		k.fatalf("message queue length %d is not a power of two", n)
	}
	state := k.cpu.DisableIRQ()
	me.msgQueue = newCIB(n)
	me.msgArray = buf
	k.cpu.RestoreIRQ(state)
}

// MsgAvail returns the number of messages queued for the calling thread, or
// -1 when it has no queue.
func (k *Kernel) MsgAvail() int {
	me := k.self("msg avail")
	if me.msgArray == nil {
		return -1
	}
	return me.msgQueue.avail()
}

func (k *Kernel) queueMsg(t *Thread, m *Message) bool {
	if t.msgArray == nil {
		return false
	}
	i := t.msgQueue.put()
	if i < 0 {
		return false
	}
	t.msgArray[i] = *m
	return true
}

// Send delivers m to pid, blocking until the target receives or queues it.
// From interrupt context it behaves like SendInISR.
func (k *Kernel) Send(m *Message, pid PID) error {
	if k.cpu.InISR() {
		return k.SendInISR(m, pid)
	}
	return k.send(m, pid, true, k.cpu.DisableIRQ())
}

// TrySend is Send that returns ErrWouldBlock instead of blocking.
func (k *Kernel) TrySend(m *Message, pid PID) error {
	if k.cpu.InISR() {
		return k.SendInISR(m, pid)
	}
	return k.send(m, pid, false, k.cpu.DisableIRQ())
}

// send runs with the IRQ mask taken by the caller.
func (k *Kernel) send(m *Message, pid PID, blocking bool, state IRQState) error {
	me := k.current
	if me == nil {
		k.cpu.RestoreIRQ(state)
		k.fatalf("send outside thread context")
	}
	target := k.Thread(pid)
	m.Sender = me.pid
	if target == nil {
		k.cpu.RestoreIRQ(state)
		return ErrNoSuchThread
	}

	if target.status == StatusReceiveBlocked {
		*target.waitData = *m
		k.setStatus(target, StatusPending)
		k.cpu.RestoreIRQ(state)
		k.ContextSwitch(target.priority)
		return nil
	}

	if k.queueMsg(target, m) {
		k.cpu.RestoreIRQ(state)
		if me.status == StatusReplyBlocked {
			k.cpu.YieldHigherPriorityThread()
		}
		return nil
	}
	if !blocking {
		k.cpu.RestoreIRQ(state)
		return ErrWouldBlock
	}

	me.waitData = m
	s := StatusSendBlocked
	if me.status == StatusReplyBlocked {
		s = StatusReplyBlocked
	}
	k.setStatus(me, s)
	k.waitInsert(&target.msgWaiters, me, queueMsg)
	k.cpu.RestoreIRQ(state)
	k.cpu.YieldHigherPriorityThread()
	return nil
}

// SendInISR delivers m from interrupt context. The sender is PIDISR and
// ErrQueueFull is returned when the target neither waits nor has room.
func (k *Kernel) SendInISR(m *Message, pid PID) error {
	state := k.cpu.DisableIRQ()
	defer k.cpu.RestoreIRQ(state)

	target := k.Thread(pid)
	m.Sender = PIDISR
	if target == nil {
		return ErrNoSuchThread
	}
	if target.status == StatusReceiveBlocked {
		*target.waitData = *m
		k.setStatus(target, StatusPending)
		k.switchRequested = true
		return nil
	}
	if !k.queueMsg(target, m) {
		return ErrQueueFull
	}
	return nil
}

// SendToSelf queues m for the calling thread.
func (k *Kernel) SendToSelf(m *Message) error {
	me := k.self("send to self")
	state := k.cpu.DisableIRQ()
	defer k.cpu.RestoreIRQ(state)
	m.Sender = me.pid
	if me.msgArray == nil {
		return ErrNoQueue
	}
	if !k.queueMsg(me, m) {
		return ErrQueueFull
	}
	return nil
}

// Receive blocks until a message arrives and stores it in m.
func (k *Kernel) Receive(m *Message) {
	k.receive(m, true)
}

// TryReceive is Receive that returns ErrWouldBlock when nothing is pending.
func (k *Kernel) TryReceive(m *Message) error {
	if !k.receive(m, false) {
		return ErrWouldBlock
	}
	return nil
}

func (k *Kernel) receive(m *Message, blocking bool) bool {
	state := k.cpu.DisableIRQ()
	me := k.current
	if me == nil {
		k.cpu.RestoreIRQ(state)
		k.fatalf("receive outside thread context")
	}

	i := -1
	if me.msgArray != nil {
		i = me.msgQueue.get()
	}
	if i >= 0 {
		*m = me.msgArray[i]
		k.cpu.RestoreIRQ(state)
		return true
	}
	if !blocking && me.msgWaiters.empty() {
		k.cpu.RestoreIRQ(state)
		return false
	}

	me.waitData = m
	sender := k.waitPop(&me.msgWaiters, queueMsg)
	if sender == nil {
		k.setStatus(me, StatusReceiveBlocked)
		k.cpu.RestoreIRQ(state)
		k.cpu.YieldHigherPriorityThread()
		// The sender copied its message into m.
		return true
	}

	*m = *sender.waitData
	if sender.status == StatusReplyBlocked {
		k.cpu.RestoreIRQ(state)
		return true
	}
	sender.waitData = nil
	k.setStatus(sender, StatusPending)
	k.cpu.RestoreIRQ(state)
	k.ContextSwitch(sender.priority)
	return true
}

// SendReceive sends m to pid and blocks until the target replies into reply.
func (k *Kernel) SendReceive(m, reply *Message, pid PID) error {
	state := k.cpu.DisableIRQ()
	me := k.current
	if me == nil {
		k.cpu.RestoreIRQ(state)
		k.fatalf("send receive outside thread context")
	}
	if me.pid == pid {
		k.cpu.RestoreIRQ(state)
		k.fatalf("send receive to self")
	}
	if k.Thread(pid) == nil {
		k.cpu.RestoreIRQ(state)
		return ErrNoSuchThread
	}
	k.setStatus(me, StatusReplyBlocked)
	me.waitData = reply
	// reply doubles as the outgoing message so waitData stays valid while queued.
	*reply = *m
	return k.send(reply, pid, true, state)
}

// Reply answers m, which must come from a thread blocked in SendReceive.
func (k *Kernel) Reply(m, reply *Message) error {
	state := k.cpu.DisableIRQ()
	target := k.Thread(m.Sender)
	if target == nil || target.status != StatusReplyBlocked {
		k.cpu.RestoreIRQ(state)
		return ErrNotReplyBlocked
	}
	reply.Sender = k.CurrentPID()
	*target.waitData = *reply
	k.setStatus(target, StatusPending)
	k.cpu.RestoreIRQ(state)
	k.ContextSwitch(target.priority)
	return nil
}

// ReplyInISR is Reply for interrupt handlers.
func (k *Kernel) ReplyInISR(m, reply *Message) error {
	state := k.cpu.DisableIRQ()
	defer k.cpu.RestoreIRQ(state)
	target := k.Thread(m.Sender)
	if target == nil || target.status != StatusReplyBlocked {
		return ErrNotReplyBlocked
	}
	reply.Sender = PIDISR
	*target.waitData = *reply
	k.setStatus(target, StatusPending)
	k.switchRequested = true
	return nil
}
