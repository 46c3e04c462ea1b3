package kernel

import "errors"

var (
	ErrNoFreeSlot      = errors.New("kernel: no free thread slot")
	ErrInvalidPriority = errors.New("kernel: invalid priority")
	ErrWouldBlock      = errors.New("kernel: operation would block")
	ErrTimeout         = errors.New("kernel: timed out")
	ErrNoClock         = errors.New("kernel: no clock configured")
	ErrNoSuchThread    = errors.New("kernel: no such thread")
	ErrNotReplyBlocked = errors.New("kernel: thread is not waiting for a reply")
	ErrQueueFull       = errors.New("kernel: message queue full")
	ErrNoQueue         = errors.New("kernel: thread has no message queue")
)
