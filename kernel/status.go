package kernel

// Status is the scheduling state of a thread.
//
// The order matters: every status at or above StatusRunning is runnable and
// keeps the thread linked into the run-queue.
type Status uint8

const (
	StatusStopped Status = iota
	StatusSleeping
	StatusMutexBlocked
	StatusReceiveBlocked
	StatusSendBlocked
	StatusReplyBlocked
	StatusFlagBlockedAny
	StatusFlagBlockedAll
	StatusMboxBlocked
	StatusCondBlocked
	StatusRunning
	StatusPending

	// StatusNotFound is reported for pids with no registered thread.
	StatusNotFound Status = 0xff
)

// Runnable reports whether a thread in this status is eligible to run.
func (s Status) Runnable() bool { return s >= StatusRunning && s != StatusNotFound }

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusSleeping:
		return "sleeping"
	case StatusMutexBlocked:
		return "bl mutex"
	case StatusReceiveBlocked:
		return "bl rx"
	case StatusSendBlocked:
		return "bl send"
	case StatusReplyBlocked:
		return "bl reply"
	case StatusFlagBlockedAny:
		return "bl anyfl"
	case StatusFlagBlockedAll:
		return "bl allfl"
	case StatusMboxBlocked:
		return "bl mbox"
	case StatusCondBlocked:
		return "bl cond"
	case StatusRunning:
		return "running"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}
