package kernel

// PID identifies a thread within one kernel instance.
type PID int16

// MaxThreads is the size of the thread table of every kernel instance.
const MaxThreads = 32

const (
	PIDUndef PID = 0
	PIDFirst PID = 1
	PIDLast  PID = PIDFirst + MaxThreads - 1
	// PIDISR is the sender of messages posted from interrupt context.
	PIDISR PID = PIDLast + 1
)

// PIDValid reports whether pid can name a thread.
func PIDValid(pid PID) bool {
	return pid >= PIDFirst && pid <= PIDLast
}
