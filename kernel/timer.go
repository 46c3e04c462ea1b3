package kernel

// Timer is a one-shot callback armed on a Clock.
//
// Callback runs in interrupt context.
type Timer struct {
	Callback func(arg any)
	Arg      any
}

// Clock is the time source used for runtime accounting and timeouts.
// Time is measured in microseconds.
type Clock interface {
	Now() uint64
	// Set arms t to fire offset microseconds from now, replacing any
	// previous arming of t.
	Set(t *Timer, offset uint64)
	// Remove disarms t. Removing a timer that is not armed is a no-op.
	Remove(t *Timer)
}
