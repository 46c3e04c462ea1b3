package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// PanicInfo contains details about a fatal kernel error or a panicking thread.
type PanicInfo struct {
	PID   PID
	Value any
	Stack []byte
}

// FatalError is the panic value raised when a kernel invariant is violated.
type FatalError struct {
	PID PID
	Msg string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("kernel: fatal in pid %d: %s", e.PID, e.Msg)
}

var (
	panicActive atomic.Bool
	panicOnce   sync.Once

	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether a fatal error has been reported.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once (on the first fatal error). It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

// ReportPanic hands a recovered thread panic to the panic handler. CPU ports
// call it from the goroutine that hosts the thread.
func ReportPanic(pid PID, v any) {
	triggerPanic(PanicInfo{PID: pid, Value: v})
}

func triggerPanic(info PanicInfo) {
	panicOnce.Do(func() {
		panicActive.Store(true)
		info.Stack = captureStack()
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// fatalf reports a broken invariant and panics with a *FatalError. It never returns.
func (k *Kernel) fatalf(format string, args ...any) {
	err := &FatalError{PID: k.CurrentPID(), Msg: fmt.Sprintf(format, args...)}
	triggerPanic(PanicInfo{PID: err.PID, Value: err})
	panic(err)
}

// Fatalf is fatalf for code layered on top of the kernel.
func (k *Kernel) Fatalf(format string, args ...any) {
	k.fatalf(format, args...)
}
