package kernel

// IRQState is the interrupt mask state returned by CPU.DisableIRQ.
type IRQState uintptr

// StackPointer is the saved context of a thread. Its meaning belongs to the
// CPU port; the kernel only stores it.
type StackPointer uintptr

// CPU is the architecture port a kernel runs on.
//
// All methods are called by whoever currently owns the CPU: a thread or an
// interrupt handler. None of them is safe for use by foreign goroutines.
type CPU interface {
	// Attach binds the port to the kernel it schedules. New calls it once.
	Attach(k *Kernel)

	DisableIRQ() IRQState
	RestoreIRQ(state IRQState)
	InISR() bool

	// YieldHigherPriorityThread runs Kernel.Run and hands the CPU to the
	// selected thread. Ports may defer the switch until interrupts are
	// enabled again.
	YieldHigherPriorityThread()

	// StackInit prepares stack so that the first switch to it calls entry(arg).
	StackInit(entry func(arg any), arg any, stack []byte) StackPointer

	// SwitchContextExit abandons the calling context and resumes the thread
	// selected by Kernel.Run.
	SwitchContextExit()
}
