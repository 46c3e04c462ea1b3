package kernel

import "testing"

func wantFlags(t *testing.T, th *Thread, flags, waited Flags) {
	t.Helper()
	if th.Flags() != flags || th.WaitedFlags() != waited {
		t.Fatalf("flags = %#x waited = %#x, want %#x %#x", th.Flags(), th.WaitedFlags(), flags, waited)
	}
}

func TestThreadFlags(t *testing.T) {
	k, cpu := newTestKernel(t, Config{})
	idle := mustCreate(t, k, 15, wout, "idle")
	main := mustCreate(t, k, 7, wout, "main")
	k.Run()

	// wait any
	k.WaitAny(0xf)
	wantStatus(t, main, StatusFlagBlockedAny)
	wantFlags(t, main, 0, 0xf)
	k.Run()
	wantStatus(t, idle, StatusRunning)

	cpu.takeYield()
	k.SetFlags(main, 0x1)
	wantFlags(t, main, 0x1, 0xf)
	wantStatus(t, main, StatusPending)
	if !cpu.takeYield() || !k.ContextSwitchRequested() {
		t.Fatalf("SetFlags() waking a thread did not request a switch")
	}
	k.Run()
	wantStatus(t, main, StatusRunning)

	if got := k.ClearFlags(0xf); got != 0x1 {
		t.Fatalf("ClearFlags(0xf) = %#x, want 0x1", got)
	}
	wantFlags(t, main, 0, 0xf)

	k.WaitAny(0xf)
	wantStatus(t, main, StatusFlagBlockedAny)
	k.Run()
	k.SetFlags(main, 0x3)
	wantFlags(t, main, 0x3, 0xf)
	wantStatus(t, main, StatusPending)
	k.Run()
	wantStatus(t, main, StatusRunning)

	// wait all: the blocking call clears what it waited for.
	k.WaitAll(0xff)
	wantFlags(t, main, 0, 0xff)
	wantStatus(t, main, StatusFlagBlockedAll)
	k.Run()
	wantStatus(t, idle, StatusRunning)

	for _, f := range []Flags{0x1, 0x2, 0x4, 0x8} {
		k.SetFlags(main, f)
	}
	wantFlags(t, main, 0xf, 0xff)
	wantStatus(t, main, StatusFlagBlockedAll)

	for _, f := range []Flags{0x10, 0x20, 0x40, 0x80} {
		k.SetFlags(main, f)
	}
	wantFlags(t, main, 0xff, 0xff)
	wantStatus(t, main, StatusPending)
	k.Run()
	wantStatus(t, main, StatusRunning)

	k.ClearFlags(0xf)
	wantFlags(t, main, 0xf0, 0xff)

	k.WaitAll(0xff)
	wantFlags(t, main, 0, 0xff)
	wantStatus(t, main, StatusFlagBlockedAll)
	k.Run()
	for f := Flags(1); f <= 0x80; f <<= 1 {
		k.SetFlags(main, f)
	}
	wantStatus(t, main, StatusPending)
	k.Run()
	wantFlags(t, main, 0xff, 0xff)

	// A satisfied mask left in place makes the next WaitAll return at once.
	if got := k.WaitAll(0xff); got != 0xff {
		t.Fatalf("WaitAll(0xff) = %#x, want 0xff", got)
	}
	wantFlags(t, main, 0, 0xff)
	wantStatus(t, main, StatusRunning)

	// wait one
	k.WaitOne(0x3)
	wantFlags(t, main, 0, 0x3)
	wantStatus(t, main, StatusFlagBlockedAny)
	k.Run()

	k.SetFlags(main, 0x10)
	wantFlags(t, main, 0x10, 0x3)
	wantStatus(t, main, StatusFlagBlockedAny)

	k.SetFlags(main, 0x1)
	wantFlags(t, main, 0x11, 0x3)
	wantStatus(t, main, StatusPending)
	k.Run()

	k.SetFlags(main, 0x2)
	if got := k.WaitOne(0x3); got != 0x1 {
		t.Fatalf("WaitOne(0x3) = %#x, want 0x1", got)
	}
	wantFlags(t, main, 0x12, 0x3)
	if got := k.WaitOne(0x3); got != 0x2 {
		t.Fatalf("WaitOne(0x3) = %#x, want 0x2", got)
	}
	wantFlags(t, main, 0x10, 0x3)
	wantStatus(t, main, StatusRunning)

	k.WaitOne(0x3)
	wantStatus(t, main, StatusFlagBlockedAny)
	checkInvariants(t, k)
}

func TestSetFlagsFromISR(t *testing.T) {
	k, cpu := newTestKernel(t, Config{})
	mustCreate(t, k, 15, wout, "idle")
	main := mustCreate(t, k, 7, wout, "main")
	k.Run()
	k.WaitAny(ThreadFlagEvent)
	k.Run()
	cpu.takeYield()

	cpu.inISR = true
	if !k.SetFlagsPID(main.PID(), ThreadFlagEvent) {
		t.Fatalf("SetFlagsPID() = false, want true")
	}
	cpu.inISR = false
	if cpu.takeYield() {
		t.Fatalf("SetFlags() yielded in interrupt context")
	}
	if !k.ContextSwitchRequested() {
		t.Fatalf("ContextSwitchRequested() = false, want true")
	}
	k.EndOfISR()
	k.Run()
	wantStatus(t, main, StatusRunning)

	if k.SetFlagsPID(PIDLast, 1) {
		t.Fatalf("SetFlagsPID(unused) = true, want false")
	}
}
