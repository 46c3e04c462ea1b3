package cpu_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sparkrt/hal/cpu"
	"sparkrt/kernel"
)

func newSystem(t *testing.T, opts cpu.Options) (*cpu.CPU, *kernel.Kernel) {
	t.Helper()
	c := cpu.New(opts)
	k, err := kernel.New(c, kernel.Config{Clock: c.Clock()})
	if err != nil {
		t.Fatalf("kernel.New() err = %v", err)
	}
	return c, k
}

func spawn(t *testing.T, k *kernel.Kernel, prio uint8, flags kernel.CreateFlags, name string, fn func()) kernel.PID {
	t.Helper()
	pid, err := k.CreateThread(make([]byte, 1024), prio, flags, func(any) { fn() }, nil, name)
	if err != nil {
		t.Fatalf("CreateThread(%q) err = %v", name, err)
	}
	return pid
}

func spawnIdle(t *testing.T, c *cpu.CPU, k *kernel.Kernel) {
	t.Helper()
	spawn(t, k, k.PriorityIdle(), 0, "idle", func() {
		for {
			c.WaitForInterrupt()
		}
	})
}

func boot(t *testing.T, c *cpu.CPU) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Boot(ctx)
}

func TestMutexWakeOrder(t *testing.T) {
	c, k := newSystem(t, cpu.Options{HaltWhenIdle: true})
	spawnIdle(t, c, k)
	m := kernel.NewMutex(k)

	var (
		order        []string
		peek         kernel.PID
		waiters      int
		b, cc, waker kernel.PID
	)
	a := spawn(t, k, 5, 0, "A", func() {
		m.Lock()
		k.Wakeup(b)
		k.Wakeup(cc)
		k.Wakeup(waker)
		k.WaitAny(1)
		m.Unlock()
	})
	b = spawn(t, k, 7, kernel.CreateSleeping, "B", func() {
		m.Lock()
		order = append(order, "B")
		m.Unlock()
	})
	cc = spawn(t, k, 5, kernel.CreateSleeping, "C", func() {
		m.Lock()
		order = append(order, "C")
		m.Unlock()
	})
	waker = spawn(t, k, 8, kernel.CreateSleeping, "waker", func() {
		peek = m.Peek()
		waiters = m.Waiters()
		k.SetFlagsPID(a, 1)
	})

	if err := boot(t, c); err != nil {
		t.Fatalf("Boot() err = %v, want nil", err)
	}
	if peek != cc || waiters != 2 {
		t.Fatalf("Peek() = %d, Waiters() = %d, want %d, 2", peek, waiters, cc)
	}
	if strings.Join(order, "") != "CB" {
		t.Fatalf("lock order = %v, want [C B]", order)
	}
	if m.Locked() {
		t.Fatalf("mutex still locked after all threads exited")
	}
	if k.NumThreads() != 1 {
		t.Fatalf("NumThreads() = %d, want only idle left", k.NumThreads())
	}
}

func TestYieldRoundRobin(t *testing.T) {
	c, k := newSystem(t, cpu.Options{HaltWhenIdle: true})
	spawnIdle(t, c, k)

	var order []byte
	for _, name := range []byte("AB") {
		name := name
		spawn(t, k, 5, 0, string(name), func() {
			for i := 0; i < 3; i++ {
				order = append(order, name)
				k.Yield()
			}
		})
	}
	if err := boot(t, c); err != nil {
		t.Fatalf("Boot() err = %v, want nil", err)
	}
	if got := string(order); got != "ABABAB" {
		t.Fatalf("order = %q, want %q", got, "ABABAB")
	}
}

func TestSwitchDeferredWhileMasked(t *testing.T) {
	c, k := newSystem(t, cpu.Options{HaltWhenIdle: true})
	spawnIdle(t, c, k)

	var order []string
	var high kernel.PID
	spawn(t, k, 7, 0, "low", func() {
		state := c.DisableIRQ()
		k.Wakeup(high)
		order = append(order, "low masked")
		c.RestoreIRQ(state)
		order = append(order, "low")
	})
	high = spawn(t, k, 3, kernel.CreateSleeping, "high", func() {
		order = append(order, "high")
	})

	if err := boot(t, c); err != nil {
		t.Fatalf("Boot() err = %v, want nil", err)
	}
	if got := strings.Join(order, ","); got != "low masked,high,low" {
		t.Fatalf("order = %q, want %q", got, "low masked,high,low")
	}
}

func TestLockTimeoutVirtualTime(t *testing.T) {
	c, k := newSystem(t, cpu.Options{HaltWhenIdle: true})
	spawnIdle(t, c, k)
	m := kernel.NewMutex(k)

	var (
		err    error
		at     uint64
		waiter kernel.PID
	)
	spawn(t, k, 6, 0, "holder", func() {
		m.Lock()
		k.Wakeup(waiter)
		c.Busy(5000)
		m.Unlock()
	})
	waiter = spawn(t, k, 5, kernel.CreateSleeping, "waiter", func() {
		err = m.LockTimeout(1000)
		at = c.Clock().Now()
	})

	if bootErr := boot(t, c); bootErr != nil {
		t.Fatalf("Boot() err = %v, want nil", bootErr)
	}
	if !errors.Is(err, kernel.ErrTimeout) {
		t.Fatalf("LockTimeout() err = %v, want ErrTimeout", err)
	}
	if at != 1000 {
		t.Fatalf("timeout observed at %d, want 1000", at)
	}
	if now := c.Clock().Now(); now != 5000 {
		t.Fatalf("Now() = %d, want 5000", now)
	}
}

func TestLockTimeoutWallClock(t *testing.T) {
	c, k := newSystem(t, cpu.Options{Wall: true, HaltWhenIdle: true})
	spawnIdle(t, c, k)
	m := kernel.NewMutex(k)

	var (
		err     error
		elapsed uint64
		waiter  kernel.PID
	)
	spawn(t, k, 6, 0, "holder", func() {
		m.Lock()
		k.Wakeup(waiter)
	})
	waiter = spawn(t, k, 5, kernel.CreateSleeping, "waiter", func() {
		start := c.Clock().Now()
		err = m.LockTimeout(2000)
		elapsed = c.Clock().Now() - start
	})

	if bootErr := boot(t, c); bootErr != nil {
		t.Fatalf("Boot() err = %v, want nil", bootErr)
	}
	if !errors.Is(err, kernel.ErrTimeout) {
		t.Fatalf("LockTimeout() err = %v, want ErrTimeout", err)
	}
	if elapsed < 2000 {
		t.Fatalf("LockTimeout() returned after %dus, want at least 2000us", elapsed)
	}
}

func TestRaiseFromForeignGoroutine(t *testing.T) {
	c, k := newSystem(t, cpu.Options{Wall: true})
	spawnIdle(t, c, k)

	got := make(chan kernel.Message, 1)
	rx := spawn(t, k, 5, 0, "rx", func() {
		var m kernel.Message
		k.Receive(&m)
		got <- m
		c.Halt()
	})

	errc := make(chan error, 1)
	go func() { errc <- boot(t, c) }()

	c.Raise(func() {
		k.SendInISR(&kernel.Message{Value: 7}, rx)
	})

	select {
	case m := <-got:
		if m.Value != 7 || !m.SentByISR() {
			t.Fatalf("received %+v, want value 7 from ISR", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the raised interrupt")
	}
	if err := <-errc; err != nil {
		t.Fatalf("Boot() err = %v, want nil", err)
	}
}

func TestThreadPanicStopsBoot(t *testing.T) {
	c, k := newSystem(t, cpu.Options{HaltWhenIdle: true})
	spawnIdle(t, c, k)
	spawn(t, k, 5, 0, "crash", func() {
		panic("boom")
	})

	err := boot(t, c)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Boot() err = %v, want the thread panic", err)
	}
}

func TestBootWithoutThreads(t *testing.T) {
	c, _ := newSystem(t, cpu.Options{})
	if err := boot(t, c); err == nil {
		t.Fatalf("Boot() err = nil, want error")
	}
}
