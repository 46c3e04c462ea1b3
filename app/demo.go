package app

import (
	"errors"
	"fmt"

	"sparkrt/hal"
	"sparkrt/hal/cpu"
	"sparkrt/kernel"
	"sparkrt/kernel/rmutex"
	"sparkrt/kernel/sema"
)

const (
	prioBlinker = 2
	prioServer  = 5
	prioClient  = 6
	prioWorker  = 8

	flagTick kernel.Flags = 1 << 1

	blinkPeriod  = 500_000
	clientPause  = 20_000
	workerPause  = 5_000
	workerBurst  = 2_000
	demoStackLen = 2048
)

// demo keeps a few threads busy with every kind of primitive: a timer driven
// blinker, a message ping-pong pair and two workers sharing a recursive
// mutex and pacing themselves with semaphore timeouts.
type demo struct {
	k   *kernel.Kernel
	c   *cpu.CPU
	led hal.LED

	lock  *rmutex.RMutex
	pause *sema.Sema
	tick  kernel.Timer

	blinker kernel.PID
	server  kernel.PID

	rounds   uint64
	blinks   uint64
	work     [2]uint64
	timeouts uint64
}

func newDemo(k *kernel.Kernel, c *cpu.CPU, led hal.LED) *demo {
	d := &demo{
		k:     k,
		c:     c,
		led:   led,
		lock:  rmutex.New(k),
		pause: sema.New(k, 0),
	}
	d.tick.Callback = func(any) { d.k.SetFlagsPID(d.blinker, flagTick) }
	return d
}

// start creates the demo threads. It runs in the main thread, so more
// urgent demo threads start running right away.
func (d *demo) start() error {
	var err error
	if d.blinker, err = d.spawn(prioBlinker, d.blink, nil, "blinker"); err != nil {
		return err
	}
	if d.server, err = d.spawn(prioServer, d.serve, nil, "server"); err != nil {
		return err
	}
	if _, err = d.spawn(prioClient, d.ping, nil, "client"); err != nil {
		return err
	}
	for i := 0; i < len(d.work); i++ {
		if _, err = d.spawn(prioWorker, d.churn, i, fmt.Sprintf("worker%d", i)); err != nil {
			return err
		}
	}
	return nil
}

func (d *demo) spawn(prio uint8, entry func(any), arg any, name string) (kernel.PID, error) {
	pid, err := d.k.CreateThread(make([]byte, demoStackLen), prio, kernel.CreateStackMarker, entry, arg, name)
	if err != nil {
		return kernel.PIDUndef, fmt.Errorf("demo %s: %w", name, err)
	}
	return pid, nil
}

func (d *demo) blink(any) {
	on := false
	for {
		d.k.Clock().Set(&d.tick, blinkPeriod)
		d.k.WaitAny(flagTick)
		on = !on
		if on {
			d.led.High()
		} else {
			d.led.Low()
		}
		d.blinks++
	}
}

func (d *demo) serve(any) {
	for {
		var m kernel.Message
		d.k.Receive(&m)
		reply := kernel.Message{Type: m.Type, Value: m.Value + 1}
		if err := d.k.Reply(&m, &reply); err != nil {
			d.k.Fatalf("demo server: %v", err)
		}
	}
}

func (d *demo) ping(any) {
	for n := uint32(0); ; n++ {
		var reply kernel.Message
		if err := d.k.SendReceive(&kernel.Message{Value: n}, &reply, d.server); err != nil {
			d.k.Fatalf("demo client: %v", err)
		}
		if reply.Value != n+1 {
			d.k.Fatalf("demo client: reply %d to %d", reply.Value, n)
		}
		d.rounds++
		d.sleep(clientPause)
	}
}

func (d *demo) churn(arg any) {
	i := arg.(int)
	for {
		d.lock.Lock()
		d.lock.Lock()
		d.c.Busy(workerBurst)
		d.work[i]++
		d.lock.Unlock()
		d.lock.Unlock()
		d.sleep(workerPause)
	}
}

// sleep blocks on a semaphore nobody posts.
func (d *demo) sleep(us uint64) {
	if err := d.pause.WaitTimed(us); errors.Is(err, sema.ErrTimeout) {
		d.timeouts++
	}
}

func (d *demo) stats() string {
	return fmt.Sprintf("rounds %d, blinks %d, work %d/%d, timeouts %d", d.rounds, d.blinks, d.work[0], d.work[1], d.timeouts)
}
