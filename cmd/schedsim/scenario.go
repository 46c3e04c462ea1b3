package main

import (
	"errors"
	"fmt"

	"sparkrt/kernel"
	"sparkrt/kernel/sema"
)

type scenario struct {
	name   string
	desc   string
	levels int
	setup  func(s *sim) error
}

const flagPeriod kernel.Flags = 1 << 1

var scenarios = []scenario{
	{name: "roundrobin", desc: "three equal priority workers yielding after every millisecond", setup: setupRoundRobin},
	{name: "periodic", desc: "a 10ms timer driven task preempting a background worker", setup: setupPeriodic},
	{name: "mutex", desc: "three priorities contending for one mutex", setup: setupMutex},
	{name: "pingpong", desc: "client and server exchanging messages with SendReceive", setup: setupPingPong},
	{name: "sema", desc: "an interrupt posting a semaphore every millisecond to a consumer", setup: setupSema},
}

func findScenario(name string) (scenario, bool) {
	for _, sc := range scenarios {
		if sc.name == name {
			return sc, true
		}
	}
	return scenario{}, false
}

func setupRoundRobin(s *sim) error {
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("rr%d", i)
		if _, err := s.spawn(5, name, func(any) {
			for {
				s.c.Busy(1000)
				s.count(name)
				s.k.Yield()
			}
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

func setupPeriodic(s *sim) error {
	var tick kernel.Timer
	var pid kernel.PID
	tick.Callback = func(any) {
		s.k.SetFlagsPID(pid, flagPeriod)
		s.k.Clock().Set(&tick, 10_000)
	}

	var err error
	pid, err = s.spawn(2, "periodic", func(any) {
		for {
			s.k.WaitAny(flagPeriod)
			s.c.Busy(2000)
			s.count("periodic")
		}
	}, nil)
	if err != nil {
		return err
	}
	s.k.Clock().Set(&tick, 10_000)

	_, err = s.spawn(8, "background", func(any) {
		for {
			s.c.Busy(1000)
			s.count("background")
		}
	}, nil)
	return err
}

func setupMutex(s *sim) error {
	m := kernel.NewMutex(s.k)
	for _, prio := range []uint8{3, 5, 7} {
		name := fmt.Sprintf("lock%d", prio)
		pause := sema.New(s.k, 0)
		if _, err := s.spawn(prio, name, func(any) {
			for {
				m.Lock()
				s.c.Busy(500)
				s.count(name)
				m.Unlock()
				if err := pause.WaitTimed(2000); !errors.Is(err, sema.ErrTimeout) {
					s.k.Fatalf("%s: pause: %v", name, err)
				}
			}
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

func setupPingPong(s *sim) error {
	server, err := s.spawn(4, "server", func(any) {
		for {
			var m kernel.Message
			s.k.Receive(&m)
			s.c.Busy(100)
			if err := s.k.Reply(&m, &kernel.Message{Value: m.Value * 2}); err != nil {
				s.k.Fatalf("server: %v", err)
			}
		}
	}, nil)
	if err != nil {
		return err
	}
	_, err = s.spawn(6, "client", func(any) {
		for n := uint32(1); ; n++ {
			var reply kernel.Message
			if err := s.k.SendReceive(&kernel.Message{Value: n}, &reply, server); err != nil {
				s.k.Fatalf("client: %v", err)
			}
			if reply.Value != 2*n {
				s.k.Fatalf("client: reply %d to %d", reply.Value, n)
			}
			s.count("rounds")
			s.c.Busy(50)
		}
	}, nil)
	return err
}

func setupSema(s *sim) error {
	sem := sema.New(s.k, 0)
	var tick kernel.Timer
	tick.Callback = func(any) {
		if err := sem.Post(); err != nil {
			s.count("overflow")
		}
		s.k.Clock().Set(&tick, 1000)
	}
	s.k.Clock().Set(&tick, 1000)

	_, err := s.spawn(5, "consumer", func(any) {
		for {
			if err := sem.Wait(); err != nil {
				s.k.Fatalf("consumer: %v", err)
			}
			s.c.Busy(200)
			s.count("consumed")
		}
	}, nil)
	return err
}
