package shell

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"sparkrt/internal/buildinfo"
	"sparkrt/kernel"
)

func registerSysCommands(r *registry) error {
	return r.add(groupKernel,
		Command{Name: "ps", Usage: "ps", Desc: "List threads.", Run: cmdPs},
		Command{Name: "wake", Usage: "wake <pid>", Desc: "Wake a sleeping thread.", Run: cmdWake},
		Command{Name: "flags", Usage: "flags <pid> <mask>", Desc: "Set thread flags.", Run: cmdFlags},
		Command{Name: "stack", Usage: "stack <pid>", Desc: "Show stack usage of a thread.", Run: cmdStack},
		Command{Name: "uptime", Usage: "uptime", Desc: "Show time since boot.", Run: cmdUptime},
		Command{Name: "version", Usage: "version", Desc: "Show build version.", Run: cmdVersion},
	)
}

func cmdPs(s *Shell, _ []string) error {
	s.printf("%3s %-10s %-9s %3s %6s %6s %12s %8s", "pid", "name", "state", "pri", "stack", "free", "runtime", "switches")
	for _, ti := range s.k.Snapshot() {
		mark := ' '
		if ti.Current {
			mark = '*'
		}
		s.printf("%3d %-10s %-8s%c %3d %6d %6d %12d %8d",
			ti.PID, ti.Name, ti.Status, mark, ti.Priority, ti.StackSize, ti.StackFree, ti.RuntimeTicks, ti.Schedules)
	}
	return nil
}

func cmdUptime(s *Shell, _ []string) error {
	clock := s.k.Clock()
	if clock == nil {
		return kernel.ErrNoClock
	}
	s.printf("up %s", time.Duration(clock.Now())*time.Microsecond)
	return nil
}

func cmdVersion(s *Shell, _ []string) error {
	s.printf("%s %s %s", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	return nil
}

func cmdWake(s *Shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: wake <pid>")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	if !s.k.Wakeup(pid) {
		return fmt.Errorf("pid %d is not sleeping", pid)
	}
	return nil
}

func cmdFlags(s *Shell, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: flags <pid> <mask>")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	mask, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return fmt.Errorf("invalid mask %q", args[1])
	}
	if !s.k.SetFlagsPID(pid, kernel.Flags(mask)) {
		return fmt.Errorf("%w: %d", kernel.ErrNoSuchThread, pid)
	}
	return nil
}

func cmdStack(s *Shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stack <pid>")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	t := s.k.Thread(pid)
	if t == nil {
		return fmt.Errorf("%w: %d", kernel.ErrNoSuchThread, pid)
	}
	guard := "ok"
	if !s.k.StackGuardIntact(pid) {
		guard = "overwritten"
	}
	s.printf("pid %d: size %d, free %d, guard %s", pid, t.StackSize(), s.k.MeasureStackFree(pid), guard)
	return nil
}

// parsePID accepts decimal, 0x and 0 prefixed numbers.
func parsePID(arg string) (kernel.PID, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil || !kernel.PIDValid(kernel.PID(v)) {
		return kernel.PIDUndef, fmt.Errorf("invalid pid %q", arg)
	}
	return kernel.PID(v), nil
}
