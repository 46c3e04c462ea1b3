// Package shell is the console command interpreter. It runs as a kernel
// thread and receives input lines as messages, usually sent by the serial
// interrupt handler.
package shell

import (
	"errors"
	"fmt"

	"sparkrt/kernel"

	"github.com/google/shlex"
)

// MsgLine carries one input line in Message.Ptr as a string.
const MsgLine uint16 = 0x5348

// ErrUnknownCommand is returned by Exec for names not in the command table.
var ErrUnknownCommand = errors.New("unknown command")

// Output receives the shell's reply lines.
type Output interface {
	WriteLineString(s string)
}

type Shell struct {
	k   *kernel.Kernel
	out Output
	reg *registry
	pid kernel.PID

	queue [8]kernel.Message
}

// New returns a shell with the built-in commands registered.
func New(k *kernel.Kernel, out Output) (*Shell, error) {
	s := &Shell{k: k, out: out, reg: newRegistry()}
	for _, register := range []func(*registry) error{registerCoreCommands, registerSysCommands} {
		if err := register(s.reg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds cmd to the command table. help lists it after the built-in
// commands, under "system".
func (s *Shell) Register(cmd Command) error {
	return s.reg.add(groupSystem, cmd)
}

// Kernel returns the kernel the shell inspects.
func (s *Shell) Kernel() *kernel.Kernel { return s.k }

// PID returns the shell thread, or PIDUndef before Spawn.
func (s *Shell) PID() kernel.PID { return s.pid }

// Spawn creates the shell thread on stack.
func (s *Shell) Spawn(stack []byte, prio uint8) (kernel.PID, error) {
	pid, err := s.k.CreateThread(stack, prio, kernel.CreateStackMarker, s.run, nil, "shell")
	if err != nil {
		return kernel.PIDUndef, fmt.Errorf("shell: %w", err)
	}
	s.pid = pid
	return pid, nil
}

func (s *Shell) run(any) {
	s.k.InitMsgQueue(s.queue[:])
	for {
		var m kernel.Message
		s.k.Receive(&m)
		if m.Type != MsgLine {
			continue
		}
		line, _ := m.Ptr.(string)
		_ = s.Exec(line)
	}
}

// Submit queues line for the shell thread. It is meant for interrupt
// handlers; lines are dropped with kernel.ErrQueueFull while the shell is
// busy and its queue is full.
func (s *Shell) Submit(line string) error {
	return s.k.SendInISR(&kernel.Message{Type: MsgLine, Ptr: line}, s.pid)
}

// Exec parses and runs one line. Known commands are always followed by a
// "Done" line, after the error if the command failed.
func (s *Shell) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		s.printf("parse error: %v", err)
		return err
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := s.reg.resolve(args[0])
	if !ok {
		s.printf("Unknown command: %s", args[0])
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	err = cmd.Run(s, args[1:])
	if err != nil {
		s.printf("%s: %v", cmd.Name, err)
	}
	s.printf("Done")
	return err
}

func (s *Shell) printf(format string, args ...any) {
	if s.out == nil {
		return
	}
	s.out.WriteLineString(fmt.Sprintf(format, args...))
}
