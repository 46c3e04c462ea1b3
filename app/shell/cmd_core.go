package shell

import (
	"errors"
	"fmt"
	"strings"
)

func registerCoreCommands(r *registry) error {
	return r.add(groupCore,
		Command{Name: "help", Aliases: []string{"?"}, Usage: "help [command]", Desc: "Show available commands.", Run: cmdHelp},
		Command{Name: "echo", Usage: "echo [args...]", Desc: "Print arguments.", Run: cmdEcho},
	)
}

func cmdHelp(s *Shell, args []string) error {
	if len(args) == 0 {
		last := ""
		s.reg.each(func(group string, cmd Command) {
			if group != last {
				s.printf("%s:", group)
				last = group
			}
			s.printf("  %-8s %s", cmd.Name, cmd.Desc)
		})
		return nil
	}
	if len(args) != 1 {
		return errors.New("usage: help [command]")
	}

	cmd, ok := s.reg.resolve(args[0])
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	if cmd.Usage != "" {
		s.printf("usage: %s", cmd.Usage)
	}
	if cmd.Desc != "" {
		s.printf("%s", cmd.Desc)
	}
	if len(cmd.Aliases) > 0 {
		s.printf("aliases: %s", strings.Join(cmd.Aliases, ", "))
	}
	return nil
}

func cmdEcho(s *Shell, args []string) error {
	s.printf("%s", strings.Join(args, " "))
	return nil
}
