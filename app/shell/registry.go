package shell

import (
	"fmt"
	"strings"
)

// CmdFunc runs a command. args excludes the command name.
type CmdFunc func(s *Shell, args []string) error

// Command is one entry of the command table.
type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Desc    string
	Run     CmdFunc
}

// Command groups, in the order help lists them.
const (
	groupCore   = "core"
	groupKernel = "kernel"
	groupSystem = "system"
)

type cmdGroup struct {
	name string
	cmds []*Command
}

// registry keeps commands in groups, each in registration order, and maps
// names and aliases to their command.
type registry struct {
	groups []*cmdGroup
	byName map[string]*Command
}

func newRegistry() *registry {
	r := &registry{byName: make(map[string]*Command)}
	for _, name := range []string{groupCore, groupKernel, groupSystem} {
		r.groups = append(r.groups, &cmdGroup{name: name})
	}
	return r
}

func (r *registry) group(name string) *cmdGroup {
	for _, g := range r.groups {
		if g.name == name {
			return g
		}
	}
	g := &cmdGroup{name: name}
	r.groups = append(r.groups, g)
	return g
}

// add registers cmds under group. Names and aliases are checked before
// anything is added, so a failed call leaves the table unchanged.
func (r *registry) add(group string, cmds ...Command) error {
	taken := make(map[string]bool)
	for i := range cmds {
		cmd := &cmds[i]
		cmd.Name = strings.TrimSpace(cmd.Name)
		if cmd.Name == "" {
			return fmt.Errorf("shell: command without a name in group %s", group)
		}
		if cmd.Run == nil {
			return fmt.Errorf("shell: command %q has no handler", cmd.Name)
		}
		aliases := cmd.Aliases[:0:0]
		for _, a := range cmd.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		cmd.Aliases = aliases
		for _, key := range append([]string{cmd.Name}, aliases...) {
			if _, ok := r.byName[key]; ok || taken[key] {
				return fmt.Errorf("shell: %q is already a command or alias", key)
			}
			taken[key] = true
		}
	}

	g := r.group(group)
	for i := range cmds {
		cmd := &cmds[i]
		g.cmds = append(g.cmds, cmd)
		r.byName[cmd.Name] = cmd
		for _, a := range cmd.Aliases {
			r.byName[a] = cmd
		}
	}
	return nil
}

func (r *registry) resolve(name string) (Command, bool) {
	cmd, ok := r.byName[name]
	if !ok {
		return Command{}, false
	}
	return *cmd, true
}

// each calls fn for every command, group by group.
func (r *registry) each(fn func(group string, cmd Command)) {
	for _, g := range r.groups {
		for _, cmd := range g.cmds {
			fn(g.name, *cmd)
		}
	}
}
