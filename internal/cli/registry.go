package cli

import (
	"fmt"
	"os"
)

// Command is a named CLI command that owns its flag parsing
type Command interface {
	Name() string
	Description() string
	Run(args []string) error
}

// Registry dispatches command-line arguments to registered commands
type Registry struct {
	commands map[string]Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

func (r *Registry) Register(cmd Command) {
	if _, ok := r.commands[cmd.Name()]; !ok {
		r.order = append(r.order, cmd.Name())
	}
	r.commands[cmd.Name()] = cmd
}

func (r *Registry) Run(args []string) error {
	if len(args) < 1 {
		r.printUsage()
		return fmt.Errorf("command required")
	}

	cmd, ok := r.commands[args[0]]
	if !ok {
		r.printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.Run(args[1:])
}

func (r *Registry) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: nexauth-cli <command> [args]\n\nCommands:\n")
	for _, name := range r.order {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, r.commands[name].Description())
	}
}
