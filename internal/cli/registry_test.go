package cli

import (
	"testing"
)

type stubCommand struct {
	name    string
	ranWith []string
}

func (s *stubCommand) Name() string        { return s.name }
func (s *stubCommand) Description() string { return "stub" }
func (s *stubCommand) Run(args []string) error {
	s.ranWith = args
	return nil
}

func TestRegistry_Run(t *testing.T) {
	t.Run("dispatches to the named command", func(t *testing.T) {
		registry := NewRegistry()
		cmd := &stubCommand{name: "clients"}
		registry.Register(cmd)

		if err := registry.Run([]string{"clients", "list", "-v"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(cmd.ranWith) != 2 || cmd.ranWith[0] != "list" {
			t.Errorf("Run() passed args = %v", cmd.ranWith)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&stubCommand{name: "keys"})

		if err := registry.Run([]string{"nope"}); err == nil {
			t.Errorf("Run() accepted an unknown command")
		}
	})

	t.Run("no command", func(t *testing.T) {
		registry := NewRegistry()

		if err := registry.Run(nil); err == nil {
			t.Errorf("Run() accepted an empty command line")
		}
	})
}
