package main

import (
	"fmt"
	"os"

	"github.com/nexauth/nexauth/internal/cli"
	"github.com/nexauth/nexauth/internal/cli/clients"
	"github.com/nexauth/nexauth/internal/cli/keys"
)

func main() {
	registry := cli.NewRegistry()

	registry.Register(&keys.Command{})
	registry.Register(&clients.Command{})

	if err := registry.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
