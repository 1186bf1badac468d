package main

import (
	"log/slog"
	"os"

	"github.com/nexauth/nexauth/internal/config"
	"github.com/nexauth/nexauth/internal/server"
)

func main() {
	envConfig := config.LoadEnv()

	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	envConfig.Apply(cfg)

	if err := server.Start(cfg, envConfig); err != nil {
		os.Exit(1)
	}
}
