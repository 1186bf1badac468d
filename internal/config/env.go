package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables
type Environment struct {
	Environment   EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath    string          `env:"CONFIG_PATH"`
	DBPassword    string          `env:"DB_PASSWORD"`
	RedisPassword string          `env:"REDIS_PASSWORD"`
}

// LoadEnv loads a .env file when present and reads the environment variables
func LoadEnv() *Environment {
	// Missing .env is fine, real env vars still apply
	_ = godotenv.Load()

	envStr := getEnv("ENVIRONMENT", string(EnvironmentDevelopment))
	envStr = strings.TrimSpace(envStr)
	envStr = strings.ToLower(envStr)
	envType := EnvironmentType(envStr)

	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment:   envType,
		ConfigPath:    getEnv("CONFIG_PATH", "config.yaml"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}
}

// Apply overrides config values with environment-provided secrets
func (e *Environment) Apply(cfg *Config) {
	if e.DBPassword != "" {
		cfg.Database.Password = e.DBPassword
	}
	if e.RedisPassword != "" {
		cfg.Redis.Password = e.RedisPassword
	}
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
