package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name   string `yaml:"name"`
	Issuer string `yaml:"issuer"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	BodyLimit   int      `yaml:"body_limit"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// AuthConfig holds token and key configuration
type AuthConfig struct {
	KeysPath        string        `yaml:"keys_path"`
	ActiveKID       string        `yaml:"active_kid"`
	DefaultAudience string        `yaml:"default_audience"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	IDTokenTTL      time.Duration `yaml:"id_token_ttl"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	RememberMeTTL   time.Duration `yaml:"remember_me_ttl"`
	AuthCodeTTL     time.Duration `yaml:"auth_code_ttl"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// RateLimitConfig holds sliding-window limits for credential endpoints
type RateLimitConfig struct {
	LoginMax       int           `yaml:"login_max"`
	LoginWindow    time.Duration `yaml:"login_window"`
	RegisterMax    int           `yaml:"register_max"`
	RegisterWindow time.Duration `yaml:"register_window"`
	GlobalMax      int           `yaml:"global_max"`
	GlobalWindow   time.Duration `yaml:"global_window"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills zero-valued fields with sane defaults
func (c *Config) applyDefaults() {
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.IDTokenTTL == 0 {
		c.Auth.IDTokenTTL = time.Hour
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}
	if c.Auth.RememberMeTTL == 0 {
		c.Auth.RememberMeTTL = 30 * 24 * time.Hour
	}
	if c.Auth.AuthCodeTTL == 0 {
		c.Auth.AuthCodeTTL = 10 * time.Minute
	}
	if c.Auth.SweepInterval == 0 {
		c.Auth.SweepInterval = time.Hour
	}
	if c.RateLimit.LoginMax == 0 {
		c.RateLimit.LoginMax = 5
	}
	if c.RateLimit.LoginWindow == 0 {
		c.RateLimit.LoginWindow = 15 * time.Minute
	}
	if c.RateLimit.RegisterMax == 0 {
		c.RateLimit.RegisterMax = 3
	}
	if c.RateLimit.RegisterWindow == 0 {
		c.RateLimit.RegisterWindow = time.Hour
	}
	if c.RateLimit.GlobalMax == 0 {
		c.RateLimit.GlobalMax = 100
	}
	if c.RateLimit.GlobalWindow == 0 {
		c.RateLimit.GlobalWindow = time.Minute
	}
	if c.Server.BodyLimit == 0 {
		c.Server.BodyLimit = 1 << 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}

	return "'" + escaped + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	userInfo := url.UserPassword(d.User, d.Password)

	// net.JoinHostPort wraps IPv6 addresses in brackets
	host := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))

	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
