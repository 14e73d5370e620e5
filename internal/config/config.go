package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server's runtime configuration. An empty DatabaseDSN
// runs the store in memory-only mode with no durable message archive.
type Config struct {
	ServerAddr     string   `envconfig:"HUDDLE_ADDR" default:"localhost:8000"`
	DatabaseDSN    string   `envconfig:"HUDDLE_DATABASE_DSN"`
	AllowedOrigins []string `envconfig:"HUDDLE_ALLOWED_ORIGINS"`
	HistoryLimit   int      `envconfig:"HUDDLE_HISTORY_LIMIT" default:"500"`
}

// FromEnv builds a Config from the environment, applying defaults for
// unset variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewConfig builds a Config from explicit values, typically flag
// overrides layered over FromEnv in main.
func NewConfig(serverAddr, databaseDSN string, allowedOrigins []string, historyLimit int) (*Config, error) {
	cfg := &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		AllowedOrigins: allowedOrigins,
		HistoryLimit:   historyLimit,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history limit cannot be negative")
	}
	return nil
}
