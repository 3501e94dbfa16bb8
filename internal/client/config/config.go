package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

const EnvPrefix = "GOPHAUTH_CLIENT_"

// Config holds runtime settings for the GophAuth CLI.
type Config struct {
	ServerEndpointAddr  string        `env:"SERVER_ADDRESS"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// Load applies defaults, then JSON, environment and flags from args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
