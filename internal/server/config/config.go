// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables, and command-line
// flags.
package config

import (
	"fmt"
	"os"
	"time"
)

// Storage backends understood by the server.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds runtime settings for the GophAuth server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the REST API.
//   - EndpointAddrGRPC: bind address for the gRPC API; empty disables it.
//   - StorageType: one of memory, postgres, sqlite.
//   - DatabaseDSN: PostgreSQL DSN (pgx) or SQLite file path.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Empty means a random
//     per-process secret, so tokens do not survive a restart.
//   - AccessTokenValidityDuration: lifetime of issued bearer tokens.
//   - PasswordHashAlgorithm / BcryptCost: credential hasher settings.
//   - LogLevel: debug, info, warn or error.
//   - OtelEndpoint: OTLP/HTTP traces endpoint; empty disables tracing.
//   - OperatorEmails: users allowed to list every account over gRPC.
type Config struct {
	EndpointAddrHTTP            string        `env:"HTTP_ADDRESS"`
	EndpointAddrGRPC            string        `env:"GRPC_ADDRESS"`
	StorageType                 string        `env:"STORAGE"`
	DatabaseDSN                 string        `env:"DATABASE_DSN"`
	SecretKey                   string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `env:"ACCESS_TOKEN_TTL"`
	PasswordHashAlgorithm       string        `env:"PASSWORD_HASH"`
	BcryptCost                  int           `env:"BCRYPT_COST"`
	LogLevel                    string        `env:"LOG_LEVEL"`
	OtelEndpoint                string        `env:"OTEL_ENDPOINT"`
	OperatorEmails              []string      `env:"OPERATOR_EMAILS" envSeparator:","`
}

// LoadDefaults populates Config with development defaults: in-memory storage,
// 30 minute tokens, bcrypt at its default cost.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.StorageType = StorageMemory
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.PasswordHashAlgorithm = "bcrypt"
	c.BcryptCost = 10
	c.LogLevel = "info"
	c.OtelEndpoint = ""
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageMemory:
	case StoragePostgres, StorageSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("storage %q requires a database DSN", c.StorageType)
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.StorageType)
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive, got %s", c.AccessTokenValidityDuration)
	}
	if c.EndpointAddrHTTP == "" {
		return fmt.Errorf("http endpoint address is required")
	}
	return nil
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional JSON file, environment variables and finally command-line flags.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
