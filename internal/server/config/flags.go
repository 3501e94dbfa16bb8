package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051"), empty disables gRPC
//	-m string   storage type: memory, postgres, sqlite
//	-d string   database DSN (PostgreSQL DSN or SQLite file)
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-p string   password hash algorithm: bcrypt, argon2id
//	-b int      bcrypt cost
//	-l string   log level
//	-o string   OTLP/HTTP traces endpoint
//
// Only these flags are considered; -c/-config and anything else in args is
// filtered out beforehand with flagx.FilterArgs.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-m", "-d", "-s", "-t", "-p", "-b", "-l", "-o"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port to run server")
	fs.StringVar(&config.StorageType, "m", config.StorageType, "storage type (memory, postgres, sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.PasswordHashAlgorithm, "p", config.PasswordHashAlgorithm, "password hash algorithm (bcrypt, argon2id)")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.OtelEndpoint, "o", config.OtelEndpoint, "OTLP traces endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// -t only overrides when given, so sub-minute values from JSON or env survive.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		}
	})
	return nil
}
