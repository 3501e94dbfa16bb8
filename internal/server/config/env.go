package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every environment variable read by the server,
// e.g. GOPHAUTH_SECRET_KEY.
const EnvPrefix = "GOPHAUTH_"

// parseEnv overlays values from GOPHAUTH_* environment variables.
// Unset variables leave the current value untouched.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
