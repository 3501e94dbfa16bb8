// Package config loads runtime configuration for the GophAuth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. GOPHAUTH_CLIENT_* environment variables.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   address:port of the server gRPC endpoint
//	-i int      online status check interval (seconds)
//	-r int      per-request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s"
//	}
package config
