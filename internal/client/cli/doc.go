// Package cli implements the interactive GophAuth client: a small REPL
// over the gRPC client with commands to register, log in, show the current
// user and log out. Passwords are read without echo and wiped after use.
package cli
