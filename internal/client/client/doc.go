// Package client is the gRPC client of the GophAuth server. GRPCClient keeps
// the access token obtained by Login and attaches it to every call, and it
// maps gRPC status codes back to the errors in this package and
// internal/common.
package client
