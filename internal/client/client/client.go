package client

import (
	"context"

	pb "github.com/dmitrijs2005/gophauth/internal/rpc"
)

type Client interface {
	Close() error
	Register(ctx context.Context, email, name, password string) (*pb.User, error)
	Login(ctx context.Context, email, password string) error
	Me(ctx context.Context) (*pb.User, error)
	Ping(ctx context.Context) error
	Logout()
	LoggedIn() bool
}
