package client

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// fakeServer records the authorization metadata it sees.
type fakeServer struct {
	registerErr error
	loginErr    error
	meErr       error
	pingStatus  string

	lastAuth []string
}

func (f *fakeServer) Register(ctx context.Context, in *pb.RegisterRequest) (*pb.RegisterResponse, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &pb.RegisterResponse{User: pb.User{ID: "1", Email: in.Email, Name: in.Name}}, nil
}

func (f *fakeServer) Login(ctx context.Context, in *pb.LoginRequest) (*pb.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &pb.LoginResponse{AccessToken: "tok-" + in.Email, TokenType: "bearer", ExpiresIn: 1800}, nil
}

func (f *fakeServer) Me(ctx context.Context, _ *pb.MeRequest) (*pb.MeResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	f.lastAuth = md.Get("authorization")
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &pb.MeResponse{User: pb.User{ID: "1", Email: "a@x.com"}}, nil
}

func (f *fakeServer) ListUsers(ctx context.Context, _ *pb.ListUsersRequest) (*pb.ListUsersResponse, error) {
	return &pb.ListUsersResponse{}, nil
}

func (f *fakeServer) Ping(ctx context.Context, _ *pb.PingRequest) (*pb.PingResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	f.lastAuth = md.Get("authorization")
	return &pb.PingResponse{Status: f.pingStatus}, nil
}

func newTestClient(t *testing.T, fs *fakeServer) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterAuthServiceServer(srv, fs)
	go func() { _ = srv.Serve(lis) }()

	c, err := NewGRPCClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
		srv.Stop()
	})
	return c
}

func TestLoginMeLogout(t *testing.T) {
	fs := &fakeServer{pingStatus: "OK"}
	c := newTestClient(t, fs)
	ctx := context.Background()

	_, err := c.Me(ctx)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, c.Login(ctx, "a@x.com", "password123"))
	assert.True(t, c.LoggedIn())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", me.Email)
	assert.Equal(t, []string{"Bearer tok-a@x.com"}, fs.lastAuth)

	c.Logout()
	assert.False(t, c.LoggedIn())

	require.NoError(t, c.Ping(ctx))
	assert.Empty(t, fs.lastAuth, "no token after logout")
}

func TestRegister(t *testing.T) {
	c := newTestClient(t, &fakeServer{})
	u, err := c.Register(context.Background(), "a@x.com", "A", "password123")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, "A", u.Name)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"invalid argument", status.Error(codes.InvalidArgument, "password too short"), common.ErrorValidation},
		{"already exists", status.Error(codes.AlreadyExists, "Email already registered"), common.ErrorDuplicateEmail},
		{"bad credentials", status.Error(codes.Unauthenticated, "Invalid credentials"), common.ErrorInvalidCredentials},
		{"bad token", status.Error(codes.Unauthenticated, "Could not validate credentials"), ErrUnauthorized},
		{"unavailable", status.Error(codes.Unavailable, "down"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &GRPCClient{}
			assert.ErrorIs(t, c.mapError(tt.err), tt.want)
		})
	}

	c := &GRPCClient{}
	assert.NoError(t, c.mapError(nil))
	err := c.mapError(status.Error(codes.Internal, "internal error"))
	assert.Contains(t, err.Error(), "rpc error")
}

func TestRegister_Duplicate(t *testing.T) {
	c := newTestClient(t, &fakeServer{registerErr: status.Error(codes.AlreadyExists, "Email already registered")})
	_, err := c.Register(context.Background(), "a@x.com", "A", "password123")
	require.ErrorIs(t, err, common.ErrorDuplicateEmail)
}

func TestLogin_FailureKeepsLoggedOut(t *testing.T) {
	c := newTestClient(t, &fakeServer{loginErr: status.Error(codes.Unauthenticated, "Invalid credentials")})
	err := c.Login(context.Background(), "a@x.com", "nope")
	require.True(t, errors.Is(err, common.ErrorInvalidCredentials))
	assert.False(t, c.LoggedIn())
}

func TestPing_BadStatus(t *testing.T) {
	c := newTestClient(t, &fakeServer{pingStatus: "DEGRADED"})
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestWithAccessToken_ReplacesExisting(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer old", "x-other", "1")
	ctx = withAccessToken(ctx, "new")
	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{"Bearer new"}, md.Get("authorization"))
	assert.Equal(t, []string{"1"}, md.Get("x-other"))
}
