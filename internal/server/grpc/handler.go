package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.RegisterResponse, error) {
	u, err := s.users.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &pb.RegisterResponse{User: toUser(u)}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {
	token, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &pb.LoginResponse{
		AccessToken: token,
		TokenType:   common.TokenTypeBearer,
		ExpiresIn:   int64(s.users.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *pb.MeRequest) (*pb.MeResponse, error) {
	u, ok := userFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgUnauthenticated)
	}
	return &pb.MeResponse{User: toUser(u)}, nil
}

func (s *GRPCServer) ListUsers(ctx context.Context, _ *pb.ListUsersRequest) (*pb.ListUsersResponse, error) {
	u, ok := userFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgUnauthenticated)
	}
	list, err := s.users.ListUsers(ctx, u)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := make([]pb.User, 0, len(list))
	for _, u := range list {
		out = append(out, toUser(u))
	}
	return &pb.ListUsersResponse{Users: out}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *pb.PingRequest) (*pb.PingResponse, error) {
	return &pb.PingResponse{Status: "OK"}, nil
}

const (
	msgDuplicateEmail     = "Email already registered"
	msgInvalidCredentials = "Invalid credentials"
	msgUnauthenticated    = "Could not validate credentials"
	msgForbidden          = "Operator access required"
	msgInternal           = "internal error"
)

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorDuplicateEmail):
		return status.Error(codes.AlreadyExists, msgDuplicateEmail)
	case errors.Is(err, common.ErrorInvalidCredentials):
		return status.Error(codes.Unauthenticated, msgInvalidCredentials)
	case errors.Is(err, common.ErrorUnauthenticated):
		return status.Error(codes.Unauthenticated, msgUnauthenticated)
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, msgForbidden)
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, msgInternal)
	}
}

func toUser(u *models.User) pb.User {
	return pb.User{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}
