package grpc

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestInterceptor_PublicMethod_AllowsWithoutToken(t *testing.T) {
	s := newServer(&fakeUser{})

	info := &grpc.UnaryServerInfo{FullMethod: pb.MethodLogin}
	handlerCalled := false
	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled || resp != "ok" {
		t.Fatalf("handler not called properly: called=%v resp=%v", handlerCalled, resp)
	}
}

func TestInterceptor_MissingOrMalformedToken(t *testing.T) {
	for name, md := range map[string]metadata.MD{
		"none":         nil,
		"empty":        metadata.Pairs("authorization", ""),
		"basic scheme": metadata.Pairs("authorization", "Basic abc"),
		"no token":     metadata.Pairs("authorization", "Bearer "),
	} {
		t.Run(name, func(t *testing.T) {
			u := &fakeUser{}
			s := newServer(u)
			ctx := context.Background()
			if md != nil {
				ctx = metadata.NewIncomingContext(ctx, md)
			}
			h := func(ctx context.Context, req any) (any, error) {
				t.Fatal("handler should not be called")
				return nil, nil
			}
			_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: pb.MethodMe}, h)
			st, _ := status.FromError(err)
			if st.Code() != codes.Unauthenticated || st.Message() != msgUnauthenticated {
				t.Fatalf("want Unauthenticated, got %v", err)
			}
			if u.gotToken != "" {
				t.Fatalf("service must not be consulted, got token %q", u.gotToken)
			}
		})
	}
}

func TestInterceptor_RejectedToken(t *testing.T) {
	s := newServer(&fakeUser{currentErr: common.ErrorUnauthenticated})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer bad"))

	_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: pb.MethodListUsers},
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}
}

func TestInterceptor_ValidToken_PutsUserInContext(t *testing.T) {
	u := &fakeUser{currentResp: &models.User{ID: "u1", Email: "a@x.com"}}
	s := newServer(u)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "bearer good-token"))

	var got *models.User
	_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: pb.MethodMe},
		func(ctx context.Context, req any) (any, error) {
			got, _ = userFromContext(ctx)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.gotToken != "good-token" {
		t.Fatalf("token not passed through: %q", u.gotToken)
	}
	if got == nil || got.ID != "u1" {
		t.Fatalf("user not in context: %+v", got)
	}
}

func TestRequestInterceptor_PropagatesRequestID(t *testing.T) {
	s := newServer(&fakeUser{})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "rid-1"))

	var seen string
	_, err := s.requestInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: pb.MethodPing},
		func(ctx context.Context, req any) (any, error) {
			seen = logging.RequestID(ctx)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "rid-1" {
		t.Fatalf("want rid-1, got %q", seen)
	}
}

func TestRequestInterceptor_GeneratesRequestID(t *testing.T) {
	s := newServer(&fakeUser{})

	var seen string
	_, _ = s.requestInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: pb.MethodPing},
		func(ctx context.Context, req any) (any, error) {
			seen = logging.RequestID(ctx)
			return nil, nil
		})
	if len(seen) != 36 {
		t.Fatalf("want generated uuid, got %q", seen)
	}
}
