// Package rpc describes the gophauth.AuthService gRPC service: its
// messages, a JSON wire codec, the server registration descriptor and a
// typed client. Messages are plain structs encoded with encoding/json.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "gophauth.AuthService"

// Full method names, as seen by interceptors in UnaryServerInfo.FullMethod.
const (
	MethodRegister  = "/" + ServiceName + "/Register"
	MethodLogin     = "/" + ServiceName + "/Login"
	MethodMe        = "/" + ServiceName + "/Me"
	MethodListUsers = "/" + ServiceName + "/ListUsers"
	MethodPing      = "/" + ServiceName + "/Ping"
)

// AuthServiceServer is implemented by the server side of the service.
type AuthServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Me(context.Context, *MeRequest) (*MeResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// RegisterAuthServiceServer attaches srv to s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds a grpc.MethodHandler for one request/response pair.
func unary[Req any, Resp any](
	fullMethod string,
	call func(AuthServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, AuthServiceServer.Register)},
		{MethodName: "Login", Handler: unary(MethodLogin, AuthServiceServer.Login)},
		{MethodName: "Me", Handler: unary(MethodMe, AuthServiceServer.Me)},
		{MethodName: "ListUsers", Handler: unary(MethodListUsers, AuthServiceServer.ListUsers)},
		{MethodName: "Ping", Handler: unary(MethodPing, AuthServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/auth",
}

// AuthServiceClient is the typed client. Every call is sent with the JSON
// content-subtype.
type AuthServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *AuthServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *AuthServiceClient) Me(ctx context.Context, in *MeRequest, opts ...grpc.CallOption) (*MeResponse, error) {
	return invoke[MeResponse](ctx, c.cc, MethodMe, in, opts)
}

func (c *AuthServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	return invoke[ListUsersResponse](ctx, c.cc, MethodListUsers, in, opts)
}

func (c *AuthServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
